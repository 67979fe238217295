package middleware

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/storesync/internal/interfaces/http/dto"
)

func TestSetupValidator_UsesTagNames(t *testing.T) {
	SetupValidator()

	err := binding.Validator.ValidateStruct(&dto.BulkSyncRequest{})
	require.Error(t, err)

	details := dto.ValidationDetails(err)
	require.Len(t, details, 1)
	assert.Equal(t, "local_ids", details[0].Field)
	assert.Equal(t, "This field is required", details[0].Message)
}

func TestSetupValidator_FormTagFallback(t *testing.T) {
	SetupValidator()

	q := dto.AuditLogQuery{Status: "BOGUS"}
	err := binding.Validator.ValidateStruct(&q)
	require.Error(t, err)

	details := dto.ValidationDetails(err)
	require.Len(t, details, 1)
	assert.Equal(t, "status", details[0].Field)
	assert.Contains(t, details[0].Message, "Must be one of")
}
