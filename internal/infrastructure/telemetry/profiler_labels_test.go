package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithProfilingLabels_EmptyLabels(t *testing.T) {
	called := false
	WithProfilingLabels(context.Background(), nil, func(ctx context.Context) {
		called = true
	})
	assert.True(t, called)
}

func TestWithProfilingLabels_AttachesLabels(t *testing.T) {
	var got string
	WithProfilingLabels(context.Background(), map[string]string{
		ProfilingLabelTaskType: "sync_product",
		"local_id":             "SKU-1",
	}, func(ctx context.Context) {
		got, _ = pprof.Label(ctx, ProfilingLabelTaskType)
		_, hasID := pprof.Label(ctx, "local_id")
		assert.False(t, hasID)
	})
	assert.Equal(t, "sync_product", got)
}

func TestSanitizeLabels(t *testing.T) {
	pairs := sanitizeLabels(map[string]string{
		"route":      "/api/v1/integration/logs",
		"task-type":  "bulk_sync",
		"empty":      "",
		"request_id": "abc",
		"controller": strings.Repeat("x", 200),
	})

	assert.Equal(t, []string{
		"controller", strings.Repeat("x", MaxLabelValueLength),
		"route", "/api/v1/integration/logs",
		"task_type", "bulk_sync",
	}, pairs)
}

func TestSanitizeLabelKey(t *testing.T) {
	assert.Equal(t, "entity_kind", sanitizeLabelKey("Entity Kind"))
	assert.Equal(t, "a_b", sanitizeLabelKey("a-b!"))
	assert.Equal(t, "", sanitizeLabelKey("***"))
}
