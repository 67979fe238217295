package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// maxLocalIDLength matches the width of the catalog item code column
const maxLocalIDLength = 140

// localIDParam returns the trimmed :local_id path parameter, or false when it
// is empty or too long
func localIDParam(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("local_id"))
	if id == "" || len(id) > maxLocalIDLength {
		return "", false
	}
	return id, true
}
