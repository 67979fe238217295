package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestProfiling_AddsLabels(t *testing.T) {
	router := gin.New()
	router.Use(Profiling(DefaultProfilingConfig()))
	router.GET("/api/v1/integration/products/:id/status", func(c *gin.Context) {
		controller, _ := pprof.Label(c.Request.Context(), "controller")
		route, _ := pprof.Label(c.Request.Context(), "route")
		c.JSON(http.StatusOK, gin.H{"controller": controller, "route": route})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/integration/products/SKU-1/status", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"controller":"integration","route":"/api/v1/integration/products/:id/status"}`, w.Body.String())
}

func TestProfiling_SkipsProbes(t *testing.T) {
	router := gin.New()
	router.Use(Profiling(DefaultProfilingConfig()))
	router.GET("/health", func(c *gin.Context) {
		_, ok := pprof.Label(c.Request.Context(), "route")
		c.JSON(http.StatusOK, gin.H{"labelled": ok})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.JSONEq(t, `{"labelled":false}`, w.Body.String())
}

func TestControllerFromRoute(t *testing.T) {
	tests := map[string]string{
		"/api/v1/integration/logs":    "integration",
		"/api/v1/webhooks/storefront": "webhooks",
		"/api/v2/system/info":         "system",
		"/health":                     "health",
		"":                            "",
		"/api/v1/:id":                 "",
	}
	for route, want := range tests {
		assert.Equal(t, want, controllerFromRoute(route), route)
	}
}
