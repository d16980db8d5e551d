package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsMiddleware_RecordsRequestWithStatus(t *testing.T) {
	wrapped := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest("GET", "/nutrients/status", nil)
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	count := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/nutrients/status", "GET", "404"))
	assert.Equal(t, 1.0, count)
}

func TestMetricsMiddleware_DefaultsToOK(t *testing.T) {
	wrapped := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	count := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/health", "GET", "200"))
	assert.Equal(t, 1.0, count)
}
