package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRequestIDTracing_AddsRequestIDToHeader(t *testing.T) {
	handler := RequestIDTracing()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "test-request-id-123")
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "test-request-id-123", rec.Header().Get("X-Request-ID"))
}

func TestRequestIDTracing_GeneratesRequestIDIfMissing(t *testing.T) {
	handler := RequestIDTracing()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDTracing_LoggerInContext(t *testing.T) {
	var inner zerolog.Logger

	handler := RequestIDTracing()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = GetLoggerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "test-id-456")
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// The context logger is a request-scoped child, not the disabled default.
	assert.NotEqual(t, zerolog.Disabled, inner.GetLevel())
}
