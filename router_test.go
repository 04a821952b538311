package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	httpapi "github.com/yourorg/listing-relay/http"
	"github.com/yourorg/listing-relay/internal/relay"
)

type okRunner struct{}

func (okRunner) Run(context.Context) relay.Result { return relay.Result{RunID: "r"} }

func TestRouterRoutes(t *testing.T) {
	h := BuildRouter(httpapi.PipelineDeps{Job: okRunner{}}, 100, zerolog.Nop())

	tests := []struct {
		method, path string
		code         int
		contains     string
	}{
		{http.MethodGet, "/health", http.StatusOK, `"ok":true`},
		{http.MethodGet, "/api/data-pipeline", http.StatusOK, "data pipeline executed"},
		{http.MethodPost, "/api/data-pipeline", http.StatusOK, "data pipeline executed"},
		{http.MethodPatch, "/api/data-pipeline", http.StatusOK, "data pipeline executed"},
		{http.MethodGet, "/metrics", http.StatusOK, "go_goroutines"},
		{http.MethodGet, "/nope", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d", rec.Code, tt.code)
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("body %q missing %q", rec.Body.String(), tt.contains)
			}
		})
	}
}

func TestRouterRateLimitsTrigger(t *testing.T) {
	h := BuildRouter(httpapi.PipelineDeps{Job: okRunner{}}, 1, zerolog.Nop())
	codes := make([]int, 2)
	for i := range codes {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/data-pipeline", nil))
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health should not be limited, got %d", rec.Code)
	}
}
