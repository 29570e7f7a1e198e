package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubChecker struct {
	err error
}

func (s stubChecker) Ping(ctx context.Context) error {
	return s.err
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		checker        *stubChecker
		expectedStatus int
		expectedHealth string
		expectedRedis  string
	}{
		{"all healthy", &stubChecker{}, http.StatusOK, "healthy", "healthy"},
		{"unhealthy redis", &stubChecker{err: errors.New("connection failed")}, http.StatusServiceUnavailable, "degraded", "unhealthy"},
		{"stateless only", nil, http.StatusOK, "healthy", "disabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var handler *HealthHandler
			if tt.checker == nil {
				handler = NewHealthHandler(nil, testLogger())
			} else {
				handler = NewHealthHandler(*tt.checker, testLogger())
			}

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}

			var response HealthResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if response.Status != tt.expectedHealth {
				t.Errorf("Expected status %q, got %q", tt.expectedHealth, response.Status)
			}
			if response.Components["redis"] != tt.expectedRedis {
				t.Errorf("Expected redis %q, got %q", tt.expectedRedis, response.Components["redis"])
			}
			if response.Service != "turn-engine" {
				t.Errorf("Expected service turn-engine, got %q", response.Service)
			}
		})
	}
}
