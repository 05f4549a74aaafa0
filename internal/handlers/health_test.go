package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/service"
	"github.com/Lixing-Zhang/smart-checkout/backend/pkg/logger"
)

type failingCounter struct{}

func (failingCounter) CountProducts(ctx context.Context) (int, error) {
	return 0, errors.New("catalog unavailable")
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	handler := NewHealthHandler(&stubClassifier{}, newTestServices(service.UnmatchedExclude).products, logger.Discard())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", body["status"])
	}
	if _, ok := body["timestamp"].(string); !ok {
		t.Error("expected a timestamp")
	}
}

func TestHealthHandler_Status(t *testing.T) {
	tests := []struct {
		name   string
		loaded bool
	}{
		{"model loaded", true},
		{"model missing", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(&stubClassifier{loaded: tt.loaded}, newTestServices(service.UnmatchedExclude).products, logger.Discard())

			rr := httptest.NewRecorder()
			handler.Status(rr, httptest.NewRequest(http.MethodGet, "/", nil))

			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rr.Code)
			}
			body := decodeBody(t, rr)
			if body["status"] != "online" {
				t.Errorf("expected online, got %v", body["status"])
			}
			if body["model_loaded"] != tt.loaded {
				t.Errorf("expected model_loaded=%v, got %v", tt.loaded, body["model_loaded"])
			}
			if body["total_products"] != float64(15) {
				t.Errorf("expected 15 products, got %v", body["total_products"])
			}
		})
	}
}

func TestHealthHandler_StatusCatalogError(t *testing.T) {
	handler := NewHealthHandler(&stubClassifier{}, failingCounter{}, logger.Discard())

	rr := httptest.NewRecorder()
	handler.Status(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assertErrorEnvelope(t, rr, http.StatusInternalServerError)
}
