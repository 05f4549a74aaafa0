package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/service"
	"github.com/Lixing-Zhang/smart-checkout/backend/pkg/logger"
)

func newProductRouter() http.Handler {
	svc := newTestServices(service.UnmatchedExclude).products
	handler := NewProductHandler(svc, logger.Discard())

	r := chi.NewRouter()
	r.Get("/api/products", handler.ListProducts)
	r.Get("/api/product/barcode/{code}", handler.GetProductByBarcode)
	r.Get("/api/product/{name}", handler.GetProduct)
	return r
}

func TestListProducts(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	w := httptest.NewRecorder()

	newProductRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp ProductListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if !resp.Success {
		t.Error("expected success=true")
	}
	if resp.Count != 15 || len(resp.Products) != 15 {
		t.Errorf("expected 15 products, got count=%d len=%d", resp.Count, len(resp.Products))
	}
	if resp.Products[0].Label != "apple" {
		t.Errorf("expected catalog order to start with apple, got %s", resp.Products[0].Label)
	}
}

func TestGetProduct(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedLabel  string
	}{
		{"lower case", "/api/product/banana", http.StatusOK, "banana"},
		{"upper case", "/api/product/BANANA", http.StatusOK, "banana"},
		{"mixed case", "/api/product/Bell%20Pepper", http.StatusOK, "bell pepper"},
		{"unknown product", "/api/product/dragonfruit", http.StatusNotFound, ""},
		{"barcode", "/api/product/barcode/123456002", http.StatusOK, "banana"},
		{"unknown barcode", "/api/product/barcode/000", http.StatusNotFound, ""},
	}

	router := newProductRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if tt.expectedStatus != http.StatusOK {
				assertErrorEnvelope(t, w, tt.expectedStatus)
				return
			}

			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", w.Code)
			}
			var resp ProductResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Product.Label != tt.expectedLabel {
				t.Errorf("expected label %q, got %q", tt.expectedLabel, resp.Product.Label)
			}
		})
	}
}

func TestGetProduct_PriceEncoding(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/product/apple", nil)
	w := httptest.NewRecorder()

	newProductRouter().ServeHTTP(w, req)

	body := decodeBody(t, w)
	product := body["product"].(map[string]interface{})
	if product["price"] != 2.99 {
		t.Errorf("expected price 2.99, got %v", product["price"])
	}
	if product["unit"] != "per lb" {
		t.Errorf("expected unit per lb, got %v", product["unit"])
	}
}
