package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/models"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/repository"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/service"
)

// ProductHandler handles product-related HTTP requests
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger,
	}
}

// ProductListResponse is returned by GET /api/products
type ProductListResponse struct {
	Success  bool             `json:"success"`
	Products []models.Product `json:"products"`
	Count    int              `json:"count"`
}

// ProductResponse wraps a single product
type ProductResponse struct {
	Success bool           `json:"success"`
	Product models.Product `json:"product"`
}

// ListProducts handles GET /api/products
// Returns the whole catalog in display order
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, ProductListResponse{
		Success:  true,
		Products: products,
		Count:    len(products),
	}, h.logger)
}

// GetProduct handles GET /api/product/{name}
// Lookup ignores case:
// - 200: product found
// - 400: empty name
// - 404: Product not found
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		WriteError(w, http.StatusBadRequest, "Product name is required", h.logger)
		return
	}

	product, err := h.service.GetProduct(r.Context(), name)
	h.writeProduct(w, product, err, "name", name)
}

// GetProductByBarcode handles GET /api/product/barcode/{code}
func (h *ProductHandler) GetProductByBarcode(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		WriteError(w, http.StatusBadRequest, "Barcode is required", h.logger)
		return
	}

	product, err := h.service.GetProductByBarcode(r.Context(), code)
	h.writeProduct(w, product, err, "barcode", code)
}

func (h *ProductHandler) writeProduct(w http.ResponseWriter, product *models.Product, err error, key, value string) {
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			h.logger.Info("product not found", key, value)
			WriteError(w, http.StatusNotFound, "Product not found", h.logger)
			return
		}

		h.logger.Error("failed to get product", key, value, "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, ProductResponse{Success: true, Product: *product}, h.logger)
}
