package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const apiVersion = "1.0.0"

type modelStatus interface {
	ModelLoaded() bool
}

type productCounter interface {
	CountProducts(ctx context.Context) (int, error)
}

// HealthHandler provides the status and health check endpoints
type HealthHandler struct {
	model    modelStatus
	products productCounter
	logger   *slog.Logger
	now      func() time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(model modelStatus, products productCounter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		model:    model,
		products: products,
		logger:   logger,
		now:      time.Now,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// StatusResponse describes the kiosk backend at GET /
type StatusResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	Version       string `json:"version"`
	ModelLoaded   bool   `json:"model_loaded"`
	TotalProducts int    `json:"total_products"`
}

// ServeHTTP handles GET /api/health
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: h.now().UTC(),
		Version:   apiVersion,
	}, h.logger)
}

// Status handles GET /
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	count, err := h.products.CountProducts(r.Context())
	if err != nil {
		h.logger.Error("failed to count products", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        "online",
		Message:       "Smart Supermarket Self-Checkout API",
		Version:       apiVersion,
		ModelLoaded:   h.model.ModelLoaded(),
		TotalProducts: count,
	}, h.logger)
}
