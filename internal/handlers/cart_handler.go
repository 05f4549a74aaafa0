package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/models"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/service"
)

// CartHandler handles cart pricing and checkout HTTP requests
type CartHandler struct {
	pricing  *service.PricingService
	checkout *service.CheckoutService
	log      *slog.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(pricing *service.PricingService, checkout *service.CheckoutService, log *slog.Logger) *CartHandler {
	return &CartHandler{
		pricing:  pricing,
		checkout: checkout,
		log:      log,
	}
}

type cartRequest struct {
	Items         []models.LineItem `json:"items"`
	PaymentMethod string            `json:"payment_method"`
}

// CalculationResponse is returned by POST /api/cart/calculate
type CalculationResponse struct {
	Success     bool              `json:"success"`
	Calculation models.CartTotals `json:"calculation"`
}

// CheckoutResponse is returned by both checkout endpoints
type CheckoutResponse struct {
	Success   bool           `json:"success"`
	Receipt   models.Receipt `json:"receipt"`
	Message   string         `json:"message"`
	ReceiptQR string         `json:"receipt_qr,omitempty"`
}

// Calculate handles POST /api/cart/calculate
func (h *CartHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req cartRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log.Warn("failed to decode cart request", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}

	totals, err := h.pricing.PriceCart(r.Context(), req.Items)
	if err != nil {
		writeCartError(w, err, h.log)
		return
	}

	WriteJSON(w, http.StatusOK, CalculationResponse{Success: true, Calculation: totals}, h.log)
}

// Checkout handles POST /api/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req cartRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log.Warn("failed to decode checkout request", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}

	receipt, err := h.checkout.Checkout(r.Context(), req.Items, req.PaymentMethod)
	if err != nil {
		writeCartError(w, err, h.log)
		return
	}

	writeReceipt(w, receipt, h.log)
}

func writeReceipt(w http.ResponseWriter, receipt models.Receipt, log *slog.Logger) {
	qr, err := EncodeReceiptQR(receipt)
	if err != nil {
		log.Error("failed to render receipt qr", "receipt_id", receipt.ID, "error", err)
	}

	WriteJSON(w, http.StatusOK, CheckoutResponse{
		Success:   true,
		Receipt:   receipt,
		Message:   "Payment processed successfully",
		ReceiptQR: qr,
	}, log)
	log.Info("checkout completed",
		"receipt_id", receipt.ID,
		"items_count", len(receipt.Items),
		"total", receipt.Total.String(),
	)
}

func writeCartError(w http.ResponseWriter, err error, log *slog.Logger) {
	if errors.Is(err, service.ErrInvalidCartItem) {
		log.Info("rejected cart", "error", err)
		WriteError(w, http.StatusBadRequest, err.Error(), log)
		return
	}
	log.Error("failed to price cart", "error", err)
	WriteError(w, http.StatusInternalServerError, "Internal server error", log)
}
