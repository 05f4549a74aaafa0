package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/models"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/service"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/session"
)

// SessionHandler exposes per-kiosk carts held on the server
type SessionHandler struct {
	store    *session.Store
	pricing  *service.PricingService
	checkout *service.CheckoutService
	log      *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(store *session.Store, pricing *service.PricingService, checkout *service.CheckoutService, log *slog.Logger) *SessionHandler {
	return &SessionHandler{
		store:    store,
		pricing:  pricing,
		checkout: checkout,
		log:      log,
	}
}

// SessionResponse is a cart plus its current pricing
type SessionResponse struct {
	Success     bool                  `json:"success"`
	Session     session.Cart          `json:"session"`
	Calculation *models.CartBreakdown `json:"calculation,omitempty"`
}

type addItemRequest struct {
	Name     string   `json:"name"`
	Quantity *float64 `json:"quantity"`
}

type sessionCheckoutRequest struct {
	PaymentMethod string `json:"payment_method"`
}

// Create handles POST /api/session
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	cart, err := h.store.Create()
	if err != nil {
		h.log.Error("failed to create session", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.log)
		return
	}

	h.log.Info("session created", "session_id", cart.ID)
	WriteJSON(w, http.StatusCreated, SessionResponse{Success: true, Session: cart}, h.log)
}

// Get handles GET /api/session/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	cart, err := h.store.Get(chi.URLParam(r, "id"))
	h.respond(w, r, cart, err)
}

// AddItem handles POST /api/session/{id}/items
// A missing quantity adds one unit.
func (h *SessionHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}
	item := models.LineItem{ProductLabel: req.Name, Quantity: 1}
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}

	// Price the item on its own so the cart only ever holds items the pricing policy accepts.
	if _, err := h.pricing.PriceCart(r.Context(), []models.LineItem{item}); err != nil {
		writeCartError(w, err, h.log)
		return
	}

	cart, err := h.store.AddItem(chi.URLParam(r, "id"), item)
	h.respond(w, r, cart, err)
}

// RemoveItem handles DELETE /api/session/{id}/items/{name}
func (h *SessionHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.store.RemoveItem(chi.URLParam(r, "id"), chi.URLParam(r, "name"))
	h.respond(w, r, cart, err)
}

// Clear handles DELETE /api/session/{id}/items
func (h *SessionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	cart, err := h.store.Clear(chi.URLParam(r, "id"))
	h.respond(w, r, cart, err)
}

// Delete handles DELETE /api/session/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(id); err != nil {
		h.writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Checkout handles POST /api/session/{id}/checkout
// The session ends once a receipt has been issued; it is kept if pricing fails.
func (h *SessionHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req sessionCheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}

	// Claim the cart first so a repeated request cannot issue a second receipt.
	cart, err := h.store.Take(chi.URLParam(r, "id"))
	if err != nil {
		h.writeSessionError(w, err)
		return
	}

	receipt, err := h.checkout.Checkout(r.Context(), cart.Items, req.PaymentMethod)
	if err != nil {
		h.store.Restore(cart)
		writeCartError(w, err, h.log)
		return
	}

	writeReceipt(w, receipt, h.log)
}

func (h *SessionHandler) respond(w http.ResponseWriter, r *http.Request, cart session.Cart, err error) {
	if err != nil {
		h.writeSessionError(w, err)
		return
	}

	breakdown, err := h.pricing.PriceCartDetailed(r.Context(), cart.Items)
	if err != nil {
		writeCartError(w, err, h.log)
		return
	}

	WriteJSON(w, http.StatusOK, SessionResponse{
		Success:     true,
		Session:     cart,
		Calculation: &breakdown,
	}, h.log)
}

func (h *SessionHandler) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		WriteError(w, http.StatusNotFound, "Session not found", h.log)
	case errors.Is(err, session.ErrItemNotFound):
		WriteError(w, http.StatusNotFound, "Item not in cart", h.log)
	case errors.Is(err, session.ErrInvalidItem):
		WriteError(w, http.StatusBadRequest, err.Error(), h.log)
	default:
		h.log.Error("session operation failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.log)
	}
}
