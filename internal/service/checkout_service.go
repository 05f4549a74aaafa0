package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/models"
)

// DefaultPaymentMethod is used when the kiosk does not send one.
const DefaultPaymentMethod = "card"

// ReceiptPublisher hands completed receipts to whatever stores or reports them.
type ReceiptPublisher interface {
	PublishReceipt(ctx context.Context, receipt models.Receipt) error
}

// CheckoutService turns a priced cart into a receipt.
// Payment is assumed to have succeeded once Checkout is called.
type CheckoutService struct {
	pricer    *PricingService
	ids       *ReceiptIDGenerator
	now       func() time.Time
	publisher ReceiptPublisher
	log       *slog.Logger
}

// CheckoutOptions carries the optional collaborators of a CheckoutService.
type CheckoutOptions struct {
	IDs       *ReceiptIDGenerator
	Clock     func() time.Time
	Publisher ReceiptPublisher
	Logger    *slog.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(pricer *PricingService, opts CheckoutOptions) *CheckoutService {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	ids := opts.IDs
	if ids == nil {
		ids = NewReceiptIDGenerator(now, nil)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &CheckoutService{
		pricer:    pricer,
		ids:       ids,
		now:       now,
		publisher: opts.Publisher,
		log:       log,
	}
}

// Checkout prices items and assembles a completed receipt.
// Pricing errors are returned unchanged; publishing errors are only logged.
func (s *CheckoutService) Checkout(ctx context.Context, items []models.LineItem, paymentMethod string) (models.Receipt, error) {
	totals, err := s.pricer.PriceCart(ctx, items)
	if err != nil {
		return models.Receipt{}, err
	}

	method := strings.ToLower(strings.TrimSpace(paymentMethod))
	if method == "" {
		method = DefaultPaymentMethod
	}

	receipt := models.Receipt{
		ID:            s.ids.Next(),
		Timestamp:     s.now().UTC(),
		Items:         append([]models.LineItem{}, items...),
		CartTotals:    totals,
		PaymentMethod: method,
		Status:        models.ReceiptStatusCompleted,
	}

	if s.publisher != nil {
		if err := s.publisher.PublishReceipt(ctx, receipt); err != nil {
			s.log.Error("failed to publish receipt", "receipt_id", receipt.ID, "error", err)
		}
	}

	return receipt, nil
}
