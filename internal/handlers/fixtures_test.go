package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/models"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/repository"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/service"
	"github.com/Lixing-Zhang/smart-checkout/backend/pkg/logger"
)

var fixedNow = time.Date(2026, 5, 2, 15, 4, 5, 0, time.UTC)

// recordingPublisher captures published receipts
type recordingPublisher struct {
	receipts []models.Receipt
}

func (p *recordingPublisher) PublishReceipt(ctx context.Context, receipt models.Receipt) error {
	p.receipts = append(p.receipts, receipt)
	return nil
}

type testServices struct {
	products  *service.ProductService
	pricing   *service.PricingService
	checkout  *service.CheckoutService
	publisher *recordingPublisher
}

func newTestServices(policy service.UnmatchedPolicy) testServices {
	catalog := repository.NewDefaultProductRepository()
	pricing := service.NewPricingService(catalog, service.PricingOptions{
		TaxRate:         service.DefaultTaxRate,
		UnmatchedPolicy: policy,
	})
	publisher := &recordingPublisher{}
	clock := func() time.Time { return fixedNow }
	checkout := service.NewCheckoutService(pricing, service.CheckoutOptions{
		IDs:       service.NewReceiptIDGenerator(clock, func(int) int { return 234 }),
		Clock:     clock,
		Publisher: publisher,
		Logger:    logger.Discard(),
	})
	return testServices{
		products:  service.NewProductService(catalog),
		pricing:   pricing,
		checkout:  checkout,
		publisher: publisher,
	}
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	return bytes.NewReader(b)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func assertErrorEnvelope(t *testing.T, rr *httptest.ResponseRecorder, status int) map[string]interface{} {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d (%s)", status, rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["success"] != false {
		t.Errorf("expected success=false, got %v", body["success"])
	}
	if msg, _ := body["error"].(string); msg == "" {
		t.Error("expected an error message")
	}
	return body
}

var _ http.Handler = (*HealthHandler)(nil)
