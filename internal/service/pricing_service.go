package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/models"
)

// DefaultTaxRate is the flat sales tax applied to every cart.
var DefaultTaxRate = decimal.RequireFromString("0.08")

// ErrInvalidCartItem is matched by every *InvalidCartItemError.
var ErrInvalidCartItem = errors.New("invalid cart item")

// InvalidCartItemError describes the first offending line of a cart.
type InvalidCartItemError struct {
	Index  int
	Label  string
	Reason string
}

func (e *InvalidCartItemError) Error() string {
	return fmt.Sprintf("invalid cart item %d (%q): %s", e.Index, e.Label, e.Reason)
}

func (e *InvalidCartItemError) Is(target error) bool {
	return target == ErrInvalidCartItem
}

// UnmatchedPolicy decides what happens to cart lines whose label is not in the catalog.
type UnmatchedPolicy int

const (
	// UnmatchedExclude leaves unknown products out of the subtotal.
	UnmatchedExclude UnmatchedPolicy = iota
	// UnmatchedReject fails the whole cart with an InvalidCartItemError.
	UnmatchedReject
)

// ParseUnmatchedPolicy accepts "exclude" or "reject".
func ParseUnmatchedPolicy(s string) (UnmatchedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exclude":
		return UnmatchedExclude, nil
	case "reject":
		return UnmatchedReject, nil
	default:
		return 0, fmt.Errorf("unknown unmatched policy %q", s)
	}
}

func (p UnmatchedPolicy) String() string {
	if p == UnmatchedReject {
		return "reject"
	}
	return "exclude"
}

// ProductLookup resolves a label to a catalog product.
type ProductLookup interface {
	Lookup(label string) (models.Product, bool)
}

// PricingOptions configures a PricingService.
type PricingOptions struct {
	TaxRate         decimal.Decimal
	UnmatchedPolicy UnmatchedPolicy
}

// PricingService computes cart totals against the catalog.
//
// Rounding is half away from zero to cents, applied in a fixed order:
// the subtotal is rounded first, tax is computed from the rounded subtotal
// and rounded, and the total is their exact sum.
type PricingService struct {
	catalog ProductLookup
	taxRate decimal.Decimal
	policy  UnmatchedPolicy
}

// NewPricingService creates a new pricing service
func NewPricingService(catalog ProductLookup, opts PricingOptions) *PricingService {
	return &PricingService{
		catalog: catalog,
		taxRate: opts.TaxRate,
		policy:  opts.UnmatchedPolicy,
	}
}

// TaxRate returns the configured tax rate.
func (s *PricingService) TaxRate() decimal.Decimal {
	return s.taxRate
}

// Policy returns the configured unmatched-product policy.
func (s *PricingService) Policy() UnmatchedPolicy {
	return s.policy
}

// PriceCart returns the totals for items.
func (s *PricingService) PriceCart(ctx context.Context, items []models.LineItem) (models.CartTotals, error) {
	breakdown, err := s.PriceCartDetailed(ctx, items)
	if err != nil {
		return models.CartTotals{}, err
	}
	return breakdown.CartTotals, nil
}

// PriceCartDetailed returns the totals plus a priced line for every item, in input order.
func (s *PricingService) PriceCartDetailed(ctx context.Context, items []models.LineItem) (models.CartBreakdown, error) {
	lines := make([]models.PricedLine, 0, len(items))
	sum := decimal.Zero

	for i, item := range items {
		if err := validateLineItem(i, item); err != nil {
			return models.CartBreakdown{}, err
		}

		line := models.PricedLine{ProductLabel: item.ProductLabel, Quantity: item.Quantity}

		product, ok := s.catalog.Lookup(item.ProductLabel)
		if !ok {
			if s.policy == UnmatchedReject {
				return models.CartBreakdown{}, &InvalidCartItemError{Index: i, Label: item.ProductLabel, Reason: "product not in catalog"}
			}
			lines = append(lines, line)
			continue
		}

		value := product.Price.Mul(decimal.NewFromFloat(item.Quantity))
		sum = sum.Add(value)

		unit := product.Price
		lineValue := models.NewMoney(models.Round2(value))
		line.Matched = true
		line.UnitPrice = &unit
		line.LineValue = &lineValue
		lines = append(lines, line)
	}

	subtotal := models.Round2(sum)
	tax := models.Round2(subtotal.Mul(s.taxRate))

	return models.CartBreakdown{
		CartTotals: models.CartTotals{
			Subtotal: models.NewMoney(subtotal),
			Tax:      models.NewMoney(tax),
			Total:    models.NewMoney(subtotal.Add(tax)),
		},
		Lines: lines,
	}, nil
}

func validateLineItem(index int, item models.LineItem) error {
	if strings.TrimSpace(item.ProductLabel) == "" {
		return &InvalidCartItemError{Index: index, Label: item.ProductLabel, Reason: "product name is required"}
	}
	if math.IsNaN(item.Quantity) || math.IsInf(item.Quantity, 0) {
		return &InvalidCartItemError{Index: index, Label: item.ProductLabel, Reason: "quantity must be a finite number"}
	}
	if item.Quantity <= 0 {
		return &InvalidCartItemError{Index: index, Label: item.ProductLabel, Reason: "quantity must be positive"}
	}
	return nil
}
