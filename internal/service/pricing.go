package service

import (
	"github.com/rookgm/chowline/internal/models"
)

// basis points per whole
const bpDenominator = 10000

// PricingConfig holds the static pricing parameters.
type PricingConfig struct {
	TaxRateBP   int64 // tax rate in basis points, 800 = 8%
	DeliveryFee int64 // flat fee in minor units, charged on delivery orders only
}

// Totals is the computed price breakdown, all in minor currency units.
type Totals struct {
	Subtotal    int64
	Tax         int64
	DeliveryFee int64
	Total       int64
}

// Price computes the totals for a set of priced line items. Pure, no I/O,
// safe for concurrent use. Tax is rounded half-up so the result is
// reproducible for any given subtotal and rate.
func Price(items []models.OrderItem, orderType models.OrderType, cfg PricingConfig) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, models.ErrEmptyItems
	}

	var subtotal int64
	for _, item := range items {
		if item.Quantity < 1 {
			return Totals{}, models.ErrInvalidQuantity
		}
		subtotal += item.UnitPrice * int64(item.Quantity)
	}

	// round half-up on the basis-point product
	tax := (subtotal*cfg.TaxRateBP + bpDenominator/2) / bpDenominator

	var deliveryFee int64
	if orderType == models.OrderTypeDelivery {
		deliveryFee = cfg.DeliveryFee
	}

	return Totals{
		Subtotal:    subtotal,
		Tax:         tax,
		DeliveryFee: deliveryFee,
		Total:       subtotal + tax + deliveryFee,
	}, nil
}
