// Package pricing derives checkout totals. It is the only place in the
// service where price-times-quantity arithmetic exists; every displayed or
// submitted amount comes from ComputeTotals.
package pricing

import (
	"github.com/giftnest/checkout-service/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeTotals calculates subtotal, discount and grand total for a set of
// line items. Pure: no caching, no side effects; callers recompute on every
// change to items or discount. A discount larger than the subtotal clamps
// the total at zero, and a negative discount counts as none.
func ComputeTotals(items []models.LineItem, discount decimal.Decimal) models.OrderTotals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	if discount.IsNegative() {
		discount = decimal.Zero
	}

	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return models.OrderTotals{
		Subtotal: subtotal,
		Discount: discount,
		Total:    total,
	}
}

// MinorUnits converts a decimal amount to integer minor currency units
// (paise for INR), as required by the payment gateway.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
