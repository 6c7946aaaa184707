package pricing

import (
	"testing"

	"github.com/giftnest/checkout-service/internal/models"
	"github.com/shopspring/decimal"
)

func item(price string, qty int) models.LineItem {
	return models.LineItem{
		ProductID: "p",
		Title:     "test item",
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  qty,
	}
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name         string
		items        []models.LineItem
		discount     string
		wantSubtotal string
		wantDiscount string
		wantTotal    string
	}{
		{
			name:         "no coupon",
			items:        []models.LineItem{item("100", 2), item("50", 1)},
			discount:     "0",
			wantSubtotal: "250",
			wantDiscount: "0",
			wantTotal:    "250",
		},
		{
			name:         "resolved discount",
			items:        []models.LineItem{item("100", 2), item("50", 1)},
			discount:     "25",
			wantSubtotal: "250",
			wantDiscount: "25",
			wantTotal:    "225",
		},
		{
			name:         "discount equals subtotal",
			items:        []models.LineItem{item("100", 1)},
			discount:     "100",
			wantSubtotal: "100",
			wantDiscount: "100",
			wantTotal:    "0",
		},
		{
			name:         "discount exceeds subtotal clamps at zero",
			items:        []models.LineItem{item("99.50", 1)},
			discount:     "150",
			wantSubtotal: "99.5",
			wantDiscount: "150",
			wantTotal:    "0",
		},
		{
			name:         "negative discount counts as none",
			items:        []models.LineItem{item("10", 3)},
			discount:     "-5",
			wantSubtotal: "30",
			wantDiscount: "0",
			wantTotal:    "30",
		},
		{
			name:         "fractional prices have no rounding drift",
			items:        []models.LineItem{item("19.99", 3), item("0.01", 7)},
			discount:     "0",
			wantSubtotal: "60.04",
			wantDiscount: "0",
			wantTotal:    "60.04",
		},
		{
			name:         "empty cart",
			items:        nil,
			discount:     "0",
			wantSubtotal: "0",
			wantDiscount: "0",
			wantTotal:    "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTotals(tt.items, decimal.RequireFromString(tt.discount))

			if !got.Subtotal.Equal(decimal.RequireFromString(tt.wantSubtotal)) {
				t.Errorf("subtotal = %s, want %s", got.Subtotal, tt.wantSubtotal)
			}
			if !got.Discount.Equal(decimal.RequireFromString(tt.wantDiscount)) {
				t.Errorf("discount = %s, want %s", got.Discount, tt.wantDiscount)
			}
			if !got.Total.Equal(decimal.RequireFromString(tt.wantTotal)) {
				t.Errorf("total = %s, want %s", got.Total, tt.wantTotal)
			}
			if got.Total.IsNegative() {
				t.Errorf("total %s is negative", got.Total)
			}
		})
	}
}

func TestComputeTotals_ApplyThenRemoveRestoresSubtotal(t *testing.T) {
	items := []models.LineItem{item("100", 2), item("50", 1)}

	applied := ComputeTotals(items, decimal.RequireFromString("25"))
	removed := ComputeTotals(items, decimal.Zero)

	if !applied.Total.Equal(decimal.RequireFromString("225")) {
		t.Errorf("applied total = %s, want 225", applied.Total)
	}
	if !removed.Discount.IsZero() {
		t.Errorf("removed discount = %s, want 0", removed.Discount)
	}
	if !removed.Total.Equal(removed.Subtotal) {
		t.Errorf("removed total = %s, want subtotal %s", removed.Total, removed.Subtotal)
	}
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"225", 22500},
		{"0", 0},
		{"99.5", 9950},
		{"19.99", 1999},
		{"0.01", 1},
	}

	for _, tt := range tests {
		if got := MinorUnits(decimal.RequireFromString(tt.amount)); got != tt.want {
			t.Errorf("MinorUnits(%s) = %d, want %d", tt.amount, got, tt.want)
		}
	}
}
