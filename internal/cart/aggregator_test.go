package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/giftnest/checkout-service/internal/models"
	"github.com/giftnest/checkout-service/pkg/logger"
)

type fakeSource struct {
	items []models.LineItem
	err   error
	calls int
}

func (f *fakeSource) GetCart(ctx context.Context, userID string) ([]models.LineItem, error) {
	f.calls++
	return f.items, f.err
}

func lineItem(id string, qty int) models.LineItem {
	return models.LineItem{
		ProductID: id,
		Title:     "item " + id,
		UnitPrice: decimal.NewFromInt(100),
		Quantity:  qty,
	}
}

func TestAggregator_Load(t *testing.T) {
	log := logger.New("error")

	tests := []struct {
		name      string
		source    *fakeSource
		input     Input
		wantItems int
		wantErr   error
	}{
		{
			name:      "persisted cart",
			source:    &fakeSource{items: []models.LineItem{lineItem("p1", 2), lineItem("p2", 1)}},
			input:     Input{UserID: "u1"},
			wantItems: 2,
		},
		{
			name:    "empty persisted cart is terminal",
			source:  &fakeSource{},
			input:   Input{UserID: "u1"},
			wantErr: ErrEmptyCart,
		},
		{
			name:    "cart item with zero quantity",
			source:  &fakeSource{items: []models.LineItem{lineItem("p1", 0)}},
			input:   Input{UserID: "u1"},
			wantErr: ErrInvalidQuantity,
		},
		{
			name:      "buy now item",
			source:    &fakeSource{},
			input:     Input{UserID: "u1", BuyNow: true, Item: ptr(lineItem("p9", 3))},
			wantItems: 1,
		},
		{
			name:    "buy now without item",
			source:  &fakeSource{},
			input:   Input{UserID: "u1", BuyNow: true},
			wantErr: ErrMissingItem,
		},
		{
			name:    "buy now with negative quantity",
			source:  &fakeSource{},
			input:   Input{UserID: "u1", BuyNow: true, Item: ptr(lineItem("p9", -1))},
			wantErr: ErrInvalidQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := New(tt.source, log)
			items, err := agg.Load(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(items) != tt.wantItems {
				t.Errorf("items = %d, want %d", len(items), tt.wantItems)
			}
		})
	}
}

func TestAggregator_LoadFetchFailureNoRetry(t *testing.T) {
	src := &fakeSource{err: errors.New("backend down")}
	agg := New(src, logger.New("error"))

	if _, err := agg.Load(context.Background(), Input{UserID: "u1"}); err == nil {
		t.Fatal("expected error for failed fetch")
	}
	if src.calls != 1 {
		t.Errorf("fetch attempted %d times, want exactly 1", src.calls)
	}
}

func TestAggregator_BuyNowDefaultsQuantity(t *testing.T) {
	item := lineItem("p1", 0)
	agg := New(&fakeSource{}, logger.New("error"))

	items, err := agg.Load(context.Background(), Input{UserID: "u1", BuyNow: true, Item: &item})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items[0].Quantity != 1 {
		t.Errorf("quantity = %d, want 1", items[0].Quantity)
	}
	if item.Quantity != 0 {
		t.Error("input item was mutated")
	}
}

func ptr(it models.LineItem) *models.LineItem { return &it }
