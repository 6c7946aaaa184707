// Package cart assembles the line items a checkout session operates on,
// either from the user's persisted cart or from a single buy-now item.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/giftnest/checkout-service/internal/models"
)

var (
	// ErrEmptyCart means there is nothing to check out; the session is
	// terminal and downstream steps are blocked.
	ErrEmptyCart = errors.New("nothing to check out")

	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrMissingItem     = errors.New("buy-now checkout requires an item")
)

// Source fetches a user's persisted cart.
type Source interface {
	GetCart(ctx context.Context, userID string) ([]models.LineItem, error)
}

// Input describes where the checkout items come from. BuyNow bypasses the
// persisted cart and uses Item alone.
type Input struct {
	UserID string
	BuyNow bool
	Item   *models.LineItem
}

// Aggregator produces the finite, non-empty item list for a session.
type Aggregator struct {
	source Source
	log    *slog.Logger
}

// New creates an Aggregator reading persisted carts from source.
func New(source Source, log *slog.Logger) *Aggregator {
	return &Aggregator{source: source, log: log}
}

// Load resolves the session's line items. A fetch failure or an empty cart
// both surface as errors, never as a silent retry; the caller presents the
// terminal empty-cart state.
func (a *Aggregator) Load(ctx context.Context, in Input) ([]models.LineItem, error) {
	if in.BuyNow {
		return buyNowItems(in.Item)
	}

	items, err := a.source.GetCart(ctx, in.UserID)
	if err != nil {
		a.log.Error("cart fetch failed", "user_id", in.UserID, "error", err)
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	for _, it := range items {
		if it.Quantity < 1 {
			return nil, fmt.Errorf("item %s: %w", it.ProductID, ErrInvalidQuantity)
		}
	}
	return items, nil
}

func buyNowItems(item *models.LineItem) ([]models.LineItem, error) {
	if item == nil || item.ProductID == "" {
		return nil, ErrMissingItem
	}

	it := *item
	if it.Quantity == 0 {
		it.Quantity = 1
	}
	if it.Quantity < 1 {
		return nil, fmt.Errorf("item %s: %w", it.ProductID, ErrInvalidQuantity)
	}
	return []models.LineItem{it}, nil
}
