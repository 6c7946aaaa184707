// Package coupon applies coupon codes through the remote coupon service and
// serves advisory eligibility hints. Eligibility rules (first order, cart
// thresholds) live entirely on the backend; a discount only ever exists here
// after a confirmed resolver response.
package coupon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/giftnest/checkout-service/internal/backend"
	"github.com/giftnest/checkout-service/internal/models"
)

// ErrApplyInFlight rejects a second application while one is outstanding.
// Repeat submissions are refused, not queued.
var ErrApplyInFlight = errors.New("coupon application already in progress")

// Rejection is the coupon service's refusal of a code. Non-fatal: the user
// may retry with another code or proceed without one.
type Rejection struct {
	Message string
}

func (r *Rejection) Error() string {
	if r.Message == "" {
		return "coupon code is not valid"
	}
	return r.Message
}

// Applier performs the remote coupon application.
type Applier interface {
	ApplyCoupon(ctx context.Context, userID string, cartTotal decimal.Decimal, code string) (*backend.ApplyCouponResult, error)
}

// Resolver applies coupon codes for a single checkout session, allowing at
// most one in-flight application at a time.
type Resolver struct {
	applier Applier
	log     *slog.Logger

	mu       sync.Mutex
	inFlight bool
}

// NewResolver creates a per-session Resolver.
func NewResolver(applier Applier, log *slog.Logger) *Resolver {
	return &Resolver{applier: applier, log: log}
}

// Apply submits code against the current subtotal and returns the confirmed
// coupon, a *Rejection for a refused code, or ErrApplyInFlight when another
// application is still outstanding. Exactly one backend call happens per
// accepted invocation.
func (r *Resolver) Apply(ctx context.Context, userID string, subtotal decimal.Decimal, code string) (*models.Coupon, error) {
	r.mu.Lock()
	if r.inFlight {
		r.mu.Unlock()
		return nil, ErrApplyInFlight
	}
	r.inFlight = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inFlight = false
		r.mu.Unlock()
	}()

	res, err := r.applier.ApplyCoupon(ctx, userID, subtotal, code)
	if err != nil {
		return nil, fmt.Errorf("resolve coupon %q: %w", code, err)
	}
	if !res.Accepted {
		r.log.Info("coupon rejected", "code", code, "message", res.Message)
		return nil, &Rejection{Message: res.Message}
	}

	basis := res.Basis
	if basis == "" {
		// older backends omit the basis field
		basis = models.BasisGeneric
	}

	r.log.Info("coupon applied", "code", code, "discount", res.Discount, "basis", basis)
	return &models.Coupon{Code: code, Discount: res.Discount, Basis: basis}, nil
}
