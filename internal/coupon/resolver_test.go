package coupon

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/giftnest/checkout-service/internal/backend"
	"github.com/giftnest/checkout-service/internal/models"
	"github.com/giftnest/checkout-service/pkg/logger"
)

type fakeApplier struct {
	result *backend.ApplyCouponResult
	err    error
	calls  int32

	// when set, ApplyCoupon blocks until released is closed
	started  chan struct{}
	released chan struct{}
}

func (f *fakeApplier) ApplyCoupon(ctx context.Context, userID string, cartTotal decimal.Decimal, code string) (*backend.ApplyCouponResult, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.started != nil {
		f.started <- struct{}{}
		<-f.released
	}
	return f.result, f.err
}

func TestResolver_Apply(t *testing.T) {
	log := logger.New("error")
	subtotal := decimal.NewFromInt(250)

	t.Run("accepted coupon", func(t *testing.T) {
		applier := &fakeApplier{result: &backend.ApplyCouponResult{
			Accepted: true,
			Discount: decimal.NewFromInt(25),
			Basis:    models.BasisCartThreshold,
		}}
		r := NewResolver(applier, log)

		c, err := r.Apply(context.Background(), "u1", subtotal, "SAVE25")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Code != "SAVE25" {
			t.Errorf("code = %q, want SAVE25", c.Code)
		}
		if !c.Discount.Equal(decimal.NewFromInt(25)) {
			t.Errorf("discount = %s, want 25", c.Discount)
		}
		if c.Basis != models.BasisCartThreshold {
			t.Errorf("basis = %q, want %q", c.Basis, models.BasisCartThreshold)
		}
	})

	t.Run("missing basis defaults to generic", func(t *testing.T) {
		applier := &fakeApplier{result: &backend.ApplyCouponResult{
			Accepted: true,
			Discount: decimal.NewFromInt(10),
		}}
		r := NewResolver(applier, log)

		c, err := r.Apply(context.Background(), "u1", subtotal, "TENOFF")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Basis != models.BasisGeneric {
			t.Errorf("basis = %q, want %q", c.Basis, models.BasisGeneric)
		}
	})

	t.Run("rejected coupon", func(t *testing.T) {
		applier := &fakeApplier{result: &backend.ApplyCouponResult{
			Accepted: false,
			Message:  "coupon only valid on your first order",
		}}
		r := NewResolver(applier, log)

		_, err := r.Apply(context.Background(), "u1", subtotal, "FIRST50")

		var rej *Rejection
		if !errors.As(err, &rej) {
			t.Fatalf("error = %v, want *Rejection", err)
		}
		if rej.Message != "coupon only valid on your first order" {
			t.Errorf("message = %q", rej.Message)
		}
	})

	t.Run("network failure is not a rejection", func(t *testing.T) {
		applier := &fakeApplier{err: errors.New("connection refused")}
		r := NewResolver(applier, log)

		_, err := r.Apply(context.Background(), "u1", subtotal, "SAVE25")
		if err == nil {
			t.Fatal("expected error")
		}
		var rej *Rejection
		if errors.As(err, &rej) {
			t.Fatal("network failure must not look like a coupon rejection")
		}
	})
}

func TestResolver_SingleInFlight(t *testing.T) {
	applier := &fakeApplier{
		result:   &backend.ApplyCouponResult{Accepted: true, Discount: decimal.NewFromInt(5)},
		started:  make(chan struct{}, 1),
		released: make(chan struct{}),
	}
	r := NewResolver(applier, logger.New("error"))
	subtotal := decimal.NewFromInt(100)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := r.Apply(context.Background(), "u1", subtotal, "SAVE5"); err != nil {
			t.Errorf("first apply failed: %v", err)
		}
	}()

	// wait until the first request is inside the backend call
	<-applier.started

	if _, err := r.Apply(context.Background(), "u1", subtotal, "SAVE5"); !errors.Is(err, ErrApplyInFlight) {
		t.Errorf("second apply error = %v, want ErrApplyInFlight", err)
	}

	close(applier.released)
	wg.Wait()

	if n := atomic.LoadInt32(&applier.calls); n != 1 {
		t.Errorf("backend called %d times, want exactly 1", n)
	}

	// the guard clears once the first application finishes
	if _, err := r.Apply(context.Background(), "u1", subtotal, "SAVE5"); err != nil {
		t.Errorf("follow-up apply failed: %v", err)
	}
}
