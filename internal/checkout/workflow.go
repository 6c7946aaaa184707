// Package checkout orchestrates the storefront's checkout workflow: cart
// aggregation, address validation, coupon resolution, pricing, payment
// dispatch and order submission against the external store backend.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/giftnest/checkout-service/internal/address"
	"github.com/giftnest/checkout-service/internal/backend"
	"github.com/giftnest/checkout-service/internal/cart"
	"github.com/giftnest/checkout-service/internal/coupon"
	"github.com/giftnest/checkout-service/internal/models"
	"github.com/giftnest/checkout-service/internal/pricing"
)

// Backend is the slice of the store backend the workflow consumes.
type Backend interface {
	GetCart(ctx context.Context, userID string) ([]models.LineItem, error)
	ApplyCoupon(ctx context.Context, userID string, cartTotal decimal.Decimal, code string) (*backend.ApplyCouponResult, error)
	CreateGatewayOrder(ctx context.Context, amount int64, currency, receipt string) (*backend.GatewayOrder, error)
	PlaceOrder(ctx context.Context, order *models.Order) error
	ClearCart(ctx context.Context, userID string) error
	LogPaymentError(ctx context.Context, report backend.PaymentErrorReport) error
}

// Workflow runs checkout sessions end to end.
type Workflow struct {
	backend   Backend
	carts     *cart.Aggregator
	validator *address.Validator
	sessions  *Store
	currency  string
	log       *slog.Logger
	nowFunc   func() time.Time
}

// NewWorkflow creates a Workflow talking to the given backend.
func NewWorkflow(b Backend, v *address.Validator, currency string, log *slog.Logger) *Workflow {
	return &Workflow{
		backend:   b,
		carts:     cart.New(b, log),
		validator: v,
		sessions:  NewStore(),
		currency:  currency,
		log:       log,
		nowFunc:   time.Now,
	}
}

// StartInput describes a new checkout: the authenticated user plus either
// their persisted cart (default) or a single buy-now item.
type StartInput struct {
	User   models.User
	BuyNow bool
	Item   *models.LineItem
}

// Start creates a session with a resolved, non-empty item list. An empty or
// unfetchable cart fails here and blocks everything downstream.
func (w *Workflow) Start(ctx context.Context, in StartInput) (*Session, error) {
	if in.User.ID == "" {
		return nil, ErrUserRequired
	}

	items, err := w.carts.Load(ctx, cart.Input{
		UserID: in.User.ID,
		BuyNow: in.BuyNow,
		Item:   in.Item,
	})
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:        uuid.NewString(),
		User:      in.User,
		BuyNow:    in.BuyNow,
		Items:     items,
		OrderID:   "ORD-" + uuid.NewString(),
		CreatedAt: w.nowFunc().UTC(),
		state:     StateIdle,
		resolver:  coupon.NewResolver(w.backend, w.log),
	}
	w.sessions.Put(s)

	w.log.Info("checkout session started",
		"session_id", s.ID,
		"user_id", in.User.ID,
		"buy_now", in.BuyNow,
		"items", len(items),
	)
	return s, nil
}

// EvictStale drops sessions older than maxAge from the store, reclaiming
// memory from placed and abandoned checkouts. Callers run it periodically.
func (w *Workflow) EvictStale(maxAge time.Duration) int {
	return w.sessions.Sweep(w.nowFunc().UTC().Add(-maxAge))
}

// Session returns an active session by ID.
func (w *Workflow) Session(id string) (*Session, error) {
	s, ok := w.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Totals recomputes the session's totals from scratch; nothing is memoized.
func (w *Workflow) Totals(s *Session) models.OrderTotals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalsLocked(s)
}

func totalsLocked(s *Session) models.OrderTotals {
	discount := decimal.Zero
	if s.coupon != nil {
		discount = s.coupon.Discount
	}
	return pricing.ComputeTotals(s.Items, discount)
}

// mutableLocked reports whether the session accepts changes in its current
// state. Callers hold s.mu.
func mutableLocked(s *Session) error {
	switch s.state {
	case StateIdle:
		return nil
	case StateFailed:
		if s.failure != nil && s.failure.ContactSupport {
			return ErrPaymentUnresolved
		}
		return nil
	case StateDone:
		return ErrAlreadyPlaced
	default:
		return ErrBusy
	}
}

// SetAddress validates and stages the shipping address. Validation failures
// never leave the process; the result carries per-field messages in form
// order.
func (w *Workflow) SetAddress(s *Session, addr models.ShippingAddress) (address.Result, error) {
	if addr.Country == "" {
		addr.Country = models.DefaultCountry
	}

	res := w.validator.Validate(addr)
	if !res.Valid {
		return res, &InvalidAddressError{Result: res}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := mutableLocked(s); err != nil {
		return res, err
	}
	s.address = &addr
	return res, nil
}

// ApplyCoupon resolves a coupon code remotely against the current subtotal.
// The session parks in ApplyingCoupon for the duration, so no submission can
// race the outstanding verdict. A new coupon replaces any previous one; a
// rejection leaves the previous coupon untouched.
func (w *Workflow) ApplyCoupon(ctx context.Context, s *Session, code string) (*models.Coupon, models.OrderTotals, error) {
	s.mu.Lock()
	if err := mutableLocked(s); err != nil {
		totals := totalsLocked(s)
		s.mu.Unlock()
		return nil, totals, err
	}
	prev := s.state
	s.state = StateApplyingCoupon
	subtotal := pricing.ComputeTotals(s.Items, decimal.Zero).Subtotal
	s.mu.Unlock()

	c, err := s.resolver.Apply(ctx, s.User.ID, subtotal, code)

	s.mu.Lock()
	if s.state != StateApplyingCoupon {
		// the session moved on without us; the verdict is stale
		totals := totalsLocked(s)
		s.mu.Unlock()
		return nil, totals, ErrBusy
	}
	s.state = prev
	if err != nil {
		totals := totalsLocked(s)
		s.mu.Unlock()
		return nil, totals, err
	}
	s.coupon = c
	totals := totalsLocked(s)
	s.mu.Unlock()
	return c, totals, nil
}

// RemoveCoupon resets the discount to zero and clears any rejection state.
func (w *Workflow) RemoveCoupon(s *Session) (models.OrderTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := mutableLocked(s); err != nil {
		return totalsLocked(s), err
	}
	s.coupon = nil
	return totalsLocked(s), nil
}

// SubmitResult reports where a submission attempt landed. GatewayOrder is
// set only when the session is awaiting the payment widget.
type SubmitResult struct {
	State        State                 `json:"state"`
	OrderID      string                `json:"orderId,omitempty"`
	GatewayOrder *backend.GatewayOrder `json:"gatewayOrder,omitempty"`
}

// Submit drives one checkout attempt. COD goes straight to order
// submission; GATEWAY first registers a charge intent and parks the session
// until the widget reports back through CompletePayment.
func (w *Workflow) Submit(ctx context.Context, s *Session, method string) (*SubmitResult, error) {
	s.mu.Lock()
	if s.address == nil {
		s.mu.Unlock()
		return nil, ErrAddressRequired
	}
	addr := *s.address
	s.mu.Unlock()

	// validation re-runs on every attempt, never cached
	if res := w.validator.Validate(addr); !res.Valid {
		return nil, &InvalidAddressError{Result: res}
	}

	switch method {
	case models.PaymentMethodCOD:
		return w.submitCOD(ctx, s, addr)
	case models.PaymentMethodGateway:
		return w.beginGatewayPayment(ctx, s)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// begin moves an idle (or retryable failed) session into a transient state,
// rejecting concurrent attempts.
func (w *Workflow) begin(s *Session, to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := mutableLocked(s); err != nil {
		return err
	}
	s.state = to
	return nil
}

func (w *Workflow) submitCOD(ctx context.Context, s *Session, addr models.ShippingAddress) (*SubmitResult, error) {
	if err := w.begin(s, StateSubmittingOrder); err != nil {
		return nil, err
	}
	order := w.buildOrder(s, addr, nil)
	return w.placeOrder(ctx, s, order)
}

func (w *Workflow) beginGatewayPayment(ctx context.Context, s *Session) (*SubmitResult, error) {
	if err := w.begin(s, StateRequestingGatewayOrder); err != nil {
		return nil, err
	}

	total := w.Totals(s).Total
	gw, err := w.backend.CreateGatewayOrder(ctx, pricing.MinorUnits(total), w.currency, s.OrderID)
	if err != nil {
		// no order exists yet; the control simply re-enables
		s.toIdle()
		return nil, fmt.Errorf("request gateway order: %w", err)
	}

	s.mu.Lock()
	s.gateway = gw
	s.state = StateAwaitingUserPayment
	s.mu.Unlock()

	w.log.Info("awaiting user payment",
		"session_id", s.ID,
		"gateway_order_id", gw.ID,
		"amount_minor", gw.Amount,
	)
	return &SubmitResult{State: StateAwaitingUserPayment, OrderID: s.OrderID, GatewayOrder: gw}, nil
}

// CompletePayment is the widget's re-entry point. Outcomes arriving in any
// other state (late callbacks, duplicates) are ignored with
// ErrNotAwaitingPayment.
func (w *Workflow) CompletePayment(ctx context.Context, s *Session, outcome PaymentOutcome) (*SubmitResult, error) {
	s.mu.Lock()
	if s.state != StateAwaitingUserPayment {
		s.mu.Unlock()
		return nil, ErrNotAwaitingPayment
	}
	gw := s.gateway
	addr := *s.address

	switch outcome.Status {
	case OutcomeCancelled:
		// widget dismissed: no order was created, the session resubmits freely
		s.state = StateIdle
		s.gateway = nil
		s.mu.Unlock()
		return &SubmitResult{State: StateIdle}, nil

	case OutcomeFailed:
		s.state = StateIdle
		s.gateway = nil
		s.failure = &Failure{Message: outcome.Reason}
		s.mu.Unlock()
		return nil, &PaymentFailedError{Reason: outcome.Reason}

	case OutcomeSuccess:
		s.state = StateSubmittingOrder
		s.mu.Unlock()

	default:
		s.mu.Unlock()
		return nil, fmt.Errorf("unknown payment outcome %q", outcome.Status)
	}

	pay := &models.GatewayPayment{
		GatewayOrderID: gw.ID,
		PaymentID:      outcome.PaymentID,
		Signature:      outcome.Signature,
	}
	order := w.buildOrder(s, addr, pay)
	return w.placeOrder(ctx, s, order)
}

// PayWithGateway runs the gateway path against an in-process collector:
// begin, drive the widget, complete. A collector transport error counts as a
// dismissal; no order is created.
func (w *Workflow) PayWithGateway(ctx context.Context, s *Session, collector PaymentCollector) (*SubmitResult, error) {
	res, err := w.Submit(ctx, s, models.PaymentMethodGateway)
	if err != nil {
		return nil, err
	}

	outcome, err := collector.Collect(ctx, *res.GatewayOrder)
	if err != nil {
		_, _ = w.CompletePayment(ctx, s, PaymentOutcome{Status: OutcomeCancelled})
		return nil, fmt.Errorf("collect payment: %w", err)
	}
	return w.CompletePayment(ctx, s, outcome)
}

func (w *Workflow) buildOrder(s *Session, addr models.ShippingAddress, pay *models.GatewayPayment) *models.Order {
	s.mu.Lock()
	items := s.Items
	totals := totalsLocked(s)
	couponCode := ""
	if s.coupon != nil {
		couponCode = s.coupon.Code
	}
	s.mu.Unlock()

	now := w.nowFunc().UTC()
	if pay != nil {
		return models.NewGatewayOrder(s.OrderID, s.User.ID, items, totals, addr, couponCode, *pay, now)
	}
	return models.NewCODOrder(s.OrderID, s.User.ID, items, totals, addr, couponCode, now)
}

// placeOrder hands the finalized order to the order service and settles the
// session. Failures after a captured payment are never swallowed: the
// payment reference survives on the session and goes to the error log
// endpoint best-effort.
func (w *Workflow) placeOrder(ctx context.Context, s *Session, order *models.Order) (*SubmitResult, error) {
	if err := w.backend.PlaceOrder(ctx, order); err != nil {
		if order.PaymentStatus == models.PaymentStatusPaid {
			return nil, w.handlePostPaymentFailure(ctx, s, order, err)
		}

		w.log.Error("order submission failed", "order_id", order.OrderID, "error", err)
		s.fail(Failure{Message: "Failed to place order. Please try again."})
		return nil, fmt.Errorf("submit order: %w", err)
	}

	// best-effort: a failed clear must not block the confirmation
	if !s.BuyNow {
		if cerr := w.backend.ClearCart(ctx, s.User.ID); cerr != nil {
			w.log.Warn("cart clear failed", "user_id", s.User.ID, "error", cerr)
		}
	}

	s.complete()
	w.log.Info("order placed",
		"order_id", order.OrderID,
		"payment_method", order.PaymentMethod,
		"total", order.Totals.Total,
	)
	return &SubmitResult{State: StateDone, OrderID: order.OrderID}, nil
}

func (w *Workflow) handlePostPaymentFailure(ctx context.Context, s *Session, order *models.Order, cause error) error {
	paymentID := order.Payment.PaymentID
	w.log.Error("order submission failed after captured payment",
		"order_id", order.OrderID,
		"payment_id", paymentID,
		"error", cause,
	)

	report := backend.PaymentErrorReport{
		PaymentID: paymentID,
		OrderID:   order.OrderID,
		Error:     cause.Error(),
		UserID:    s.User.ID,
	}
	if lerr := w.backend.LogPaymentError(ctx, report); lerr != nil {
		w.log.Warn("payment error report failed", "order_id", order.OrderID, "error", lerr)
	}

	s.fail(Failure{
		Message: fmt.Sprintf("Your payment was received but the order could not be recorded. "+
			"Please contact support with payment reference %s.", paymentID),
		PaymentID:      paymentID,
		ContactSupport: true,
	})
	return &PostPaymentError{PaymentID: paymentID, Err: cause}
}

// View is a serializable snapshot of a session for the HTTP facade.
type View struct {
	SessionID string                `json:"sessionId"`
	State     State                 `json:"state"`
	OrderID   string                `json:"orderId"`
	BuyNow    bool                  `json:"buyNow,omitempty"`
	Items     []models.LineItem     `json:"items"`
	Coupon    *models.Coupon        `json:"coupon,omitempty"`
	Totals    models.OrderTotals    `json:"totals"`
	Failure   *Failure              `json:"failure,omitempty"`
	Gateway   *backend.GatewayOrder `json:"gatewayOrder,omitempty"`
}

// View snapshots the session under its lock.
func (w *Workflow) View(s *Session) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		SessionID: s.ID,
		State:     s.state,
		OrderID:   s.OrderID,
		BuyNow:    s.BuyNow,
		Items:     s.Items,
		Coupon:    s.coupon,
		Totals:    totalsLocked(s),
		Failure:   s.failure,
		Gateway:   s.gateway,
	}
}
