package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/giftnest/checkout-service/internal/cart"
	"github.com/giftnest/checkout-service/internal/checkout"
	"github.com/giftnest/checkout-service/internal/coupon"
	"github.com/giftnest/checkout-service/internal/models"
)

// CheckoutHandler exposes the checkout workflow over HTTP.
type CheckoutHandler struct {
	workflow *checkout.Workflow
	hints    *coupon.Hints
	log      *slog.Logger
}

// NewCheckoutHandler creates a new checkout handler. hints may be nil when no
// hint lists are configured.
func NewCheckoutHandler(workflow *checkout.Workflow, hints *coupon.Hints, log *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		workflow: workflow,
		hints:    hints,
		log:      log,
	}
}

type startCheckoutRequest struct {
	UserID string           `json:"userId"`
	Name   string           `json:"name"`
	Email  string           `json:"email"`
	BuyNow bool             `json:"buyNow"`
	Item   *models.LineItem `json:"item,omitempty"`
}

// StartCheckout handles POST /api/checkout
func (h *CheckoutHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	var req startCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error("failed to decode checkout request", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}

	s, err := h.workflow.Start(r.Context(), checkout.StartInput{
		User:   models.User{ID: req.UserID, Name: req.Name, Email: req.Email},
		BuyNow: req.BuyNow,
		Item:   req.Item,
	})
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, h.workflow.View(s), h.log)
}

// GetSession handles GET /api/checkout/{sessionId}
func (h *CheckoutHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, h.workflow.View(s), h.log)
}

// SetAddress handles POST /api/checkout/{sessionId}/address
func (h *CheckoutHandler) SetAddress(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var addr models.ShippingAddress
	if err := json.NewDecoder(r.Body).Decode(&addr); err != nil {
		h.log.Error("failed to decode address", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}

	if _, err := h.workflow.SetAddress(s, addr); err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.workflow.View(s), h.log)
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

// ApplyCoupon handles POST /api/checkout/{sessionId}/coupon
func (h *CheckoutHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req applyCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		WriteError(w, http.StatusBadRequest, "Coupon code is required", h.log)
		return
	}

	c, totals, err := h.workflow.ApplyCoupon(r.Context(), s, req.Code)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"coupon": c,
		"totals": totals,
	}, h.log)
}

// RemoveCoupon handles DELETE /api/checkout/{sessionId}/coupon
func (h *CheckoutHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	totals, err := h.workflow.RemoveCoupon(s)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"totals": totals}, h.log)
}

// CouponHints handles GET /api/checkout/{sessionId}/coupon/hints. The flags
// are advisory; a code that "looks known" still has to pass the backend.
func (h *CheckoutHandler) CouponHints(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	resp := map[string]interface{}{
		"codeLooksKnown":     true,
		"firstOrderEligible": false,
	}
	if h.hints != nil {
		if code := r.URL.Query().Get("code"); code != "" {
			resp["codeLooksKnown"] = h.hints.LooksKnown(code)
		}
		first, err := h.hints.FirstOrder(r.Context(), s.User.ID)
		if err != nil {
			h.log.Warn("first order check failed", "user_id", s.User.ID, "error", err)
		} else {
			resp["firstOrderEligible"] = first
		}
	}
	WriteJSON(w, http.StatusOK, resp, h.log)
}

type submitRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

// Submit handles POST /api/checkout/{sessionId}/submit
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}

	res, err := h.workflow.Submit(r.Context(), s, req.PaymentMethod)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res, h.log)
}

// PaymentCallback handles POST /api/checkout/{sessionId}/payment, the payment
// widget's outcome report.
func (h *CheckoutHandler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var outcome checkout.PaymentOutcome
	if err := json.NewDecoder(r.Body).Decode(&outcome); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}
	switch outcome.Status {
	case checkout.OutcomeSuccess, checkout.OutcomeCancelled, checkout.OutcomeFailed:
	default:
		WriteError(w, http.StatusBadRequest, "Unknown payment status", h.log)
		return
	}

	res, err := h.workflow.CompletePayment(r.Context(), s, outcome)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res, h.log)
}

// session resolves the {sessionId} route parameter, writing a 404 when the
// session does not exist.
func (h *CheckoutHandler) session(w http.ResponseWriter, r *http.Request) (*checkout.Session, bool) {
	id := chi.URLParam(r, "sessionId")
	s, err := h.workflow.Session(id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Checkout session not found", h.log)
		return nil, false
	}
	return s, true
}

// writeWorkflowError maps workflow errors onto HTTP statuses. Upstream
// transport failures come through as 502 so callers can distinguish a broken
// backend from a bad request.
func (h *CheckoutHandler) writeWorkflowError(w http.ResponseWriter, err error) {
	var (
		invalidAddr   *checkout.InvalidAddressError
		rejection     *coupon.Rejection
		paymentFailed *checkout.PaymentFailedError
		postPayment   *checkout.PostPaymentError
	)

	switch {
	case errors.As(err, &invalidAddr):
		WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":       "Invalid shipping address",
			"fieldErrors": invalidAddr.Result.FieldErrors,
			"firstError":  invalidAddr.Result.First,
		}, h.log)

	case errors.As(err, &rejection):
		WriteJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error": rejection.Message,
		}, h.log)

	case errors.As(err, &paymentFailed):
		WriteJSON(w, http.StatusPaymentRequired, map[string]interface{}{
			"error":  "Payment failed",
			"reason": paymentFailed.Reason,
		}, h.log)

	case errors.As(err, &postPayment):
		WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":          "Your payment was received but the order could not be recorded. Please contact support.",
			"paymentId":      postPayment.PaymentID,
			"contactSupport": true,
		}, h.log)

	case errors.Is(err, checkout.ErrSessionNotFound):
		WriteError(w, http.StatusNotFound, "Checkout session not found", h.log)
	case errors.Is(err, checkout.ErrUserRequired):
		WriteError(w, http.StatusBadRequest, "A user identity is required", h.log)
	case errors.Is(err, checkout.ErrAddressRequired):
		WriteError(w, http.StatusBadRequest, "Shipping address is required", h.log)
	case errors.Is(err, checkout.ErrUnknownMethod):
		WriteError(w, http.StatusBadRequest, "Unknown payment method", h.log)
	case errors.Is(err, cart.ErrEmptyCart):
		WriteError(w, http.StatusConflict, "Your cart is empty", h.log)
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, cart.ErrMissingItem):
		WriteError(w, http.StatusBadRequest, "Invalid cart item", h.log)
	case errors.Is(err, checkout.ErrBusy), errors.Is(err, coupon.ErrApplyInFlight):
		WriteError(w, http.StatusConflict, "Another operation is in progress", h.log)
	case errors.Is(err, checkout.ErrAlreadyPlaced):
		WriteError(w, http.StatusConflict, "Order already placed", h.log)
	case errors.Is(err, checkout.ErrNotAwaitingPayment):
		WriteError(w, http.StatusConflict, "No payment awaiting completion", h.log)
	case errors.Is(err, checkout.ErrPaymentUnresolved):
		WriteError(w, http.StatusConflict, "A captured payment is pending reconciliation; please contact support", h.log)

	default:
		h.log.Error("checkout request failed", "error", err)
		WriteError(w, http.StatusBadGateway, "Store backend is unavailable. Please try again.", h.log)
	}
}
