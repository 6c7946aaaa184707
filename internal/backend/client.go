// Package backend is the single client for the store backend that owns
// carts, coupon eligibility, order persistence and payment-gateway orders.
// The checkout workflow consumes these endpoints and never reimplements
// their decisions locally.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/giftnest/checkout-service/internal/models"
)

// ErrRejected reports a request the backend understood but refused, with
// its message attached by the caller-facing wrapper.
var ErrRejected = errors.New("rejected by backend")

// Client talks to the store backend over REST.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// NewClient creates a backend client. baseURL must not end with a slash.
func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// GetCart fetches the persisted cart for a user.
// GET /getcart/{userId}
func (c *Client) GetCart(ctx context.Context, userID string) ([]models.LineItem, error) {
	var resp struct {
		Success bool              `json:"success"`
		Cart    []models.LineItem `json:"cart"`
	}
	if err := c.getJSON(ctx, "/getcart/"+url.PathEscape(userID), &resp); err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return resp.Cart, nil
}

// CheckFirstOrder reports whether the user has never ordered before. The
// flag is advisory display data only.
// GET /check-first-order/{userId}
func (c *Client) CheckFirstOrder(ctx context.Context, userID string) (bool, error) {
	var resp struct {
		IsFirstOrder bool `json:"isFirstOrder"`
	}
	if err := c.getJSON(ctx, "/check-first-order/"+url.PathEscape(userID), &resp); err != nil {
		return false, fmt.Errorf("check first order: %w", err)
	}
	return resp.IsFirstOrder, nil
}

// ApplyCouponResult is the coupon service's verdict on a code.
type ApplyCouponResult struct {
	Accepted bool
	Discount decimal.Decimal
	Basis    string
	Message  string
}

// ApplyCoupon asks the coupon service to price a code against the current
// subtotal. A refusal is reported in the result, not as an error; errors
// mean the verdict never arrived.
// POST /apply-coupon
func (c *Client) ApplyCoupon(ctx context.Context, userID string, cartTotal decimal.Decimal, code string) (*ApplyCouponResult, error) {
	req := struct {
		UserID     string          `json:"userId"`
		CartTotal  decimal.Decimal `json:"cartTotal"`
		CouponCode string          `json:"couponCode"`
	}{userID, cartTotal, code}

	var resp struct {
		Success  bool            `json:"success"`
		Discount decimal.Decimal `json:"discount"`
		Basis    string          `json:"basis"`
		Message  string          `json:"message"`
	}
	if err := c.postJSON(ctx, "/apply-coupon", req, &resp); err != nil {
		return nil, fmt.Errorf("apply coupon: %w", err)
	}

	return &ApplyCouponResult{
		Accepted: resp.Success,
		Discount: resp.Discount,
		Basis:    resp.Basis,
		Message:  resp.Message,
	}, nil
}

// GatewayOrder is the short-lived charge intent created by the payment
// gateway; it is what the payment widget is opened with.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // minor currency units
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateGatewayOrder registers a charge intent for amount minor units.
// POST /create-gateway-order
func (c *Client) CreateGatewayOrder(ctx context.Context, amount int64, currency, receipt string) (*GatewayOrder, error) {
	req := struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Receipt  string `json:"receipt"`
	}{amount, currency, receipt}

	var order GatewayOrder
	if err := c.postJSON(ctx, "/create-gateway-order", req, &order); err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("create gateway order: empty order id in response")
	}
	return &order, nil
}

// PlaceOrder persists a finalized order with the order service.
// POST /placeorder
func (c *Client) PlaceOrder(ctx context.Context, order *models.Order) error {
	req := struct {
		UserID          string                 `json:"userId"`
		OrderID         string                 `json:"orderId"`
		OrderItems      []models.LineItem      `json:"orderItems"`
		SubTotal        decimal.Decimal        `json:"subTotal"`
		DiscountAmount  decimal.Decimal        `json:"discountAmount"`
		TotalAmount     decimal.Decimal        `json:"totalAmount"`
		OrderStatus     string                 `json:"orderStatus"`
		PaymentMethod   string                 `json:"paymentMethod"`
		PaymentStatus   string                 `json:"paymentStatus"`
		PaymentDetails  *models.GatewayPayment `json:"paymentDetails,omitempty"`
		ShippingAddress models.ShippingAddress `json:"shippingAddress"`
		CouponDiscount  decimal.Decimal        `json:"couponDiscount"`
		CouponCode      string                 `json:"couponCode,omitempty"`
	}{
		UserID:          order.UserID,
		OrderID:         order.OrderID,
		OrderItems:      order.Items,
		SubTotal:        order.Totals.Subtotal,
		DiscountAmount:  order.Totals.Discount,
		TotalAmount:     order.Totals.Total,
		OrderStatus:     order.OrderStatus,
		PaymentMethod:   order.PaymentMethod,
		PaymentStatus:   order.PaymentStatus,
		PaymentDetails:  order.Payment,
		ShippingAddress: order.ShippingAddress,
		CouponDiscount:  order.Totals.Discount,
		CouponCode:      order.CouponCode,
	}

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := c.postJSON(ctx, "/placeorder", req, &resp); err != nil {
		return fmt.Errorf("place order: %w", err)
	}
	if !resp.Success {
		if resp.Message == "" {
			resp.Message = "order was not accepted"
		}
		return fmt.Errorf("place order: %s: %w", resp.Message, ErrRejected)
	}
	return nil
}

// ClearCart empties the persisted cart after a successful order. Callers
// treat failures as best-effort.
// POST /clearcart/{userId}
func (c *Client) ClearCart(ctx context.Context, userID string) error {
	var resp struct {
		Success bool `json:"success"`
	}
	if err := c.postJSON(ctx, "/clearcart/"+url.PathEscape(userID), nil, &resp); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("clear cart: %w", ErrRejected)
	}
	return nil
}

// PaymentErrorReport records a captured payment whose order failed to
// persist, so support can reconcile it.
type PaymentErrorReport struct {
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
	Error     string `json:"error"`
	UserID    string `json:"userId"`
}

// LogPaymentError reports a post-payment inconsistency. Fire-and-forget
// from the workflow's point of view: a failure here is logged, never shown.
// POST /log-payment-error
func (c *Client) LogPaymentError(ctx context.Context, report PaymentErrorReport) error {
	if err := c.postJSON(ctx, "/log-payment-error", report, nil); err != nil {
		return fmt.Errorf("log payment error: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug("backend call",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// verdict bodies (e.g. coupon refusals) still arrive on 4xx
		if out != nil && resp.StatusCode < 500 {
			if derr := json.NewDecoder(resp.Body).Decode(out); derr == nil {
				return nil
			}
		}
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
