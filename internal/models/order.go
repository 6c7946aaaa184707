package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods
const (
	PaymentMethodCOD     = "COD"
	PaymentMethodGateway = "GATEWAY"
)

// Payment statuses
const (
	PaymentStatusPending = "PENDING"
	PaymentStatusPaid    = "PAID"
)

// Order statuses. Checkout only ever writes PENDING; every later transition
// belongs to the store backend and its admin tooling.
const (
	OrderStatusPending    = "PENDING"
	OrderStatusConfirmed  = "CONFIRMED"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipped    = "SHIPPED"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
)

// LineItem is a single priced cart line. Prices are decimal strings on the
// wire, matching what the cart backend serves.
type LineItem struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	Image     string          `json:"image,omitempty"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// OrderTotals is the money breakdown for a checkout session. Total is
// clamped at zero and never negative.
type OrderTotals struct {
	Subtotal decimal.Decimal `json:"subTotal"`
	Discount decimal.Decimal `json:"discountAmount"`
	Total    decimal.Decimal `json:"totalAmount"`
}

// GatewayPayment identifies a captured payment with the external gateway.
// Present on an order exactly when PaymentMethod is GATEWAY.
type GatewayPayment struct {
	GatewayOrderID string `json:"gatewayOrderId"`
	PaymentID      string `json:"paymentId"`
	Signature      string `json:"signature"`
}

// Order is the record handed to the order service at submission time. It is
// created once per checkout session and never resubmitted automatically.
type Order struct {
	OrderID         string          `json:"orderId"`
	UserID          string          `json:"userId"`
	Items           []LineItem      `json:"orderItems"`
	Totals          OrderTotals     `json:"totals"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentStatus   string          `json:"paymentStatus"`
	OrderStatus     string          `json:"orderStatus"`
	Payment         *GatewayPayment `json:"paymentDetails,omitempty"`
	CouponCode      string          `json:"couponCode,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`

	// Backend-managed fulfilment fields, read-only on this side.
	TrackingID  string     `json:"trackingId,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
}

// NewCODOrder builds a cash-on-delivery order awaiting payment at the door.
func NewCODOrder(orderID, userID string, items []LineItem, totals OrderTotals, addr ShippingAddress, couponCode string, now time.Time) *Order {
	return &Order{
		OrderID:         orderID,
		UserID:          userID,
		Items:           items,
		Totals:          totals,
		ShippingAddress: addr,
		PaymentMethod:   PaymentMethodCOD,
		PaymentStatus:   PaymentStatusPending,
		OrderStatus:     OrderStatusPending,
		CouponCode:      couponCode,
		CreatedAt:       now,
	}
}

// NewGatewayOrder builds an order whose payment was already captured by the
// gateway; the payment proof is mandatory on this branch.
func NewGatewayOrder(orderID, userID string, items []LineItem, totals OrderTotals, addr ShippingAddress, couponCode string, payment GatewayPayment, now time.Time) *Order {
	return &Order{
		OrderID:         orderID,
		UserID:          userID,
		Items:           items,
		Totals:          totals,
		ShippingAddress: addr,
		PaymentMethod:   PaymentMethodGateway,
		PaymentStatus:   PaymentStatusPaid,
		OrderStatus:     OrderStatusPending,
		Payment:         &payment,
		CouponCode:      couponCode,
		CreatedAt:       now,
	}
}
