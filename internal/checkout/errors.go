package checkout

import (
	"errors"
	"fmt"

	"github.com/giftnest/checkout-service/internal/address"
)

var (
	ErrSessionNotFound    = errors.New("checkout session not found")
	ErrUserRequired       = errors.New("a user identity is required to check out")
	ErrAddressRequired    = errors.New("shipping address is required")
	ErrBusy               = errors.New("another checkout operation is in progress")
	ErrAlreadyPlaced      = errors.New("order already placed")
	ErrNotAwaitingPayment = errors.New("no payment awaiting completion")
	ErrUnknownMethod      = errors.New("unknown payment method")

	// ErrPaymentUnresolved blocks further submissions once a captured
	// payment failed to produce an order record; support has to reconcile.
	ErrPaymentUnresolved = errors.New("a captured payment is pending reconciliation; contact support")
)

// InvalidAddressError blocks a submission before any network call happens.
type InvalidAddressError struct {
	Result address.Result
}

func (e *InvalidAddressError) Error() string {
	return "shipping address is invalid"
}

// PaymentFailedError surfaces a gateway-reported payment failure for one
// attempt; the session is back at Idle and resubmittable.
type PaymentFailedError struct {
	Reason string
}

func (e *PaymentFailedError) Error() string {
	if e.Reason == "" {
		return "payment failed"
	}
	return "payment failed: " + e.Reason
}

// PostPaymentError is the severest failure: the gateway captured the payment
// but the order record could not be persisted. It always carries the payment
// reference so the user can contact support.
type PostPaymentError struct {
	PaymentID string
	Err       error
}

func (e *PostPaymentError) Error() string {
	return fmt.Sprintf("payment %s captured but order not recorded: %v", e.PaymentID, e.Err)
}

func (e *PostPaymentError) Unwrap() error { return e.Err }
