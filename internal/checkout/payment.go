package checkout

import (
	"context"

	"github.com/giftnest/checkout-service/internal/backend"
)

// Outcome statuses reported by the payment widget boundary.
const (
	OutcomeSuccess   OutcomeStatus = "success"
	OutcomeCancelled OutcomeStatus = "cancelled"
	OutcomeFailed    OutcomeStatus = "failed"
)

type OutcomeStatus string

// PaymentOutcome is the widget's terminal report for one payment attempt.
// PaymentID and Signature are set only on success; Reason only on failure.
type PaymentOutcome struct {
	Status    OutcomeStatus `json:"status"`
	PaymentID string        `json:"paymentId,omitempty"`
	Signature string        `json:"signature,omitempty"`
	Reason    string        `json:"reason,omitempty"`
}

// PaymentCollector drives the external payment widget for a gateway order
// and resolves with the user's outcome. Its resolution is the only
// asynchronous re-entry point into the dispatcher state machine.
type PaymentCollector interface {
	Collect(ctx context.Context, order backend.GatewayOrder) (PaymentOutcome, error)
}
