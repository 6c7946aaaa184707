package models

import "github.com/shopspring/decimal"

// Coupon eligibility bases, as reported by the coupon service.
const (
	BasisFirstOrder    = "FIRST_ORDER"
	BasisCartThreshold = "CART_THRESHOLD"
	BasisGeneric       = "GENERIC"
)

// Coupon is a discount confirmed by the coupon service. The client never
// decides eligibility itself; a Coupon value only exists after the remote
// resolver accepted the code.
type Coupon struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
	Basis    string          `json:"basis"`
}
