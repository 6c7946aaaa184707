package models

// ShippingAddress is the structured delivery address collected at checkout.
// The validate tags are consumed by internal/address; Country is fixed and
// display-only, AddressLine2 is optional.
type ShippingAddress struct {
	FullName     string `json:"fullName" validate:"notblank"`
	Phone        string `json:"phone" validate:"required,phone10"`
	AddressLine1 string `json:"addressLine1" validate:"notblank"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city" validate:"notblank"`
	State        string `json:"state" validate:"notblank"`
	Pincode      string `json:"pincode" validate:"required,pincode6"`
	Country      string `json:"country"`
}

// DefaultCountry is the only country the storefront ships to.
const DefaultCountry = "India"
