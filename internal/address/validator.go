// Package address validates the shipping address form. Validation is pure
// and synchronous; it runs again before every submission attempt and nothing
// here ever touches the network.
package address

import (
	"reflect"
	"regexp"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/giftnest/checkout-service/internal/models"
)

var (
	phonePattern   = regexp.MustCompile(`^[6-9]\d{9}$`)
	pincodePattern = regexp.MustCompile(`^\d{6}$`)
)

// formOrder lists validated fields in the order they appear on the form;
// the first invalid one gets focus priority in the UI.
var formOrder = []string{"fullName", "phone", "addressLine1", "city", "state", "pincode"}

// messages maps field.tag to the user-facing error text shown inline.
var messages = map[string]string{
	"fullName.notblank":     "Full name is required",
	"phone.required":        "Phone number is required",
	"phone.phone10":         "Please enter a valid 10-digit Indian phone number",
	"addressLine1.notblank": "Address is required",
	"city.notblank":         "City is required",
	"state.notblank":        "State is required",
	"pincode.required":      "Pincode is required",
	"pincode.pincode6":      "Please enter a valid 6-digit pincode",
}

// Result is the outcome of validating a shipping address. FieldErrors is
// keyed by JSON field name; First names the earliest invalid field in form
// order.
type Result struct {
	Valid       bool              `json:"valid"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	First       string            `json:"first,omitempty"`
}

// Validator checks shipping addresses against the storefront's form rules.
type Validator struct {
	v *validatorv10.Validate
}

// New returns a Validator with the custom phone/pincode rules registered.
func New() *Validator {
	v := validatorv10.New()

	// report errors under the JSON field names the form uses
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// must be registered before first use; panics only on programmer error
	_ = v.RegisterValidation("notblank", func(fl validatorv10.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("phone10", func(fl validatorv10.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("pincode6", func(fl validatorv10.FieldLevel) bool {
		return pincodePattern.MatchString(fl.Field().String())
	})

	return &Validator{v: v}
}

// Validate checks addr and reports every failing field with its inline
// message. AddressLine2 and Country are never validated.
func (a *Validator) Validate(addr models.ShippingAddress) Result {
	err := a.v.Struct(addr)
	if err == nil {
		return Result{Valid: true}
	}

	fieldErrors := map[string]string{}
	ve, ok := err.(validatorv10.ValidationErrors)
	if !ok {
		// InvalidValidationError cannot happen for a struct argument
		return Result{Valid: false, FieldErrors: map[string]string{"address": err.Error()}}
	}

	for _, fe := range ve {
		key := fe.Field() + "." + fe.Tag()
		msg, found := messages[key]
		if !found {
			msg = "Invalid value"
		}
		fieldErrors[fe.Field()] = msg
	}

	first := ""
	for _, f := range formOrder {
		if _, bad := fieldErrors[f]; bad {
			first = f
			break
		}
	}

	return Result{Valid: false, FieldErrors: fieldErrors, First: first}
}
