package enums

import "fmt"

// CheckoutStep is the linear stage a buyer has reached in checkout.
type CheckoutStep int

const (
	CheckoutStepShipping CheckoutStep = 1
	CheckoutStepPayment  CheckoutStep = 2
	CheckoutStepSuccess  CheckoutStep = 3
)

// String implements fmt.Stringer.
func (s CheckoutStep) String() string {
	switch s {
	case CheckoutStepShipping:
		return "shipping"
	case CheckoutStepPayment:
		return "payment"
	case CheckoutStepSuccess:
		return "success"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// IsValid reports whether the value is a known CheckoutStep.
func (s CheckoutStep) IsValid() bool {
	return s >= CheckoutStepShipping && s <= CheckoutStepSuccess
}

// ParseCheckoutStep converts raw input into a CheckoutStep.
func ParseCheckoutStep(value int) (CheckoutStep, error) {
	step := CheckoutStep(value)
	if !step.IsValid() {
		return 0, fmt.Errorf("invalid checkout step %d", value)
	}
	return step, nil
}
