package checkout

import (
	"github.com/aarvika/storefront-backend/pkg/enums"
	"github.com/google/uuid"
)

// ShippingInput is the step-1 address form. Validation mirrors what the
// storefront form enforces client-side.
type ShippingInput struct {
	Name     string  `json:"name" validate:"required,min=2"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    string  `json:"phone" validate:"required,min=10,max=15"`
	Line1    string  `json:"line1" validate:"required"`
	Line2    *string `json:"line2,omitempty"`
	City     string  `json:"city" validate:"required"`
	State    string  `json:"state" validate:"required"`
	Postcode string  `json:"postcode" validate:"required,len=6,numeric"`
	Notes    *string `json:"notes,omitempty"`
}

// PaymentIntentDTO hands the client what it needs to open the payment widget.
type PaymentIntentDTO struct {
	OrderID        uuid.UUID `json:"order_id"`
	GatewayOrderID string    `json:"gateway_order_id"`
	GatewayKeyID   string    `json:"gateway_key_id"`
	AmountPaise    int64     `json:"amount_paise"`
	Currency       string    `json:"currency"`
	TotalFormatted string    `json:"total_formatted"`
}

// CompletePaymentInput is the gateway callback payload posted by the client.
// The widget hands back only the gateway identifiers; the pending order is
// resolved server-side from the gateway order id.
type CompletePaymentInput struct {
	GatewayOrderID   string `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}

// StateDTO is the resumable checkout position. ReturnToCart tells the client
// to bounce back to the cart page: it is set only when the cart is empty and
// no order was just placed, so a fresh post-payment success page is never
// redirected away from.
type StateDTO struct {
	Step              enums.CheckoutStep `json:"step"`
	Shipping          *ShippingInput     `json:"shipping,omitempty"`
	OrderPlaced       bool               `json:"order_placed"`
	CheckoutCompleted bool               `json:"checkout_completed"`
	ReturnToCart      bool               `json:"return_to_cart"`
}
