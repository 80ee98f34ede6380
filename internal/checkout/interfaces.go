package checkout

import (
	"context"
	"time"

	"github.com/aarvika/storefront-backend/internal/cart"
	"github.com/aarvika/storefront-backend/pkg/mailer"
	"github.com/aarvika/storefront-backend/pkg/razorpay"
	"github.com/google/uuid"
)

// StateStore is the snapshot surface checkout persists its position in.
type StateStore interface {
	Save(ctx context.Context, scope, key string, value any)
	Load(ctx context.Context, scope, key string, maxAge time.Duration, dest any) bool
	Remove(ctx context.Context, scope, key string)
}

// CartAccess is the slice of the cart service checkout needs.
type CartAccess interface {
	List(ctx context.Context, userID uuid.UUID) (cart.CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// Gateway is the payment surface, satisfied by the Razorpay client.
type Gateway interface {
	CreateOrder(ctx context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
}

// Mailer sends the post-payment confirmation. Failures are logged, never
// surfaced to the shopper.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, msg mailer.OrderConfirmation) error
}

// OutcomeCounter records terminal checkout outcomes.
type OutcomeCounter interface {
	IncCheckoutOutcome(outcome string)
}

// MutationGuard serializes the payment callback per user so a double submit
// cannot confirm the same order twice.
type MutationGuard interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	InflightKey(scope, id string) string
}
