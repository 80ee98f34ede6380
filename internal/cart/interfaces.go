package cart

import (
	"context"
	"time"

	"github.com/aarvika/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
)

// CartRepository is the persistence surface the service depends on.
type CartRepository interface {
	Upsert(ctx context.Context, item models.CartItem) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	FindLine(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error
	RemoveLine(ctx context.Context, userID, itemID uuid.UUID) error
	ClearByUser(ctx context.Context, userID uuid.UUID) error
}

// MutationGuard serializes concurrent mutations per user via short-lived
// Redis locks.
type MutationGuard interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	InflightKey(scope, id string) string
}

// MutationCounter receives a tick per successful cart mutation.
type MutationCounter interface {
	IncCartMutation(kind string)
}
