package orders

import (
	"context"

	"github.com/aarvika/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
)

// OrderRepository is the persistence surface the service and checkout flow
// depend on.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order, items []models.OrderItem) (*models.Order, error)
	FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	SetGatewayOrder(ctx context.Context, id uuid.UUID, gatewayOrderID string) error
	MarkPaid(ctx context.Context, id uuid.UUID, gatewayPaymentID string) error
	MarkPaymentFailed(ctx context.Context, id uuid.UUID) error
	Cancel(ctx context.Context, id uuid.UUID) error
}
