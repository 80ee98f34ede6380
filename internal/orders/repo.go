package orders

import (
	"context"

	"github.com/aarvika/storefront-backend/pkg/db/models"
	"github.com/aarvika/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository encapsulates order persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an orders repo bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists the order and its snapshotted lines in one transaction.
func (r *Repository) Create(ctx context.Context, order *models.Order, items []models.OrderItem) (*models.Order, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// FindByIDAndUser loads an order scoped to its owner.
func (r *Repository) FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByGatewayOrderID resolves the order a payment callback refers to.
func (r *Repository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Where("gateway_order_id = ?", gatewayOrderID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByUser returns the user's orders, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var records []models.Order
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ListItems loads the snapshotted lines for one order.
func (r *Repository) ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// SetGatewayOrder attaches the gateway order reference to a pending order.
func (r *Repository) SetGatewayOrder(ctx context.Context, id uuid.UUID, gatewayOrderID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("gateway_order_id", gatewayOrderID).Error
}

// MarkPaid confirms the order after a verified payment callback.
func (r *Repository) MarkPaid(ctx context.Context, id uuid.UUID, gatewayPaymentID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":             enums.OrderStatusConfirmed,
			"payment_status":     enums.PaymentStatusPaid,
			"gateway_payment_id": gatewayPaymentID,
		}).Error
}

// MarkPaymentFailed records a failed collection attempt without cancelling.
func (r *Repository) MarkPaymentFailed(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("payment_status", enums.PaymentStatusFailed).Error
}

// Cancel abandons a pending order.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPending).
		Update("status", enums.OrderStatusCancelled).Error
}
