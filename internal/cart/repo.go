package cart

import (
	"context"

	"github.com/aarvika/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository encapsulates cart line persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Upsert inserts a cart line or, when the same user/product/size/color line
// already exists, folds the incoming quantity into it.
func (r *Repository) Upsert(ctx context.Context, item models.CartItem) error {
	if item.UserID == uuid.Nil || item.ProductID == uuid.Nil {
		return gorm.ErrInvalidValue
	}

	return r.db.WithContext(ctx).
		Exec(`INSERT INTO cart_items (user_id, product_id, size, color, quantity, unit_price)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, product_id, size, color)
DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, unit_price = EXCLUDED.unit_price, updated_at = now()`,
			item.UserID, item.ProductID, item.Size, item.Color, item.Quantity, item.UnitPrice).
		Error
}

// ListByUser returns the user's cart lines, oldest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindLine loads a single line scoped to the owning user.
func (r *Repository) FindLine(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateQuantity overwrites the quantity on an existing line.
func (r *Repository) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND user_id = ?", itemID, userID).
		Update("quantity", quantity).Error
}

// RemoveLine deletes a single line scoped to the owning user.
func (r *Repository) RemoveLine(ctx context.Context, userID, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		Delete(&models.CartItem{}).Error
}

// ClearByUser drops every line in the user's cart.
func (r *Repository) ClearByUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
}
