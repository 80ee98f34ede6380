package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one line of a customer's cart. Lines are unique per
// (user, product, size, color); adding the same tuple again merges quantity.
type CartItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index:cart_items_user_id_idx;uniqueIndex:cart_items_user_line_key"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:cart_items_user_line_key"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Size      string          `gorm:"column:size;not null;default:'';uniqueIndex:cart_items_user_line_key"`
	Color     string          `gorm:"column:color;not null;default:'';uniqueIndex:cart_items_user_line_key"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
