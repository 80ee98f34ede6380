package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aarvika/storefront-backend/pkg/enums"
)

// Order is created once at checkout submission in pending state and is
// confirmed only by a verified payment callback.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index:orders_user_id_idx"`
	TotalAmount      decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Status           enums.OrderStatus   `gorm:"column:status;not null;default:'pending'"`
	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;not null;default:'pending'"`
	PaymentMethod    string              `gorm:"column:payment_method;not null;default:'razorpay'"`
	ShippingName     string              `gorm:"column:shipping_name;not null"`
	ShippingEmail    string              `gorm:"column:shipping_email;not null"`
	ShippingPhone    string              `gorm:"column:shipping_phone;not null"`
	ShippingLine1    string              `gorm:"column:shipping_line1;not null"`
	ShippingLine2    *string             `gorm:"column:shipping_line2"`
	ShippingCity     string              `gorm:"column:shipping_city;not null"`
	ShippingState    string              `gorm:"column:shipping_state;not null"`
	ShippingPostcode string              `gorm:"column:shipping_postcode;not null"`
	Notes            *string             `gorm:"column:notes"`
	GatewayOrderID   *string             `gorm:"column:gateway_order_id;index:orders_gateway_order_idx"`
	GatewayPaymentID *string             `gorm:"column:gateway_payment_id"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem snapshots a cart line into a placed order.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index:order_items_order_id_idx"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Title     string          `gorm:"column:title;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Size      string          `gorm:"column:size;not null;default:''"`
	Color     string          `gorm:"column:color;not null;default:''"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
