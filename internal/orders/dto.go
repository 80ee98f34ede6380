package orders

import (
	"time"

	"github.com/aarvika/storefront-backend/pkg/currency"
	"github.com/aarvika/storefront-backend/pkg/db/models"
	"github.com/aarvika/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemDTO is one snapshotted line inside a placed order.
type ItemDTO struct {
	ProductID          uuid.UUID       `json:"product_id"`
	Title              string          `json:"title"`
	Size               string          `json:"size,omitempty"`
	Color              string          `json:"color,omitempty"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	UnitPriceFormatted string          `json:"unit_price_formatted"`
}

// OrderDTO is the order shape returned to clients.
type OrderDTO struct {
	ID             uuid.UUID           `json:"id"`
	Status         enums.OrderStatus   `json:"status"`
	PaymentStatus  enums.PaymentStatus `json:"payment_status"`
	PaymentMethod  string              `json:"payment_method"`
	Total          decimal.Decimal     `json:"total"`
	TotalFormatted string              `json:"total_formatted"`
	ShippingName   string              `json:"shipping_name"`
	ShippingCity   string              `json:"shipping_city"`
	ShippingState  string              `json:"shipping_state"`
	Items          []ItemDTO           `json:"items"`
	CreatedAt      time.Time           `json:"created_at"`
}

func toDTO(order models.Order, items []models.OrderItem) OrderDTO {
	lines := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		lines = append(lines, ItemDTO{
			ProductID:          item.ProductID,
			Title:              item.Title,
			Size:               item.Size,
			Color:              item.Color,
			Quantity:           item.Quantity,
			UnitPrice:          item.UnitPrice,
			UnitPriceFormatted: currency.FormatINR(item.UnitPrice),
		})
	}
	return OrderDTO{
		ID:             order.ID,
		Status:         order.Status,
		PaymentStatus:  order.PaymentStatus,
		PaymentMethod:  order.PaymentMethod,
		Total:          order.TotalAmount,
		TotalFormatted: currency.FormatINR(order.TotalAmount),
		ShippingName:   order.ShippingName,
		ShippingCity:   order.ShippingCity,
		ShippingState:  order.ShippingState,
		Items:          lines,
		CreatedAt:      order.CreatedAt,
	}
}
