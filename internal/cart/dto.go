package cart

import (
	"github.com/aarvika/storefront-backend/pkg/currency"
	"github.com/aarvika/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddItemInput is the payload for adding a line to the cart.
type AddItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Size      string    `json:"size"`
	Color     string    `json:"color"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// LineDTO is one cart row as returned to clients.
type LineDTO struct {
	ID                 uuid.UUID       `json:"id"`
	ProductID          uuid.UUID       `json:"product_id"`
	Title              string          `json:"title"`
	Slug               string          `json:"slug"`
	ImageURL           *string         `json:"image_url,omitempty"`
	Size               string          `json:"size,omitempty"`
	Color              string          `json:"color,omitempty"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	UnitPriceFormatted string          `json:"unit_price_formatted"`
	LineTotal          decimal.Decimal `json:"line_total"`
	LineTotalFormatted string          `json:"line_total_formatted"`
}

// CartDTO is the whole-cart shape sent after every read or mutation.
type CartDTO struct {
	Items             []LineDTO       `json:"items"`
	ItemCount         int             `json:"item_count"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	SubtotalFormatted string          `json:"subtotal_formatted"`
}

func buildCartDTO(lines []models.CartItem, catalog map[uuid.UUID]models.Product) CartDTO {
	items := make([]LineDTO, 0, len(lines))
	subtotal := decimal.Zero
	count := 0

	for _, line := range lines {
		lineTotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		dto := LineDTO{
			ID:                 line.ID,
			ProductID:          line.ProductID,
			Size:               line.Size,
			Color:              line.Color,
			Quantity:           line.Quantity,
			UnitPrice:          line.UnitPrice,
			UnitPriceFormatted: currency.FormatINR(line.UnitPrice),
			LineTotal:          lineTotal,
			LineTotalFormatted: currency.FormatINR(lineTotal),
		}
		if product, ok := catalog[line.ProductID]; ok {
			dto.Title = product.Title
			dto.Slug = product.Slug
			dto.ImageURL = product.ImageURL
		}
		items = append(items, dto)
		subtotal = subtotal.Add(lineTotal)
		count += line.Quantity
	}

	return CartDTO{
		Items:             items,
		ItemCount:         count,
		Subtotal:          subtotal,
		SubtotalFormatted: currency.FormatINR(subtotal),
	}
}
