package products

import (
	"time"

	"github.com/aarvika/storefront-backend/pkg/currency"
	"github.com/aarvika/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductSummary is the catalog card shape returned to clients.
type ProductSummary struct {
	ID             uuid.UUID       `json:"id"`
	Slug           string          `json:"slug"`
	Title          string          `json:"title"`
	CategorySlug   string          `json:"category_slug"`
	Fabric         *string         `json:"fabric,omitempty"`
	Price          decimal.Decimal `json:"price"`
	PriceFormatted string          `json:"price_formatted"`
	Sizes          []string        `json:"sizes"`
	Colors         []string        `json:"colors"`
	ImageURL       *string         `json:"image_url,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ProductDetail adds the long-form fields to the summary shape.
type ProductDetail struct {
	ProductSummary
	Description *string `json:"description,omitempty"`
}

// Summary maps a catalog record to its client-facing card shape.
func Summary(m models.Product) ProductSummary {
	return ProductSummary{
		ID:             m.ID,
		Slug:           m.Slug,
		Title:          m.Title,
		CategorySlug:   m.CategorySlug,
		Fabric:         m.Fabric,
		Price:          m.Price,
		PriceFormatted: currency.FormatINR(m.Price),
		Sizes:          m.Sizes,
		Colors:         m.Colors,
		ImageURL:       m.ImageURL,
		CreatedAt:      m.CreatedAt,
	}
}

func toDetail(m models.Product) ProductDetail {
	return ProductDetail{
		ProductSummary: Summary(m),
		Description:    m.Description,
	}
}
