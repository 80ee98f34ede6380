package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry (saree, lehenga, kurta set, ...).
type Product struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug         string          `gorm:"column:slug;not null;uniqueIndex:products_slug_key"`
	Title        string          `gorm:"column:title;not null"`
	Description  *string         `gorm:"column:description"`
	CategorySlug string          `gorm:"column:category_slug;not null;index:products_category_slug_idx"`
	Fabric       *string         `gorm:"column:fabric"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Sizes        []string        `gorm:"column:sizes;type:jsonb;serializer:json"`
	Colors       []string        `gorm:"column:colors;type:jsonb;serializer:json"`
	ImageURL     *string         `gorm:"column:image_url"`
	Active       bool            `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
