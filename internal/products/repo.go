package products

import (
	"context"
	"strings"

	"github.com/aarvika/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository encapsulates product catalog persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a product repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a product by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySlug loads a product by its URL slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "slug = ?", strings.TrimSpace(slug)).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// List returns active products, optionally filtered by category, newest first.
func (r *Repository) List(ctx context.Context, categorySlug string, limit, offset int) ([]models.Product, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("active = ?", true)

	if trimmed := strings.TrimSpace(categorySlug); trimmed != "" {
		query = query.Where("category_slug = ?", trimmed)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var records []models.Product
	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindByIDs loads the given products in one query.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var records []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
