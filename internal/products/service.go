package products

import (
	"context"
	"errors"
	"strings"

	"github.com/aarvika/storefront-backend/pkg/db/models"
	pkgerrors "github.com/aarvika/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultListLimit = 48

// ProductFinder is the read surface other modules depend on.
type ProductFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	Repo *Repository
}

// Service exposes catalog reads for the storefront.
type Service interface {
	List(ctx context.Context, categorySlug string, limit, offset int) ([]ProductSummary, error)
	GetBySlug(ctx context.Context, slug string) (*ProductDetail, error)
}

type service struct {
	repo *Repository
}

// NewService builds a catalog service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product repo is required")
	}
	return &service{repo: params.Repo}, nil
}

// List returns catalog cards for the requested category.
func (s *service) List(ctx context.Context, categorySlug string, limit, offset int) ([]ProductSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	records, err := s.repo.List(ctx, categorySlug, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	summaries := make([]ProductSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, Summary(record))
	}
	return summaries, nil
}

// GetBySlug returns the full product detail for a catalog page.
func (s *service) GetBySlug(ctx context.Context, slug string) (*ProductDetail, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product slug is required")
	}
	record, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	detail := toDetail(*record)
	return &detail, nil
}
