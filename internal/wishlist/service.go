package wishlist

import (
	"context"
	"errors"

	"github.com/aarvika/storefront-backend/internal/products"
	"github.com/aarvika/storefront-backend/pkg/db/models"
	pkgerrors "github.com/aarvika/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WishlistRepository is the persistence surface the service depends on.
type WishlistRepository interface {
	AddItem(ctx context.Context, userID, productID uuid.UUID) error
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error
	Exists(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error)
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	WishlistRepo  WishlistRepository
	ProductFinder products.ProductFinder
}

// Service exposes business rules for wishlist management.
type Service interface {
	Toggle(ctx context.Context, userID, productID uuid.UUID) (ToggleResultDTO, error)
	List(ctx context.Context, userID uuid.UUID) ([]ItemDTO, error)
	Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}

type service struct {
	wishlistRepo  WishlistRepository
	productFinder products.ProductFinder
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.WishlistRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist repo is required")
	}
	if params.ProductFinder == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product finder is required")
	}
	return &service{
		wishlistRepo:  params.WishlistRepo,
		productFinder: params.ProductFinder,
	}, nil
}

// Toggle flips membership: liked products are removed, everything else is
// added. The returned state is what the heart icon should render.
func (s *service) Toggle(ctx context.Context, userID, productID uuid.UUID) (ToggleResultDTO, error) {
	if userID == uuid.Nil {
		return ToggleResultDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if productID == uuid.Nil {
		return ToggleResultDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	if _, err := s.productFinder.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ToggleResultDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return ToggleResultDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	liked, err := s.wishlistRepo.Exists(ctx, userID, productID)
	if err != nil {
		return ToggleResultDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check wishlist")
	}

	if liked {
		if err := s.wishlistRepo.RemoveItem(ctx, userID, productID); err != nil {
			return ToggleResultDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
		}
	} else {
		if err := s.wishlistRepo.AddItem(ctx, userID, productID); err != nil {
			return ToggleResultDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add wishlist item")
		}
	}

	items, err := s.List(ctx, userID)
	if err != nil {
		return ToggleResultDTO{}, err
	}
	return ToggleResultDTO{ProductID: productID, Liked: !liked, Items: items}, nil
}

// List returns the user's liked products, newest like first.
func (s *service) List(ctx context.Context, userID uuid.UUID) ([]ItemDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	entries, err := s.wishlistRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}

	ids := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ProductID)
	}
	catalogRecords, err := s.productFinder.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wishlist products")
	}
	catalog := make(map[uuid.UUID]models.Product, len(catalogRecords))
	for _, record := range catalogRecords {
		catalog[record.ID] = record
	}

	items := make([]ItemDTO, 0, len(entries))
	for _, entry := range entries {
		product, ok := catalog[entry.ProductID]
		if !ok {
			// product was removed from the catalog after the like
			continue
		}
		items = append(items, ItemDTO{
			Product: products.Summary(product),
			LikedAt: entry.CreatedAt,
		})
	}
	return items, nil
}

// Contains reports membership for a single product.
func (s *service) Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	if userID == uuid.Nil || productID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "user id and product id are required")
	}
	liked, err := s.wishlistRepo.Exists(ctx, userID, productID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check wishlist")
	}
	return liked, nil
}
