package cart

import (
	"context"
	"errors"
	"time"

	"github.com/aarvika/storefront-backend/internal/products"
	"github.com/aarvika/storefront-backend/pkg/db/models"
	pkgerrors "github.com/aarvika/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultMutationLockTTL = 10 * time.Second

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	CartRepo        CartRepository
	ProductFinder   products.ProductFinder
	Guard           MutationGuard
	Metrics         MutationCounter
	MutationLockTTL time.Duration
}

// Service exposes business rules for cart management. Every mutation returns
// the re-read cart so clients always render from the persisted state.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) (CartDTO, error)
	Add(ctx context.Context, userID uuid.UUID, input AddItemInput) (CartDTO, error)
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (CartDTO, error)
	Remove(ctx context.Context, userID, itemID uuid.UUID) (CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	cartRepo      CartRepository
	productFinder products.ProductFinder
	guard         MutationGuard
	metrics       MutationCounter
	lockTTL       time.Duration
}

// NewService builds a cart service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.CartRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart repo is required")
	}
	if params.ProductFinder == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product finder is required")
	}
	lockTTL := params.MutationLockTTL
	if lockTTL <= 0 {
		lockTTL = defaultMutationLockTTL
	}
	return &service{
		cartRepo:      params.CartRepo,
		productFinder: params.ProductFinder,
		guard:         params.Guard,
		metrics:       params.Metrics,
		lockTTL:       lockTTL,
	}, nil
}

// List returns the user's cart with product metadata joined in.
func (s *service) List(ctx context.Context, userID uuid.UUID) (CartDTO, error) {
	if userID == uuid.Nil {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.loadCart(ctx, userID)
}

// Add validates the line against the catalog and folds it into the cart.
// Adding the same product/size/color again sums quantities instead of
// creating a duplicate row.
func (s *service) Add(ctx context.Context, userID uuid.UUID, input AddItemInput) (CartDTO, error) {
	if userID == uuid.Nil {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.ProductID == uuid.Nil {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity <= 0 {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	release, err := s.acquireLock(ctx, userID)
	if err != nil {
		return CartDTO{}, err
	}
	defer release()

	product, err := s.productFinder.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.Active {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "product is no longer available")
	}
	if err := validateVariant(product, input.Size, input.Color); err != nil {
		return CartDTO{}, err
	}

	line := models.CartItem{
		UserID:    userID,
		ProductID: product.ID,
		Size:      input.Size,
		Color:     input.Color,
		Quantity:  input.Quantity,
		UnitPrice: product.Price,
	}
	if err := s.cartRepo.Upsert(ctx, line); err != nil {
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart line")
	}
	s.countMutation("add")

	return s.loadCart(ctx, userID)
}

// UpdateQuantity overwrites the quantity on an existing line.
func (s *service) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (CartDTO, error) {
	if userID == uuid.Nil || itemID == uuid.Nil {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id and item id are required")
	}
	if quantity <= 0 {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	release, err := s.acquireLock(ctx, userID)
	if err != nil {
		return CartDTO{}, err
	}
	defer release()

	if _, err := s.cartRepo.FindLine(ctx, userID, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart line not found")
		}
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}
	if err := s.cartRepo.UpdateQuantity(ctx, userID, itemID, quantity); err != nil {
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
	}
	s.countMutation("update")

	return s.loadCart(ctx, userID)
}

// Remove drops one line regardless of prior state.
func (s *service) Remove(ctx context.Context, userID, itemID uuid.UUID) (CartDTO, error) {
	if userID == uuid.Nil || itemID == uuid.Nil {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id and item id are required")
	}

	release, err := s.acquireLock(ctx, userID)
	if err != nil {
		return CartDTO{}, err
	}
	defer release()

	if err := s.cartRepo.RemoveLine(ctx, userID, itemID); err != nil {
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart line")
	}
	s.countMutation("remove")

	return s.loadCart(ctx, userID)
}

// Clear empties the cart.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := s.cartRepo.ClearByUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	s.countMutation("clear")
	return nil
}

func (s *service) loadCart(ctx context.Context, userID uuid.UUID) (CartDTO, error) {
	lines, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart")
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	catalogRecords, err := s.productFinder.FindByIDs(ctx, ids)
	if err != nil {
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
	}
	catalog := make(map[uuid.UUID]models.Product, len(catalogRecords))
	for _, record := range catalogRecords {
		catalog[record.ID] = record
	}

	return buildCartDTO(lines, catalog), nil
}

// acquireLock takes the per-user in-flight guard. A second mutation arriving
// while one is running gets a conflict instead of racing the first.
func (s *service) acquireLock(ctx context.Context, userID uuid.UUID) (func(), error) {
	if s.guard == nil {
		return func() {}, nil
	}
	key := s.guard.InflightKey("cart", userID.String())
	acquired, err := s.guard.SetNX(ctx, key, "1", s.lockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire cart lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "another cart update is in progress")
	}
	return func() { _ = s.guard.Del(ctx, key) }, nil
}

func (s *service) countMutation(kind string) {
	if s.metrics != nil {
		s.metrics.IncCartMutation(kind)
	}
}

func validateVariant(product *models.Product, size, color string) error {
	if len(product.Sizes) > 0 && size != "" && !contains(product.Sizes, size) {
		return pkgerrors.New(pkgerrors.CodeValidation, "size is not offered for this product")
	}
	if len(product.Colors) > 0 && color != "" && !contains(product.Colors, color) {
		return pkgerrors.New(pkgerrors.CodeValidation, "color is not offered for this product")
	}
	return nil
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
