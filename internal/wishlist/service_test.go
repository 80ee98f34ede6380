package wishlist

import (
	"context"
	"testing"
	"time"

	"github.com/aarvika/storefront-backend/pkg/db/models"
	pkgerrors "github.com/aarvika/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type stubWishlistRepo struct {
	entries map[uuid.UUID]models.WishlistItem
}

func newStubWishlistRepo() *stubWishlistRepo {
	return &stubWishlistRepo{entries: map[uuid.UUID]models.WishlistItem{}}
}

func (s *stubWishlistRepo) AddItem(ctx context.Context, userID, productID uuid.UUID) error {
	if _, ok := s.entries[productID]; ok {
		return nil
	}
	s.entries[productID] = models.WishlistItem{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		CreatedAt: time.Now(),
	}
	return nil
}

func (s *stubWishlistRepo) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	delete(s.entries, productID)
	return nil
}

func (s *stubWishlistRepo) Exists(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	_, ok := s.entries[productID]
	return ok, nil
}

func (s *stubWishlistRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error) {
	out := make([]models.WishlistItem, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	return out, nil
}

type stubProductFinder struct {
	products map[uuid.UUID]*models.Product
}

func (s *stubProductFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if product, ok := s.products[id]; ok {
		return product, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubProductFinder) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if product, ok := s.products[id]; ok {
			out = append(out, *product)
		}
	}
	return out, nil
}

func newTestService(t *testing.T, repo WishlistRepository, finder *stubProductFinder) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{WishlistRepo: repo, ProductFinder: finder})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestToggleFlipsMembership(t *testing.T) {
	t.Parallel()

	product := &models.Product{ID: uuid.New(), Slug: "kanjivaram-saree", Title: "Kanjivaram Saree", Price: decimal.NewFromInt(18500), Active: true}
	finder := &stubProductFinder{products: map[uuid.UUID]*models.Product{product.ID: product}}
	svc := newTestService(t, newStubWishlistRepo(), finder)
	userID := uuid.New()

	got, err := svc.Toggle(context.Background(), userID, product.ID)
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !got.Liked {
		t.Fatal("expected first toggle to like")
	}
	if len(got.Items) != 1 || got.Items[0].Product.Slug != "kanjivaram-saree" {
		t.Fatalf("expected the re-fetched list with the liked product, got %+v", got.Items)
	}

	got, err = svc.Toggle(context.Background(), userID, product.ID)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if got.Liked {
		t.Fatal("expected second toggle to unlike")
	}
	if len(got.Items) != 0 {
		t.Fatalf("expected an empty list after unliking, got %+v", got.Items)
	}

	liked, err := svc.Contains(context.Background(), userID, product.ID)
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if liked {
		t.Fatal("expected product to be absent after double toggle")
	}
}

func TestToggleUnknownProduct(t *testing.T) {
	t.Parallel()

	finder := &stubProductFinder{products: map[uuid.UUID]*models.Product{}}
	svc := newTestService(t, newStubWishlistRepo(), finder)

	_, err := svc.Toggle(context.Background(), uuid.New(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestListSkipsDelistedProducts(t *testing.T) {
	t.Parallel()

	product := &models.Product{ID: uuid.New(), Slug: "chanderi-dupatta", Title: "Chanderi Dupatta", Price: decimal.NewFromInt(2499), Active: true}
	finder := &stubProductFinder{products: map[uuid.UUID]*models.Product{product.ID: product}}
	repo := newStubWishlistRepo()
	svc := newTestService(t, repo, finder)
	userID := uuid.New()

	if _, err := svc.Toggle(context.Background(), userID, product.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	// simulate a like whose product has since been removed from the catalog
	_ = repo.AddItem(context.Background(), userID, uuid.New())

	items, err := svc.List(context.Background(), userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one listable item, got %d", len(items))
	}
	if items[0].Product.Slug != "chanderi-dupatta" {
		t.Fatalf("unexpected product %q", items[0].Product.Slug)
	}
}
