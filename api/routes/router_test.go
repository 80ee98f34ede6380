package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	authsvc "github.com/aarvika/storefront-backend/internal/auth"
	cartsvc "github.com/aarvika/storefront-backend/internal/cart"
	checkoutsvc "github.com/aarvika/storefront-backend/internal/checkout"
	ordersvc "github.com/aarvika/storefront-backend/internal/orders"
	preferencessvc "github.com/aarvika/storefront-backend/internal/preferences"
	productsvc "github.com/aarvika/storefront-backend/internal/products"
	wishlistsvc "github.com/aarvika/storefront-backend/internal/wishlist"
	pkgAuth "github.com/aarvika/storefront-backend/pkg/auth"
	"github.com/aarvika/storefront-backend/pkg/auth/session"
	"github.com/aarvika/storefront-backend/pkg/config"
	"github.com/aarvika/storefront-backend/pkg/logger"
	"github.com/google/uuid"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Register(ctx context.Context, input authsvc.RegisterInput) (*authsvc.AuthResultDTO, error) {
	return &authsvc.AuthResultDTO{}, nil
}

func (stubAuthService) Login(ctx context.Context, input authsvc.LoginInput) (*authsvc.AuthResultDTO, error) {
	return &authsvc.AuthResultDTO{}, nil
}

func (stubAuthService) Refresh(ctx context.Context, input authsvc.RefreshInput) (*authsvc.AuthResultDTO, error) {
	return &authsvc.AuthResultDTO{}, nil
}

func (stubAuthService) Logout(ctx context.Context, accessToken string) error { return nil }

func (stubAuthService) Me(ctx context.Context, userID uuid.UUID) (*authsvc.UserDTO, error) {
	return &authsvc.UserDTO{ID: userID}, nil
}

type stubProductService struct{}

func (stubProductService) List(ctx context.Context, categorySlug string, limit, offset int) ([]productsvc.ProductSummary, error) {
	return []productsvc.ProductSummary{}, nil
}

func (stubProductService) GetBySlug(ctx context.Context, slug string) (*productsvc.ProductDetail, error) {
	return &productsvc.ProductDetail{}, nil
}

type stubCartService struct{}

func (stubCartService) List(ctx context.Context, userID uuid.UUID) (cartsvc.CartDTO, error) {
	return cartsvc.CartDTO{}, nil
}

func (stubCartService) Add(ctx context.Context, userID uuid.UUID, input cartsvc.AddItemInput) (cartsvc.CartDTO, error) {
	return cartsvc.CartDTO{}, nil
}

func (stubCartService) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (cartsvc.CartDTO, error) {
	return cartsvc.CartDTO{}, nil
}

func (stubCartService) Remove(ctx context.Context, userID, itemID uuid.UUID) (cartsvc.CartDTO, error) {
	return cartsvc.CartDTO{}, nil
}

func (stubCartService) Clear(ctx context.Context, userID uuid.UUID) error { return nil }

type stubWishlistService struct{}

func (stubWishlistService) Toggle(ctx context.Context, userID, productID uuid.UUID) (wishlistsvc.ToggleResultDTO, error) {
	return wishlistsvc.ToggleResultDTO{}, nil
}

func (stubWishlistService) List(ctx context.Context, userID uuid.UUID) ([]wishlistsvc.ItemDTO, error) {
	return []wishlistsvc.ItemDTO{}, nil
}

func (stubWishlistService) Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	return false, nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) State(ctx context.Context, userID uuid.UUID) (checkoutsvc.StateDTO, error) {
	return checkoutsvc.StateDTO{}, nil
}

func (stubCheckoutService) SubmitShipping(ctx context.Context, userID uuid.UUID, input checkoutsvc.ShippingInput) (checkoutsvc.StateDTO, error) {
	return checkoutsvc.StateDTO{}, nil
}

func (stubCheckoutService) InitiatePayment(ctx context.Context, userID uuid.UUID) (*checkoutsvc.PaymentIntentDTO, error) {
	return &checkoutsvc.PaymentIntentDTO{}, nil
}

func (stubCheckoutService) CompletePayment(ctx context.Context, userID uuid.UUID, input checkoutsvc.CompletePaymentInput) (checkoutsvc.StateDTO, error) {
	return checkoutsvc.StateDTO{}, nil
}

func (stubCheckoutService) Abandon(ctx context.Context, userID uuid.UUID) error { return nil }

type stubOrdersService struct{}

func (stubOrdersService) List(ctx context.Context, userID uuid.UUID) ([]ordersvc.OrderDTO, error) {
	return []ordersvc.OrderDTO{}, nil
}

func (stubOrdersService) Get(ctx context.Context, userID, orderID uuid.UUID) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{}, nil
}

type stubAutosaveService struct{}

func (stubAutosaveService) Record(ctx context.Context, userID, formID string, fields map[string]string) error {
	return nil
}

func (stubAutosaveService) SaveNow(ctx context.Context, userID, formID string, fields map[string]string) error {
	return nil
}

func (stubAutosaveService) Restore(ctx context.Context, userID, formID string, current map[string]string) (map[string]string, bool, error) {
	return current, false, nil
}

func (stubAutosaveService) Clear(ctx context.Context, userID, formID string) error { return nil }

func (stubAutosaveService) ClearAll(ctx context.Context, userID string) error { return nil }

func (stubAutosaveService) OnSessionChange(ctx context.Context, userID, event string) {}

type stubPreferencesService struct{}

func (stubPreferencesService) Get(ctx context.Context, userID string) (preferencessvc.PreferencesDTO, error) {
	return preferencessvc.PreferencesDTO{}, nil
}

func (stubPreferencesService) Update(ctx context.Context, userID string, prefs preferencessvc.PreferencesDTO) (preferencessvc.PreferencesDTO, error) {
	return prefs, nil
}

func (stubPreferencesService) RecordView(ctx context.Context, userID, productSlug string) (preferencessvc.PreferencesDTO, error) {
	return preferencessvc.PreferencesDTO{}, nil
}

func (stubPreferencesService) Clear(ctx context.Context, userID string) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		stubPinger{},
		stubSessionChecker{},
		Services{
			Auth:        stubAuthService{},
			Products:    stubProductService{},
			Cart:        stubCartService{},
			Wishlist:    stubWishlistService{},
			Checkout:    stubCheckoutService{},
			Orders:      stubOrdersService{},
			Autosave:    stubAutosaveService{},
			Preferences: stubPreferencesService{},
		},
		nil,
	)
}

func buildToken(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "meera@example.com",
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for health live got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	for _, path := range []string{"/api/v1/cart", "/api/v1/wishlist", "/api/v1/checkout", "/api/v1/orders"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 without token for %s got %d", path, resp.Code)
		}
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	token := buildToken(t, cfg)

	for _, path := range []string{"/api/v1/cart", "/api/v1/wishlist", "/api/v1/checkout", "/api/v1/orders", "/api/v1/preferences", "/api/v1/me"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestAuthEndpointsArePublic(t *testing.T) {
	router := newTestRouter(testConfig())
	body := `{"email":"meera@example.com","password":"silk-sarees-4ever"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for login got %d", resp.Code)
	}
}

func TestLoginRejectsBadJSON(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload got %d", resp.Code)
	}
}

func TestCartItemRoutesRequireValidUUID(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	token := buildToken(t, cfg)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/not-a-uuid", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed item id got %d", resp.Code)
	}
}
