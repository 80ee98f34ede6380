package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aarvika/storefront-backend/api/controllers"
	"github.com/aarvika/storefront-backend/api/middleware"
	authsvc "github.com/aarvika/storefront-backend/internal/auth"
	autosavesvc "github.com/aarvika/storefront-backend/internal/autosave"
	cartsvc "github.com/aarvika/storefront-backend/internal/cart"
	checkoutsvc "github.com/aarvika/storefront-backend/internal/checkout"
	ordersvc "github.com/aarvika/storefront-backend/internal/orders"
	preferencessvc "github.com/aarvika/storefront-backend/internal/preferences"
	productsvc "github.com/aarvika/storefront-backend/internal/products"
	wishlistsvc "github.com/aarvika/storefront-backend/internal/wishlist"
	"github.com/aarvika/storefront-backend/pkg/auth/session"
	"github.com/aarvika/storefront-backend/pkg/config"
	"github.com/aarvika/storefront-backend/pkg/db"
	"github.com/aarvika/storefront-backend/pkg/logger"
	"github.com/aarvika/storefront-backend/pkg/redis"
)

// Services groups every domain service the router mounts.
type Services struct {
	Auth        authsvc.Service
	Products    productsvc.Service
	Cart        cartsvc.Service
	Wishlist    wishlistsvc.Service
	Checkout    checkoutsvc.Service
	Orders      ordersvc.Service
	Autosave    autosavesvc.Service
	Preferences preferencessvc.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	sessions session.AccessSessionChecker,
	services Services,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(services.Auth, logg))
		r.Post("/login", controllers.AuthLogin(services.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(services.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(services.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))

		r.Get("/me", controllers.AuthMe(services.Auth, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(services.Products, logg))
			r.Get("/{productSlug}", controllers.ProductDetail(services.Products, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(services.Cart, logg))
			r.Delete("/", controllers.CartClear(services.Cart, logg))
			r.Post("/items", controllers.CartAddItem(services.Cart, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(services.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(services.Cart, logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", controllers.WishlistList(services.Wishlist, logg))
			r.Post("/toggle", controllers.WishlistToggle(services.Wishlist, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutState(services.Checkout, logg))
			r.Post("/shipping", controllers.CheckoutShipping(services.Checkout, logg))
			r.Post("/payment", controllers.CheckoutPayment(services.Checkout, logg))
			r.Post("/payment/confirm", controllers.CheckoutPaymentConfirm(services.Checkout, logg))
			r.Post("/abandon", controllers.CheckoutAbandon(services.Checkout, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(services.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(services.Orders, logg))
		})

		r.Route("/forms", func(r chi.Router) {
			r.Get("/{formId}", controllers.FormRestore(services.Autosave, logg))
			r.Put("/{formId}", controllers.FormRecord(services.Autosave, logg))
			r.Post("/{formId}/flush", controllers.FormFlush(services.Autosave, logg))
			r.Delete("/{formId}", controllers.FormClear(services.Autosave, logg))
		})

		r.Route("/preferences", func(r chi.Router) {
			r.Get("/", controllers.PreferencesGet(services.Preferences, logg))
			r.Put("/", controllers.PreferencesUpdate(services.Preferences, logg))
			r.Delete("/", controllers.PreferencesClear(services.Preferences, logg))
			r.Post("/views/{productSlug}", controllers.PreferencesRecordView(services.Preferences, logg))
		})
	})

	return r
}
