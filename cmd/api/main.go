package main

import (
	"context"
	"net/http"
	"os"

	"github.com/aarvika/storefront-backend/api/routes"
	"github.com/aarvika/storefront-backend/internal/auth"
	"github.com/aarvika/storefront-backend/internal/autosave"
	"github.com/aarvika/storefront-backend/internal/cart"
	"github.com/aarvika/storefront-backend/internal/checkout"
	"github.com/aarvika/storefront-backend/internal/orders"
	"github.com/aarvika/storefront-backend/internal/preferences"
	"github.com/aarvika/storefront-backend/internal/products"
	"github.com/aarvika/storefront-backend/internal/users"
	"github.com/aarvika/storefront-backend/internal/wishlist"
	"github.com/aarvika/storefront-backend/pkg/auth/session"
	"github.com/aarvika/storefront-backend/pkg/config"
	"github.com/aarvika/storefront-backend/pkg/db"
	"github.com/aarvika/storefront-backend/pkg/logger"
	"github.com/aarvika/storefront-backend/pkg/mailer"
	"github.com/aarvika/storefront-backend/pkg/metrics"
	"github.com/aarvika/storefront-backend/pkg/migrate"
	"github.com/aarvika/storefront-backend/pkg/razorpay"
	"github.com/aarvika/storefront-backend/pkg/redis"
	"github.com/aarvika/storefront-backend/pkg/snapshot"
	"github.com/joho/godotenv"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	storefrontMetrics := metrics.NewStorefrontMetrics()

	snapshotStore, err := snapshot.NewStore(redisClient, logg, cfg.Snapshot.KeyTTL,
		snapshot.WithFailureCounter(storefrontMetrics))
	if err != nil {
		logg.Error(context.Background(), "failed to create snapshot store", err)
		os.Exit(1)
	}
	// One-time cleanup of snapshots that expired while the process was down;
	// normal expiry stays lazy on read.
	if err := snapshotStore.Sweep(context.Background(), cfg.Snapshot.DefaultMaxAge, "*"); err != nil {
		logg.Warn(context.Background(), "startup snapshot sweep incomplete: "+err.Error())
	}

	gateway, err := razorpay.NewClient(cfg.Razorpay, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create razorpay client", err)
		os.Exit(1)
	}

	var mail *mailer.Client
	if cfg.Mailer.FunctionURL != "" {
		mail, err = mailer.NewClient(cfg.Mailer.FunctionURL, cfg.Mailer.APIKey, cfg.Mailer.FromEmail)
		if err != nil {
			logg.Error(context.Background(), "failed to create mailer client", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "mailer not configured, order confirmations disabled")
	}

	usersRepo := users.NewRepository(dbClient.DB())
	productsRepo := products.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	wishlistRepo := wishlist.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())

	notifier := auth.NewNotifier()

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:  usersRepo,
		Sessions:  sessionManager,
		Limiter:   redisClient,
		Notifier:  notifier,
		JWT:       cfg.JWT,
		Passwords: cfg.Password,
		Limits:    cfg.AuthRateLimit,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(products.ServiceParams{Repo: productsRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		CartRepo:        cartRepo,
		ProductFinder:   productsRepo,
		Guard:           redisClient,
		Metrics:         storefrontMetrics,
		MutationLockTTL: cfg.Checkout.MutationLock,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		WishlistRepo:  wishlistRepo,
		ProductFinder: productsRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create wishlist service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.ServiceParams{Repo: ordersRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	checkoutParams := checkout.ServiceParams{
		Store:          snapshotStore,
		Cart:           cartService,
		OrderRepo:      ordersRepo,
		Gateway:        gateway,
		Metrics:        storefrontMetrics,
		Guard:          redisClient,
		Logger:         logg,
		StepMaxAge:     cfg.Checkout.StepMaxAge,
		PaymentLockTTL: cfg.Checkout.MutationLock,
	}
	if mail != nil {
		checkoutParams.Mail = mail
	}
	checkoutService, err := checkout.NewService(checkoutParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	autosaveService, err := autosave.NewService(autosave.ServiceParams{
		Store:          snapshotStore,
		Logger:         logg,
		DebounceWindow: cfg.Autosave.DebounceWindow,
		SnapshotMaxAge: cfg.Autosave.SnapshotMaxAge,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create autosave service", err)
		os.Exit(1)
	}
	// Drafts are wiped when their owner logs out.
	notifier.Register(autosaveService)

	preferenceService, err := preferences.NewService(preferences.ServiceParams{Store: snapshotStore})
	if err != nil {
		logg.Error(context.Background(), "failed to create preference service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, routes.Services{
			Auth:        authService,
			Products:    productService,
			Cart:        cartService,
			Wishlist:    wishlistService,
			Checkout:    checkoutService,
			Orders:      orderService,
			Autosave:    autosaveService,
			Preferences: preferenceService,
		}, storefrontMetrics.Handler()),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
