package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/affiliates"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/promo"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
)

const shutdownTimeout = 15 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		_ = dbClient.Close()
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		_ = dbClient.Close()
		os.Exit(1)
	}
	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing dependencies", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	storeMetrics := metrics.NewStorefrontMetrics(reg)

	policy := pricing.Policy{
		PromoPercent:   cfg.Pricing.PromoDiscountPercent,
		FreezeDiscount: cfg.Pricing.FreezePromoDiscount,
	}

	productRepo := products.NewRepository(dbClient.DB())
	affiliateRepo := affiliates.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())

	cartStore, err := cart.NewRedisStore(redisClient, cfg.Cart.SessionTTL, logg)
	if err != nil {
		fatal(ctx, logg, "failed to create cart store", err)
	}
	cartService, err := cart.NewService(cartStore, productRepo)
	if err != nil {
		fatal(ctx, logg, "failed to create cart service", err)
	}

	resolver, err := promo.NewResolver(affiliateRepo, policy)
	if err != nil {
		fatal(ctx, logg, "failed to create promo resolver", err)
	}
	promoService, err := promo.NewService(cartService, resolver, storeMetrics, logg)
	if err != nil {
		fatal(ctx, logg, "failed to create promo service", err)
	}

	shippingService, err := shipping.NewService(shipping.NewRepository(dbClient.DB()), cfg.Shipping.CacheTTL, logg)
	if err != nil {
		fatal(ctx, logg, "failed to create shipping service", err)
	}

	numbers, err := checkout.NewOrderNumbers(redisClient, cfg.Checkout.OrderNumberPrefix)
	if err != nil {
		fatal(ctx, logg, "failed to create order number source", err)
	}
	checkoutService, err := checkout.NewService(checkout.Deps{
		Tx:      dbClient,
		Carts:   cartService,
		Catalog: productRepo,
		Promos:  resolver,
		Rates:   shippingService,
		Orders:  ordersRepo,
		Outbox:  outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Numbers: numbers,
		Policy:  policy,
		Metrics: storeMetrics,
		Logger:  logg,
	})
	if err != nil {
		fatal(ctx, logg, "failed to create checkout service", err)
	}

	ordersService, err := orders.NewService(ordersRepo)
	if err != nil {
		fatal(ctx, logg, "failed to create orders service", err)
	}
	affiliateService, err := affiliates.NewService(affiliateRepo)
	if err != nil {
		fatal(ctx, logg, "failed to create affiliate service", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID("api"),
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			reg,
			storeMetrics,
			policy,
			cartService,
			promoService,
			checkoutService,
			shippingService,
			ordersService,
			affiliateService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down api server")
	case err := <-errCh:
		if err != nil {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(logCtx, "graceful shutdown failed", err)
	}
}

func fatal(ctx context.Context, logg *logger.Logger, msg string, err error) {
	logg.Error(ctx, msg, err)
	os.Exit(1)
}
