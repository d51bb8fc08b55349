package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/affiliates"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/internal/promo"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// baseMiddleware runs on every route. RequestID is outermost so the panic
// line carries the request id.
func baseMiddleware(cfg *config.Config, logg *logger.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.OptionalAuth(cfg.JWT, logg),
	}
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	storeMetrics *metrics.StorefrontMetrics,
	policy pricing.Policy,
	cartService cart.Service,
	promoService promo.Service,
	checkoutService checkoutsvc.Service,
	shippingService shipping.Service,
	ordersService orders.Service,
	affiliateService affiliates.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(baseMiddleware(cfg, logg)...)

	idempotency := middleware.Idempotency(nil, cfg.Checkout.IdempotencyTTL, logg)
	promoLimit := func(next http.Handler) http.Handler { return next }
	var redisPinger controllers.Pinger
	if redisClient != nil {
		redisPinger = redisClient
		idempotency = middleware.Idempotency(redisClient, cfg.Checkout.IdempotencyTTL, logg)
		promoLimit = middleware.PromoRateLimit(
			middleware.NewPromoRateLimitPolicy(
				cfg.PromoRateLimit.Window,
				cfg.PromoRateLimit.SessionLimit,
				cfg.PromoRateLimit.IPLimit,
				cfg.PromoRateLimit.TrustedProxies,
			),
			redisClient,
			storeMetrics,
			logg,
		)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.CartSession(logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(checkoutService, logg))
				r.Delete("/", cartcontrollers.CartClear(cartService, policy, logg))
				r.Post("/items", cartcontrollers.CartAddItem(cartService, policy, logg))
				r.Patch("/items/{lineId}", cartcontrollers.CartSetQuantity(cartService, policy, logg))
				r.Delete("/items/{lineId}", cartcontrollers.CartRemoveItem(cartService, policy, logg))
				r.With(promoLimit).Post("/promo", cartcontrollers.PromoApply(promoService, policy, logg))
				r.Delete("/promo", cartcontrollers.PromoRemove(promoService, policy, logg))
			})
			r.With(idempotency).Post("/checkout", controllers.Checkout(checkoutService, logg))
		})

		r.Route("/shipping", func(r chi.Router) {
			r.Get("/regions", controllers.ShippingRegions(shippingService, logg))
			r.Get("/quote", controllers.ShippingQuote(shippingService, logg))
		})
		r.Get("/orders/{orderNumber}", ordercontrollers.Detail(ordersService, logg))
		r.Route("/affiliates", func(r chi.Router) {
			r.Get("/tiers", controllers.AffiliateTiers(affiliateService, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleAffiliate)).
				Get("/me", controllers.AffiliateProgress(affiliateService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
		r.Get("/orders", ordercontrollers.AdminList(ordersService, logg))
		r.Put("/shipping-rates/{region}", controllers.AdminUpsertShippingRate(shippingService, logg))
	})

	return r
}
