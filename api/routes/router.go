package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/orderflow/api/controllers"
	"github.com/angelmondragon/orderflow/api/middleware"
	"github.com/angelmondragon/orderflow/internal/checkout"
	"github.com/angelmondragon/orderflow/internal/orders"
	"github.com/angelmondragon/orderflow/internal/production"
	"github.com/angelmondragon/orderflow/pkg/config"
	"github.com/angelmondragon/orderflow/pkg/enums"
	"github.com/angelmondragon/orderflow/pkg/logger"
	"github.com/angelmondragon/orderflow/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Redis is optional; when
// nil the checkout route runs without rate limiting or idempotency replay.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       *redis.Client
	Gatherer    prometheus.Gatherer
	Orders      orders.Service
	Checkout    checkout.Service
	Production  production.StatusService
	DeadLetters controllers.DeadLetterLister
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSOrigins),
	)

	ready := map[string]controllers.Pinger{"db": deps.DB}
	if deps.Redis != nil {
		ready["redis"] = deps.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	checkoutGuards := []func(http.Handler) http.Handler{}
	if deps.Redis != nil {
		policy := middleware.RateLimitPolicy{
			Name:   "checkout",
			Window: cfg.HTTP.CheckoutRateWindow,
			Limit:  cfg.HTTP.CheckoutRateLimit,
		}
		checkoutGuards = append(checkoutGuards,
			middleware.RateLimit(policy, deps.Redis, logg),
			middleware.Idempotency(deps.Redis, cfg.HTTP.IdempotencyTTL, logg),
		)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleCustomer, enums.ActorRoleOperator))
			r.Get("/orders", controllers.SearchOrders(deps.Orders, logg))
			r.Get("/orders/{orderId}", controllers.OrderDetail(deps.Orders, logg))
			r.With(checkoutGuards...).Post("/orders/{orderId}/checkout", controllers.Checkout(deps.Checkout, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleProduction, enums.ActorRoleOperator))
			r.Post("/production/orders/{orderId}/status", controllers.AdvanceProductionStatus(deps.Production, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleOperator))
			r.Get("/outbox/dead-letters", controllers.ListDeadLetters(deps.DeadLetters, logg))
		})
	})

	return r
}
