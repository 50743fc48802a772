package http

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/as10896/saga-demo/internal/service"
	"github.com/as10896/saga-demo/pkg/health"
	"github.com/as10896/saga-demo/pkg/middleware"
)

// RouterConfig carries the dependencies the HTTP surface needs.
type RouterConfig struct {
	SessionStore   *service.SessionStore
	Orchestrator   *service.SagaOrchestrator
	Health         *health.Handler
	Logger         *slog.Logger
	CookieName     string
	SessionTimeout time.Duration
	CookieSecure   bool
}

// NewRouter assembles the chi router with the full middleware chain. Health
// and metrics endpoints sit outside the session middleware so probes never
// allocate sessions.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.PrometheusMetrics("saga-demo"))
	r.Use(CORS)

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Method("GET", "/metrics", promhttp.Handler())

	orderHandler := NewOrderHandler(cfg.Orchestrator, cfg.Logger)
	sessionHandler := NewSessionHandler(cfg.SessionStore, cfg.Logger)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(ContentTypeJSON)
		api.Use(SessionMiddleware(cfg.SessionStore, cfg.CookieName, cfg.SessionTimeout, cfg.CookieSecure))
		api.Use(middleware.RequestLogger(cfg.Logger))

		api.Post("/orders", orderHandler.Create)
		api.Get("/orders", orderHandler.List)
		api.Get("/orders/{orderID}", orderHandler.Get)
		api.Get("/sagas/{sagaID}", orderHandler.GetSaga)

		api.Get("/inventory", sessionHandler.Inventory)
		api.Get("/balances", sessionHandler.Balances)
		api.Post("/reset", sessionHandler.Reset)
	})

	return r
}
