package forecast

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"pnl_forecast/pkg/core/ratelimit"
)

// RouterOptions carries the cross-cutting dependencies of the router.
type RouterOptions struct {
	AllowedOrigins []string
	Limiter        ratelimit.Limiter // nil disables limiting
	Observer       RequestObserver   // optional
	Metrics        http.Handler      // served at /metrics when set
	Config         http.Handler      // served at /api/forecast/config when set
}

// NewRouter wires the forecast endpoints with request ids, panic recovery,
// CORS, rate limiting and access logging.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}

	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(accessLog(h.Log, opts.Observer))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimit(limiter, opts.Observer))

		r.Post("/forecast/compute", h.Compute)
		r.Get("/tenants/{tenantID}/forecast", h.TenantForecast)
		if opts.Config != nil {
			r.Method(http.MethodGet, "/forecast/config", opts.Config)
		}
	})

	return r
}
