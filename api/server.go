/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the admin frontend
  5. Instrument: Prometheus request metrics

ROUTE GROUPS:
  /api/override/*       Override authority evaluation
  /api/teaching/*       Teaching qualification evaluation
  /api/scholarship/*    Benefit resolution and discount computation
  /api/billing/*        Fees, document requests, batch runs
  /api/admin/*          Configuration seeding
  /metrics              Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.
  Deployments sit behind the campus gateway which handles auth.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(Instrument)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/override", func(r chi.Router) {
			r.Post("/evaluate", h.EvaluateOverride)
		})

		r.Route("/teaching", func(r chi.Router) {
			r.Post("/evaluate", h.EvaluateTeaching)
		})

		r.Route("/scholarship", func(r chi.Router) {
			r.Post("/resolve", h.ResolveScholarship)
		})

		r.Route("/billing", func(r chi.Router) {
			r.Post("/fees", h.ApplyFee)
			r.Post("/documents", h.ProcessDocuments)
			r.Post("/batch", h.RunBatch)
			r.Get("/invoices", h.GetInvoice)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/seed", h.LoadSeed)
		})
	})

	// Prometheus scrape endpoint
	r.Handle("/metrics", MetricsHandler())

	return r
}
