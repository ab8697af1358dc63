package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/robert-malhotra/floodsync-api/internal/metrics"
)

// NewRouter creates and configures the HTTP router with all routes and middleware.
// A nil metrics provider disables instrumentation and the metrics endpoint.
func NewRouter(h *Handlers, m *metrics.Provider, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestIDResponse)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(Recovery(logger))
	if m != nil {
		r.Use(Instrument(m))
	}
	r.Use(middleware.Compress(5))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length"},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	if m != nil && h.cfg.Metrics.Enabled {
		r.Method(http.MethodGet, h.cfg.Metrics.Path, m.Handler())
	}

	r.Get("/", h.LandingPage)
	r.Get("/layers", h.Layers)
	r.Get("/layers/{layerId}", h.Layer)

	// Earth Engine backed routes
	r.Group(func(r chi.Router) {
		if limit := RateLimit(h.cfg.RateLimit); limit != nil {
			r.Use(limit)
		}
		r.Get("/countries", h.Countries)
		r.Post("/flood_map", h.FloodMap)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "Not Found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return r
}
