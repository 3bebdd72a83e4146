package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/maltedev/affiliate-product-fetcher/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	AllowedOrigins   []string
	AllowCredentials bool
	// Timeout bounds each request; category walks are the slowest route.
	Timeout time.Duration
	Metrics *metrics.Metrics
}

func NewRouter(h *Handlers, opts RouterOptions) http.Handler {
	if opts.Timeout <= 0 {
		opts.Timeout = 90 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:*", "https://localhost:*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.Timeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: opts.AllowCredentials,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	if opts.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Post("/url", h.FetchByURL)
			r.Post("/search", h.Search)
			r.Post("/category", h.FetchCategory)
			r.Get("/{id}", h.GetProduct)
		})

		r.Route("/saved", func(r chi.Router) {
			r.Get("/", h.ListSaved)
			r.Post("/", h.AddSaved)
			r.Post("/search", h.SearchSaved)
			r.Get("/export", h.ExportSaved)
			r.Post("/import", h.ImportSaved)
			r.Patch("/{id}", h.UpdateSaved)
			r.Put("/{id}", h.UpdateSaved)
			r.Delete("/{id}", h.RemoveSaved)
		})

		r.Route("/videos", func(r chi.Router) {
			r.Post("/", h.CreateVideo)
			r.Get("/{jobID}", h.GetVideo)
		})
	})

	return r
}
