package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultRequestTimeout = 30 * time.Second

type RouterConfig struct {
	Records        RecordService
	Stock          AvailabilityChecker
	RequestTimeout time.Duration
	// AccessLog enables chi's request logger.
	AccessLog bool
}

// NewRouter builds the cart API, instrumented with OpenTelemetry.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	cartHandler := NewCartHandler(cfg.Records, cfg.RequestTimeout)
	inventoryHandler := NewInventoryHandler(cfg.Stock, cfg.RequestTimeout)

	r := chi.NewRouter()

	if cfg.AccessLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/carts/{user_id}", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Put("/", cartHandler.SaveCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/merge", cartHandler.MergeCart)
		})
		r.Post("/inventory/check", inventoryHandler.Check)
	})

	return otelhttp.NewHandler(r, "cart-api")
}
