package api

import (
	_ "fxsync/docs"
	"fxsync/internal/metrics"
	"fxsync/internal/rate/handler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	swagger "github.com/swaggo/http-swagger"
)

func NewRouter(rateHandler *handler.Handler, appMetrics *metrics.Metrics) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.Heartbeat("/healthz"))

	// Swagger UI
	router.Get("/swagger/*", swagger.WrapHandler)
	router.Method("GET", "/metrics", appMetrics.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(appMetrics.Middleware)
		r.Get("/conversions", rateHandler.GetConversions)
		r.Put("/conversions/amount", rateHandler.SetAmount)
		r.Put("/conversions/currency", rateHandler.SetCurrency)
		r.Post("/rates/refresh", rateHandler.Refresh)
		r.Get("/currencies", rateHandler.GetCurrencies)
	})
	return router
}
