package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// NewRouter builds and returns the Chi router with all routes configured.
// Rate limiting is applied globally: 60 requests per minute per IP.
// first, redis, obs and metricsHandler may be nil.
func NewRouter(handlers *Handlers, first FirstRun, redis Pinger, metricsHandler http.Handler, obs RequestObserver, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log, obs))
	r.Use(httprate.LimitByIP(60, time.Minute))

	r.Get("/api/v1/health", HealthHandlerFunc(first, redis, log))
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Get("/api/v1/weather", handlers.GetWeather)
	r.Post("/api/v1/weather/refresh", handlers.RefreshWeather)
	r.Get("/api/v1/address", handlers.GetAddress)

	return r
}
