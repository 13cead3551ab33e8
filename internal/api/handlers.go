package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/neexbeast/locweather/internal/location"
)

var validate = validator.New()

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	cache    WeatherCache
	resolver AddressResolver
	log      *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(cache WeatherCache, resolver AddressResolver, log *slog.Logger) *Handlers {
	return &Handlers{
		cache:    cache,
		resolver: resolver,
		log:      log,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GetWeather handles GET /api/v1/weather.
func (h *Handlers) GetWeather(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.Snapshot())
}

// RefreshWeather handles POST /api/v1/weather/refresh.
// Pipeline failures are part of the returned state, so this is always 200.
func (h *Handlers) RefreshWeather(w http.ResponseWriter, r *http.Request) {
	h.cache.Refresh(r.Context())
	writeJSON(w, http.StatusOK, h.cache.Snapshot())
}

type addressQuery struct {
	Lat float64 `validate:"latitude"`
	Lon float64 `validate:"longitude"`
}

func parseAddressQuery(r *http.Request) (addressQuery, error) {
	var q addressQuery

	latStr, lonStr := r.URL.Query().Get("lat"), r.URL.Query().Get("lon")
	if latStr == "" || lonStr == "" {
		return q, errors.New("lat and lon query parameters are required")
	}

	var err error
	if q.Lat, err = strconv.ParseFloat(latStr, 64); err != nil {
		return q, errors.New("lat must be a number")
	}
	if q.Lon, err = strconv.ParseFloat(lonStr, 64); err != nil {
		return q, errors.New("lon must be a number")
	}

	if err := validate.Struct(q); err != nil {
		return q, errors.New("lat/lon out of range")
	}
	return q, nil
}

// GetAddress handles GET /api/v1/address?lat=..&lon=..
func (h *Handlers) GetAddress(w http.ResponseWriter, r *http.Request) {
	q, err := parseAddressQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	c := location.Coordinates{Latitude: q.Lat, Longitude: q.Lon}
	place, err := h.resolver.ReverseGeocode(r.Context(), c)
	if err != nil {
		h.log.Error("reverse geocode failed", "lat", q.Lat, "lon", q.Lon, "err", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to resolve address"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"short_address": location.ShortAddress(place),
		"place":         place,
	})
}

// HealthHandlerFunc returns an http.HandlerFunc that reports readiness.
// It answers 503 "starting" until the first pipeline run has finished, and
// 503 "degraded" when redis is configured but does not answer. A nil first
// run is treated as finished; a nil redis pinger reports redis as disabled.
func HealthHandlerFunc(first FirstRun, redis Pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if first != nil {
			done, cancel := context.WithCancel(r.Context())
			cancel()
			if err := first.Wait(done); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
				return
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		redisStatus := "disabled"

		if redis != nil {
			redisStatus = "ok"
			if err := redis.Ping(ctx); err != nil {
				log.Error("health check: redis ping failed", "err", err)
				redisStatus = "error"
				status = http.StatusServiceUnavailable
			}
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}

		writeJSON(w, status, map[string]string{
			"status": overall,
			"redis":  redisStatus,
		})
	}
}
