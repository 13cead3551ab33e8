package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/locweather/internal/api"
	"github.com/neexbeast/locweather/internal/cache"
	"github.com/neexbeast/locweather/internal/config"
	"github.com/neexbeast/locweather/internal/location"
	"github.com/neexbeast/locweather/internal/locweather"
	"github.com/neexbeast/locweather/internal/metrics"
	"github.com/neexbeast/locweather/internal/weather"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	device, closeDevice, err := buildDevice(cfg)
	if err != nil {
		return err
	}
	defer closeDevice()

	geocoder, err := buildGeocoder(cfg)
	if err != nil {
		return err
	}

	// Redis is optional: it only backs the shared geocode cache.
	var redisPinger api.Pinger
	if cfg.RedisURL != "" {
		redisClient, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() { _ = redisClient.Close() }()

		geocoder = cache.NewGeocodeCache(geocoder, redisClient, cfg.GeocodeCacheTTL, log)
		redisPinger = cache.Pinger{Client: redisClient}
		log.Info("geocode cache enabled", "ttl", cfg.GeocodeCacheTTL)
	}

	provider := weather.NewClientWithURL(cfg.WeatherAPIURL, cfg.HTTPTimeout)
	lw := locweather.New(device, geocoder, provider,
		locweather.WithLogger(log),
		locweather.WithRecorder(collector),
	)

	states, unsubscribe := lw.Subscribe()
	defer unsubscribe()
	go logStates(log, states)

	lw.Start(ctx)

	handlers := api.NewHandlers(lw, geocoder, log)
	router := api.NewRouter(handlers, lw, redisPinger, collector.Handler(), collector, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				err = fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listening: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("server shut down cleanly")
	return nil
}

// buildDevice prefers a GeoIP lookup when a database is configured.
func buildDevice(cfg *config.Config) (location.Device, func(), error) {
	if cfg.GeoIPDBPath != "" {
		d, err := location.OpenGeoIPDevice(cfg.GeoIPDBPath, cfg.GeoIPIP)
		if err != nil {
			return nil, nil, fmt.Errorf("opening geoip device: %w", err)
		}
		return d, func() { _ = d.Close() }, nil
	}

	d := location.NewStaticDevice(cfg.LocationLat, cfg.LocationLon, location.ParsePermission(cfg.LocationPermission))
	return d, func() {}, nil
}

// buildGeocoder prefers Google when a Maps key is configured.
func buildGeocoder(cfg *config.Config) (location.Geocoder, error) {
	if cfg.GoogleMapsAPIKey != "" {
		g, err := location.NewGoogleGeocoder(cfg.GoogleMapsAPIKey)
		if err != nil {
			return nil, fmt.Errorf("creating google geocoder: %w", err)
		}
		return g, nil
	}
	return location.NewHTTPGeocoder(cfg.GeocodeAPIURL, cfg.GeocodeAPIKey, cfg.HTTPTimeout), nil
}

// logStates logs every published state until the subscription is closed.
func logStates(log *slog.Logger, states <-chan locweather.State) {
	for s := range states {
		if s.Loading {
			continue
		}
		attrs := []any{"error", s.Error}
		if s.Location != nil {
			attrs = append(attrs, "permission", s.Location.Permission, "city", s.Location.City)
		}
		if s.Weather != nil {
			attrs = append(attrs, "temperature", s.Weather.Temperature, "condition", s.Weather.Condition)
		}
		log.Info("location weather published", attrs...)
	}
}
