package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// Config is the service configuration, read from the environment.
type Config struct {
	Port        string        `validate:"required,numeric"`
	HTTPTimeout time.Duration `validate:"gt=0"`

	WeatherAPIURL string `validate:"required,url"`

	GeocodeAPIURL    string `validate:"required,url"`
	GeocodeAPIKey    string
	GoogleMapsAPIKey string

	// Static device. Ignored when GeoIPDBPath is set.
	LocationLat        float64 `validate:"latitude"`
	LocationLon        float64 `validate:"longitude"`
	LocationPermission string  `validate:"oneof=granted denied undetermined"`

	GeoIPDBPath string `validate:"required_with=GeoIPIP"`
	GeoIPIP     string `validate:"required_with=GeoIPDBPath,omitempty,ip"`

	RedisURL        string
	GeocodeCacheTTL time.Duration `validate:"gt=0"`
}

// Load reads configuration from environment with defaults. A .env file in
// the working directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		WeatherAPIURL:      getEnv("WEATHER_API_URL", "https://api.open-meteo.com/v1/forecast"),
		GeocodeAPIURL:      getEnv("GEOCODE_API_URL", "https://us1.locationiq.com/v1/reverse"),
		GeocodeAPIKey:      os.Getenv("GEOCODE_API_KEY"),
		GoogleMapsAPIKey:   os.Getenv("GOOGLE_MAPS_API_KEY"),
		LocationPermission: getEnv("LOCATION_PERMISSION", "granted"),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		GeoIPIP:            os.Getenv("GEOIP_IP"),
		RedisURL:           os.Getenv("REDIS_URL"),
	}

	var err error
	if cfg.HTTPTimeout, err = getEnvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.GeocodeCacheTTL, err = getEnvDuration("GEOCODE_CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.LocationLat, err = getEnvFloat("LOCATION_LAT", 0); err != nil {
		return nil, err
	}
	if cfg.LocationLon, err = getEnvFloat("LOCATION_LON", 0); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
