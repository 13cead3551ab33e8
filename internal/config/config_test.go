package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/locweather/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "HTTP_TIMEOUT", "WEATHER_API_URL", "GEOCODE_API_URL", "GEOCODE_API_KEY",
		"GOOGLE_MAPS_API_KEY", "LOCATION_LAT", "LOCATION_LON", "LOCATION_PERMISSION",
		"GEOIP_DB_PATH", "GEOIP_IP", "REDIS_URL", "GEOCODE_CACHE_TTL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 24*time.Hour, cfg.GeocodeCacheTTL)
	assert.Equal(t, "granted", cfg.LocationPermission)
	assert.Equal(t, "https://api.open-meteo.com/v1/forecast", cfg.WeatherAPIURL)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("LOCATION_LAT", "-33.8688")
	t.Setenv("LOCATION_LON", "151.2093")
	t.Setenv("LOCATION_PERMISSION", "denied")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, -33.8688, cfg.LocationLat)
	assert.Equal(t, 151.2093, cfg.LocationLon)
	assert.Equal(t, "denied", cfg.LocationPermission)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad duration", "HTTP_TIMEOUT", "soon"},
		{"bad latitude", "LOCATION_LAT", "91"},
		{"unparseable longitude", "LOCATION_LON", "east"},
		{"bad permission", "LOCATION_PERMISSION", "maybe"},
		{"bad port", "PORT", "http"},
		{"bad weather url", "WEATHER_API_URL", "not a url"},
		{"geoip ip without db", "GEOIP_IP", "81.2.69.142"},
		{"geoip db without ip", "GEOIP_DB_PATH", "/var/lib/GeoLite2-City.mmdb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := config.Load()
			require.Error(t, err)
		})
	}
}

func TestLoad_GeoIPPair(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEOIP_DB_PATH", "/var/lib/GeoLite2-City.mmdb")
	t.Setenv("GEOIP_IP", "81.2.69.142")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "81.2.69.142", cfg.GeoIPIP)
}
