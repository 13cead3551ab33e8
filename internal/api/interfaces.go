package api

import (
	"context"

	"github.com/neexbeast/locweather/internal/location"
	"github.com/neexbeast/locweather/internal/locweather"
)

// WeatherCache defines the cache operations needed by handlers.
type WeatherCache interface {
	Snapshot() locweather.State
	Refresh(ctx context.Context)
}

// AddressResolver defines the reverse geocoding needed by the address handler.
type AddressResolver interface {
	ReverseGeocode(ctx context.Context, c location.Coordinates) (location.Place, error)
}

// RequestObserver is notified of every served request.
type RequestObserver interface {
	ObserveRequest(route string, status int)
}

// FirstRun reports whether the automatic first pipeline run has finished.
type FirstRun interface {
	Wait(ctx context.Context) error
}

// Pinger is a health-checked dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}
