package location

import (
	"context"
	"encoding/json"
	"errors"
)

// Permission is the outcome of a location permission request.
type Permission string

const (
	PermissionGranted      Permission = "granted"
	PermissionDenied       Permission = "denied"
	PermissionUndetermined Permission = "undetermined"
)

// ParsePermission maps a config string to a Permission.
// Unknown values resolve to undetermined.
func ParsePermission(s string) Permission {
	switch Permission(s) {
	case PermissionGranted, PermissionDenied:
		return Permission(s)
	default:
		return PermissionUndetermined
	}
}

// ErrNoFix is returned when a device cannot produce a coordinate fix.
var ErrNoFix = errors.New("no location fix")

// Coordinates is a position in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Place is the result of a reverse geocode. Any field may be empty.
type Place struct {
	City        string `json:"city,omitempty"`
	Name        string `json:"name,omitempty"`
	Road        string `json:"road,omitempty"`
	HouseNumber string `json:"house_number,omitempty"`
	Region      string `json:"region,omitempty"`
	Country     string `json:"country,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Snapshot is the last known device location.
// Latitude and Longitude are only meaningful when Permission is granted.
type Snapshot struct {
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	City       string     `json:"city,omitempty"`
	Permission Permission `json:"permission"`
}

// MarshalJSON writes coordinates only for a granted snapshot, including a
// genuine 0,0 fix.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type wire struct {
		Latitude   *float64   `json:"latitude,omitempty"`
		Longitude  *float64   `json:"longitude,omitempty"`
		City       string     `json:"city,omitempty"`
		Permission Permission `json:"permission"`
	}
	w := wire{City: s.City, Permission: s.Permission}
	if s.Permission == PermissionGranted {
		w.Latitude, w.Longitude = &s.Latitude, &s.Longitude
	}
	return json.Marshal(w)
}

// Device is the platform location service.
type Device interface {
	// RequestPermission may block on user interaction until ctx is done.
	RequestPermission(ctx context.Context) (Permission, error)
	CurrentPosition(ctx context.Context) (Coordinates, error)
}

// Geocoder converts coordinates into a human-readable place.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, c Coordinates) (Place, error)
}
