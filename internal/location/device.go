package location

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// StaticDevice answers with configured coordinates and a configured
// permission. Undetermined resolves to denied on request, the same as a
// dismissed prompt.
type StaticDevice struct {
	coords     Coordinates
	permission Permission
}

// NewStaticDevice constructs a StaticDevice.
func NewStaticDevice(lat, lon float64, permission Permission) *StaticDevice {
	return &StaticDevice{
		coords:     Coordinates{Latitude: lat, Longitude: lon},
		permission: permission,
	}
}

// RequestPermission returns the configured answer.
func (d *StaticDevice) RequestPermission(ctx context.Context) (Permission, error) {
	if err := ctx.Err(); err != nil {
		return PermissionUndetermined, err
	}
	if d.permission == PermissionGranted {
		return PermissionGranted, nil
	}
	return PermissionDenied, nil
}

// CurrentPosition returns the configured coordinates.
func (d *StaticDevice) CurrentPosition(ctx context.Context) (Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return Coordinates{}, fmt.Errorf("static position: %w", err)
	}
	return d.coords, nil
}

// cityReader is the subset of *geoip2.Reader used by GeoIPDevice.
type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
}

// GeoIPDevice locates a fixed IP address through a MaxMind City database.
// Permission is implicit: the lookup never prompts anyone.
type GeoIPDevice struct {
	reader cityReader
	closer func() error
	ip     net.IP
}

// OpenGeoIPDevice opens the database at dbPath and resolves ip on every fix.
func OpenGeoIPDevice(dbPath, ip string) (*GeoIPDevice, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("geoip device: invalid ip %q", ip)
	}

	db, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening geoip database %s: %w", dbPath, err)
	}

	return &GeoIPDevice{reader: db, closer: db.Close, ip: parsed}, nil
}

// RequestPermission always grants.
func (d *GeoIPDevice) RequestPermission(_ context.Context) (Permission, error) {
	return PermissionGranted, nil
}

// CurrentPosition looks up the configured IP.
func (d *GeoIPDevice) CurrentPosition(ctx context.Context) (Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return Coordinates{}, fmt.Errorf("geoip position: %w", err)
	}

	rec, err := d.reader.City(d.ip)
	if err != nil {
		return Coordinates{}, fmt.Errorf("geoip lookup for %s: %w: %v", d.ip, ErrNoFix, err)
	}

	// MaxMind returns 0,0 for addresses it cannot place.
	if rec.Location.Latitude == 0 && rec.Location.Longitude == 0 {
		return Coordinates{}, fmt.Errorf("geoip lookup for %s: %w", d.ip, ErrNoFix)
	}

	return Coordinates{Latitude: rec.Location.Latitude, Longitude: rec.Location.Longitude}, nil
}

// Close releases the underlying database.
func (d *GeoIPDevice) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer()
}
