package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/locweather/internal/location"
)

const defaultTTL = 24 * time.Hour

// GeocodeCache wraps a Geocoder and stores its answers in Redis, keyed by
// coordinates rounded to three decimals (about 100m). Redis failures are
// logged and bypassed; upstream errors are never cached.
type GeocodeCache struct {
	next   location.Geocoder
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// NewGeocodeCache constructs a GeocodeCache. A non-positive ttl selects 24h;
// a nil log discards output.
func NewGeocodeCache(next location.Geocoder, client *redis.Client, ttl time.Duration, log *slog.Logger) *GeocodeCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &GeocodeCache{next: next, client: client, ttl: ttl, log: log}
}

// key returns the Redis key for the given coordinates.
func key(c location.Coordinates) string {
	return "revgeo:" + strconv.FormatFloat(c.Latitude, 'f', 3, 64) + ":" + strconv.FormatFloat(c.Longitude, 'f', 3, 64)
}

// ReverseGeocode serves from Redis when possible and fills it otherwise.
func (g *GeocodeCache) ReverseGeocode(ctx context.Context, c location.Coordinates) (location.Place, error) {
	place, hit, err := g.get(ctx, c)
	if err != nil {
		g.log.Warn("geocode cache get failed", "key", key(c), "err", err)
	}
	if hit {
		return place, nil
	}

	place, err = g.next.ReverseGeocode(ctx, c)
	if err != nil {
		return location.Place{}, err
	}

	if err := g.set(ctx, c, place); err != nil {
		g.log.Warn("geocode cache set failed", "key", key(c), "err", err)
	}
	return place, nil
}

func (g *GeocodeCache) get(ctx context.Context, c location.Coordinates) (location.Place, bool, error) {
	val, err := g.client.Get(ctx, key(c)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return location.Place{}, false, nil
		}
		return location.Place{}, false, fmt.Errorf("cache get %s: %w", key(c), err)
	}

	var p location.Place
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return location.Place{}, false, fmt.Errorf("unmarshaling cached place %s: %w", key(c), err)
	}
	return p, true, nil
}

func (g *GeocodeCache) set(ctx context.Context, c location.Coordinates, p location.Place) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling place: %w", err)
	}
	if err := g.client.Set(ctx, key(c), b, g.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key(c), err)
	}
	return nil
}
