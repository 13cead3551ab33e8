// Package locweather holds the process-wide location and weather cache.
//
// A Cache runs a strictly sequential pipeline (permission, coordinates,
// reverse geocode, weather) and publishes the combined result to every
// reader in one update. The first run is triggered once by Start; later
// runs only happen through Refresh.
package locweather

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/neexbeast/locweather/internal/location"
	"github.com/neexbeast/locweather/internal/weather"
)

// Provider is the interface satisfied by weather.Client.
type Provider interface {
	Current(ctx context.Context, lat, lon float64) (*weather.Reading, error)
}

// Recorder receives pipeline instrumentation.
type Recorder interface {
	PipelineFinished(outcome string, elapsed time.Duration)
	PipelineDiscarded()
	GeocodeFailed()
}

type nopRecorder struct{}

func (nopRecorder) PipelineFinished(string, time.Duration) {}
func (nopRecorder) PipelineDiscarded()                     {}
func (nopRecorder) GeocodeFailed()                         {}

// first-run latch states
const (
	notStarted int32 = iota
	inFlight
	completed
)

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger. The default discards output.
func WithLogger(log *slog.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Cache) { c.rec = r }
}

// Cache is the single authoritative copy of location and weather.
// Construct one at start-up and share it.
type Cache struct {
	device   location.Device
	geocoder location.Geocoder
	provider Provider
	log      *slog.Logger
	rec      Recorder

	latch     atomic.Int32
	firstDone chan struct{}

	mu      sync.Mutex
	state   State
	started uint64
	subs    map[uint64]chan State
	nextSub uint64
}

// New constructs a Cache. geocoder may be nil, in which case no city is resolved.
func New(device location.Device, geocoder location.Geocoder, provider Provider, opts ...Option) *Cache {
	c := &Cache{
		device:    device,
		geocoder:  geocoder,
		provider:  provider,
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		rec:       nopRecorder{},
		firstDone: make(chan struct{}),
		subs:      make(map[uint64]chan State),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current state.
func (c *Cache) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start launches the automatic first run in the background. Only the first
// call on a Cache does anything; the latch never resets.
func (c *Cache) Start(ctx context.Context) {
	if !c.latch.CompareAndSwap(notStarted, inFlight) {
		return
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer func() {
			c.latch.Store(completed)
			close(c.firstDone)
		}()
		c.run(ctx)
	}()
}

// Wait blocks until the run launched by Start has finished. A finished run
// wins over an already-expired ctx, so a canceled ctx gives a non-blocking check.
func (c *Cache) Wait(ctx context.Context) error {
	select {
	case <-c.firstDone:
		return nil
	default:
	}

	select {
	case <-c.firstDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh runs the pipeline and returns once it has finished. It never
// fails: the outcome is in Snapshot().Error. Overlapping calls are allowed;
// only the most recently started one publishes its result.
func (c *Cache) Refresh(ctx context.Context) {
	c.run(context.WithoutCancel(ctx))
}

// Subscribe returns a channel that receives every published state. A slow
// reader only sees the latest one. Call the returned func to unsubscribe.
func (c *Cache) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			close(ch)
		})
	}
}

// result is what one pipeline run wants to write. Nil pointers keep the
// previously published values.
type result struct {
	location     *location.Snapshot
	weather      *weather.Snapshot
	clearWeather bool
	err          error
	outcome      string
}

func (c *Cache) run(ctx context.Context) {
	c.mu.Lock()
	c.started++
	gen := c.started
	c.state.Loading = true
	c.state.Error = ""
	c.state.Err = nil
	c.publishLocked()
	c.mu.Unlock()

	log := c.log.With("run_id", uuid.NewString(), "generation", gen)
	begin := time.Now()

	res := c.acquire(ctx, log)

	elapsed := time.Since(begin)
	c.rec.PipelineFinished(res.outcome, elapsed)
	if res.err != nil {
		log.Warn("location weather pipeline failed", "outcome", res.outcome, "elapsed", elapsed, "err", res.err)
	} else {
		log.Info("location weather pipeline completed",
			"elapsed", elapsed,
			"city", res.location.City,
			"temperature", res.weather.Temperature,
			"condition", res.weather.Condition,
		)
	}

	c.commit(gen, res, log)
}

func (c *Cache) acquire(ctx context.Context, log *slog.Logger) (res result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("location weather pipeline panicked", "recover", r)
			res = result{err: fmt.Errorf("pipeline panicked: %v", r), outcome: OutcomePanic}
		}
	}()

	perm, err := c.device.RequestPermission(ctx)
	if err != nil {
		log.Warn("permission request failed", "err", err)
		perm = location.PermissionDenied
	}
	if perm != location.PermissionGranted {
		return result{
			location:     &location.Snapshot{Permission: location.PermissionDenied},
			clearWeather: true,
			err:          ErrPermissionDenied,
			outcome:      OutcomePermissionDenied,
		}
	}

	coords, err := c.device.CurrentPosition(ctx)
	if err != nil {
		return result{
			err:     fmt.Errorf("%w: %w", ErrLocationUnavailable, err),
			outcome: OutcomeLocationUnavailable,
		}
	}

	loc := &location.Snapshot{
		Latitude:   coords.Latitude,
		Longitude:  coords.Longitude,
		Permission: location.PermissionGranted,
	}

	if c.geocoder != nil {
		place, geoErr := c.geocoder.ReverseGeocode(ctx, coords)
		if geoErr != nil {
			c.rec.GeocodeFailed()
			log.Warn("reverse geocode failed", "err", fmt.Errorf("%w: %w", ErrGeocode, geoErr))
		} else {
			loc.City = place.City
		}
	}

	reading, err := c.provider.Current(ctx, coords.Latitude, coords.Longitude)
	if err != nil {
		return result{
			err:     fmt.Errorf("%w: %w", ErrWeatherProvider, err),
			outcome: OutcomeWeatherFailed,
		}
	}

	return result{
		location: loc,
		weather:  reading.Snapshot(loc.City),
		outcome:  OutcomeOK,
	}
}

// commit publishes res unless a newer run has started since gen.
func (c *Cache) commit(gen uint64, res result, log *slog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.started {
		c.rec.PipelineDiscarded()
		log.Info("discarding superseded pipeline result", "latest_generation", c.started)
		return
	}

	next := c.state
	next.Loading = false
	if res.location != nil {
		next.Location = res.location
	}
	if res.clearWeather {
		next.Weather = nil
	}
	if res.weather != nil {
		next.Weather = res.weather
	}
	next.Err = res.err
	next.Error = errorMessage(res.err)

	c.state = next
	c.publishLocked()
}

// publishLocked fans the current state out to subscribers, replacing any
// value a subscriber has not consumed yet. c.mu must be held.
func (c *Cache) publishLocked() {
	for _, ch := range c.subs {
		select {
		case ch <- c.state:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- c.state:
		default:
		}
	}
}
