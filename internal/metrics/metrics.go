package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "locweather"

// Collector holds the service metrics. It satisfies locweather.Recorder.
type Collector struct {
	PipelineRuns      *prometheus.CounterVec
	PipelineDuration  prometheus.Histogram
	PipelineStale     prometheus.Counter
	GeocodeFailures   prometheus.Counter
	HTTPRequestsTotal *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewCollector creates the metrics and registers them on reg.
func NewCollector(reg *prometheus.Registry) *Collector {
	c := &Collector{
		PipelineRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_runs_total",
				Help:      "Location weather pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		PipelineDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_duration_seconds",
				Help:      "Location weather pipeline duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),
		PipelineStale: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_stale_total",
				Help:      "Pipeline results discarded because a newer run had started",
			},
		),
		GeocodeFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "geocode_failures_total",
				Help:      "Reverse geocode failures swallowed by the pipeline",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route pattern and status code",
			},
			[]string{"route", "code"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		c.PipelineRuns,
		c.PipelineDuration,
		c.PipelineStale,
		c.GeocodeFailures,
		c.HTTPRequestsTotal,
	)
	return c
}

func (c *Collector) PipelineFinished(outcome string, elapsed time.Duration) {
	c.PipelineRuns.WithLabelValues(outcome).Inc()
	c.PipelineDuration.Observe(elapsed.Seconds())
}

func (c *Collector) PipelineDiscarded() { c.PipelineStale.Inc() }

func (c *Collector) GeocodeFailed() { c.GeocodeFailures.Inc() }

// ObserveRequest counts one served HTTP request.
func (c *Collector) ObserveRequest(route string, status int) {
	c.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
