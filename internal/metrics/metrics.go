// Package metrics provides Prometheus metrics for library aggregations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder records aggregation metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	namespace string
	subsystem string
	buckets   []float64
	registry  *prometheus.Registry

	pagesFetched      prometheus.Counter
	entriesQualified  prometheus.Counter
	entriesMatched    prometheus.Counter
	entriesMalformed  prometheus.Counter
	upstreamRetries   *prometheus.CounterVec
	upstreamFailures  *prometheus.CounterVec
	aggregations      *prometheus.CounterVec
	aggregateDuration prometheus.Histogram
	genreCache        *prometheus.CounterVec
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithNamespace sets the metric namespace.
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		if namespace != "" {
			r.namespace = namespace
		}
	}
}

// WithSubsystem sets the metric subsystem.
func WithSubsystem(subsystem string) Option {
	return func(r *Recorder) {
		if subsystem != "" {
			r.subsystem = subsystem
		}
	}
}

// WithHistogramBuckets sets the buckets for the duration histogram, in seconds.
func WithHistogramBuckets(buckets []float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.buckets = buckets
		}
	}
}

// New creates a Recorder backed by its own registry.
func New(opts ...Option) *Recorder {
	r := &Recorder{
		namespace: "moods",
		subsystem: "library",
		buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(r)
	}

	auto := promauto.With(r.registry)
	r.pagesFetched = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: r.subsystem,
		Name:      "pages_fetched_total",
		Help:      "Saved-track pages fetched from the upstream feed",
	})
	r.entriesQualified = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: r.subsystem,
		Name:      "entries_qualified_total",
		Help:      "Entries whose save date fell inside the requested window",
	})
	r.entriesMatched = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: r.subsystem,
		Name:      "entries_matched_total",
		Help:      "Entries that passed the genre and mood filters",
	})
	r.entriesMalformed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: r.subsystem,
		Name:      "entries_malformed_total",
		Help:      "Feed items skipped for missing ID or save timestamp",
	})
	r.upstreamRetries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: r.subsystem,
		Name:      "upstream_retries_total",
		Help:      "Retried upstream calls by operation",
	}, []string{"op"})
	r.upstreamFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: r.subsystem,
		Name:      "upstream_failures_total",
		Help:      "Upstream calls that failed after all retries, by operation",
	}, []string{"op"})
	r.aggregations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: r.subsystem,
		Name:      "aggregations_total",
		Help:      "Completed aggregations by outcome",
	}, []string{"outcome"})
	r.aggregateDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Subsystem: r.subsystem,
		Name:      "aggregate_duration_seconds",
		Help:      "Wall time of a full aggregation",
		Buckets:   r.buckets,
	})
	r.genreCache = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "genre_cache",
		Name:      "lookups_total",
		Help:      "Artist genre cache lookups by result (hit, miss, stale, error)",
	}, []string{"result"})

	return r
}

// Handler serves the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) PageFetched() {
	if r == nil {
		return
	}
	r.pagesFetched.Inc()
}

func (r *Recorder) EntryQualified() {
	if r == nil {
		return
	}
	r.entriesQualified.Inc()
}

func (r *Recorder) EntryMatched() {
	if r == nil {
		return
	}
	r.entriesMatched.Inc()
}

func (r *Recorder) EntryMalformed() {
	if r == nil {
		return
	}
	r.entriesMalformed.Inc()
}

func (r *Recorder) UpstreamRetry(op string) {
	if r == nil {
		return
	}
	r.upstreamRetries.WithLabelValues(op).Inc()
}

func (r *Recorder) UpstreamFailure(op string) {
	if r == nil {
		return
	}
	r.upstreamFailures.WithLabelValues(op).Inc()
}

// AggregationDone records the outcome ("ok" or "error") and duration of an aggregation.
func (r *Recorder) AggregationDone(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.aggregations.WithLabelValues(outcome).Inc()
	r.aggregateDuration.Observe(d.Seconds())
}

// GenreCacheLookup records a genre cache lookup result.
func (r *Recorder) GenreCacheLookup(result string) {
	if r == nil {
		return
	}
	r.genreCache.WithLabelValues(result).Inc()
}
