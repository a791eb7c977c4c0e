// Package metrics exposes Prometheus counters for the gather core.
//
// A Recorder owns a private registry so tests and multiple servers in one
// process never collide on the global default registry. All methods are safe
// on a nil *Recorder, which lets components run without metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds every gather metric.
type Recorder struct {
	registry *prometheus.Registry

	messages      prometheus.Counter
	subscriptions *prometheus.CounterVec
	heartbeats    prometheus.Counter
	votes         prometheus.Counter
	feeds         prometheus.Gauge
	degraded      *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates a Recorder with all metrics registered on a fresh registry,
// plus the Go runtime and process collectors.
func New() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.messages = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gather",
		Name:      "chat_messages_total",
		Help:      "Chat messages appended",
	})
	r.subscriptions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gather",
		Name:      "subscription_changes_total",
		Help:      "Subscribe and unsubscribe operations by action",
	}, []string{"action"})
	r.heartbeats = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gather",
		Name:      "presence_heartbeats_total",
		Help:      "Presence heartbeats recorded",
	})
	r.votes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gather",
		Name:      "category_votes_total",
		Help:      "Category suggestion votes submitted",
	})
	r.feeds = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gather",
		Name:      "chat_feeds_open",
		Help:      "Live chat feeds currently open",
	})
	r.degraded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gather",
		Name:      "degraded_reads_total",
		Help:      "Read queries answered with an empty or default payload after a store failure",
	}, []string{"query"})
	r.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gather",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status code",
	}, []string{"route", "code"})
	r.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gather",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	r.registry.MustRegister(
		r.messages, r.subscriptions, r.heartbeats, r.votes, r.feeds,
		r.degraded, r.httpRequests, r.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// MessageAppended counts one chat append.
func (r *Recorder) MessageAppended() {
	if r == nil {
		return
	}
	r.messages.Inc()
}

// Subscribed counts one subscribe.
func (r *Recorder) Subscribed() {
	if r == nil {
		return
	}
	r.subscriptions.WithLabelValues("subscribe").Inc()
}

// Unsubscribed counts one unsubscribe.
func (r *Recorder) Unsubscribed() {
	if r == nil {
		return
	}
	r.subscriptions.WithLabelValues("unsubscribe").Inc()
}

// Heartbeat counts one presence heartbeat.
func (r *Recorder) Heartbeat() {
	if r == nil {
		return
	}
	r.heartbeats.Inc()
}

// VoteSubmitted counts one category vote.
func (r *Recorder) VoteSubmitted() {
	if r == nil {
		return
	}
	r.votes.Inc()
}

// FeedOpened increments the open feed gauge.
func (r *Recorder) FeedOpened() {
	if r == nil {
		return
	}
	r.feeds.Inc()
}

// FeedClosed decrements the open feed gauge.
func (r *Recorder) FeedClosed() {
	if r == nil {
		return
	}
	r.feeds.Dec()
}

// Degraded counts a read query that fell back to a default payload.
func (r *Recorder) Degraded(query string) {
	if r == nil {
		return
	}
	r.degraded.WithLabelValues(query).Inc()
}

// ObserveHTTP records one served request.
func (r *Recorder) ObserveHTTP(route string, code int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	r.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
