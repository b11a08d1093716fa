// Package metrics provides instrumentation hooks and their Prometheus
// implementation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "repo_bookmarks"

// Recorder is what the rest of the code calls. Implementations must be
// safe for concurrent use.
type Recorder interface {
	ObserveHTTPRequest(method, route string, status int, d time.Duration)
	ObserveUpstream(endpoint string, status int, d time.Duration)
	IncSignup()
	IncBookmarkAdded()
	IncBookmarkRemoved()
}

// Prometheus records into a private registry, so tests can create as many
// as they like without duplicate-registration panics.
type Prometheus struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	signups          prometheus.Counter
	bookmarks        *prometheus.CounterVec
}

func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()

	p := &Prometheus{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "github_requests_total",
			Help:      "Calls to the GitHub API by endpoint and status (0 = transport error).",
		}, []string{"endpoint", "status"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "github_request_duration_seconds",
			Help:      "GitHub API latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		signups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signups_total",
			Help:      "Accounts created.",
		}),
		bookmarks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookmark_operations_total",
			Help:      "Bookmark adds and removes.",
		}, []string{"op"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.httpRequests,
		p.httpDuration,
		p.upstreamRequests,
		p.upstreamDuration,
		p.signups,
		p.bookmarks,
	)
	return p
}

// Handler serves the exposition format for this registry.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *Prometheus) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (p *Prometheus) ObserveUpstream(endpoint string, status int, d time.Duration) {
	p.upstreamRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	p.upstreamDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (p *Prometheus) IncSignup()          { p.signups.Inc() }
func (p *Prometheus) IncBookmarkAdded()   { p.bookmarks.WithLabelValues("add").Inc() }
func (p *Prometheus) IncBookmarkRemoved() { p.bookmarks.WithLabelValues("remove").Inc() }

// Noop discards everything.
type Noop struct{}

func (Noop) ObserveHTTPRequest(string, string, int, time.Duration) {}
func (Noop) ObserveUpstream(string, int, time.Duration)            {}
func (Noop) IncSignup()                                            {}
func (Noop) IncBookmarkAdded()                                     {}
func (Noop) IncBookmarkRemoved()                                   {}

var (
	_ Recorder = (*Prometheus)(nil)
	_ Recorder = Noop{}
)
