package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var probeBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13}

// Collector holds the server's prometheus metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	probesTotal     *prometheus.CounterVec
	probeDuration   *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewRegistry returns a registry carrying the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewCollector registers every metric against reg.
func NewCollector(reg *prometheus.Registry) *Collector {
	f := promauto.With(reg)
	return &Collector{
		gatherer: reg,
		probesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marks_link_probes_total",
				Help: "Link-health probes answered, by check mode and verdict",
			},
			[]string{"mode", "status"},
		),
		probeDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marks_link_probe_duration_seconds",
				Help:    "Duration of link-health probes",
				Buckets: probeBuckets,
			},
			[]string{"mode"},
		),
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marks_http_requests_total",
				Help: "HTTP requests served",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marks_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveProbe records one probe. It satisfies linkhealth.Recorder.
func (c *Collector) ObserveProbe(mode, status string, elapsed time.Duration) {
	c.probesTotal.WithLabelValues(mode, status).Inc()
	c.probeDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// ObserveRequest records one served request. route is the chi pattern, not the raw path.
func (c *Collector) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	c.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler exposes the registry in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
