package metric

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yndnr/pveapi-go/pkg/pveapi"
)

const namespace = "pveapi"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Client metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	LoginsTotal     *prometheus.CounterVec

	// ExporterInfo is a constant 1 labelled with the exporter identity.
	ExporterInfo *prometheus.GaugeVec

	// Inventory metrics
	inventory *InventoryCollector
}

var (
	global     *Registry
	globalOnce sync.Once
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler serves the process-wide registry.
func Handler() http.Handler {
	return Global().Handler()
}

// NewRegistry creates a registry with Go runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "API requests by method and HTTP status code.",
		}, []string{"method", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"method"}),
		LoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Ticket exchanges by result.",
		}, []string{"result"}),
		ExporterInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exporter_info",
			Help:      "Exporter build and instance information.",
		}, []string{"version", "instance", "target"}),
		inventory: NewInventoryCollector(),
	}
	reg.MustRegister(r.RequestsTotal, r.RequestDuration, r.LoginsTotal, r.ExporterInfo, r.inventory)
	return r
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Inventory returns the cluster inventory collector.
func (r *Registry) Inventory() *InventoryCollector {
	return r.inventory
}

// ObserveRequest records one dispatched request. A zero status code means
// no response was received.
func (r *Registry) ObserveRequest(method pveapi.Method, statusCode int, elapsed time.Duration) {
	code := "none"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	r.RequestsTotal.WithLabelValues(method.String(), code).Inc()
	r.RequestDuration.WithLabelValues(method.String()).Observe(elapsed.Seconds())
}

// ObserveLogin records the outcome of a ticket exchange.
func (r *Registry) ObserveLogin(err error) {
	result := "success"
	if err != nil {
		result = pveapi.ErrorCode(err)
		if result == "" {
			result = "error"
		}
	}
	r.LoginsTotal.WithLabelValues(result).Inc()
}

// SetExporterInfo publishes the exporter identity, replacing any previous one.
func (r *Registry) SetExporterInfo(version, instance, target string) {
	r.ExporterInfo.Reset()
	r.ExporterInfo.WithLabelValues(version, instance, target).Set(1)
}

var _ pveapi.Observer = (*Registry)(nil)
