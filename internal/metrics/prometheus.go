// Package metrics exposes prometheus collectors for interface management.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"netifmgr/internal/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all netifmgr metrics on a private prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	// Model metrics
	HardwareInterfaces prometheus.Gauge
	LogicInterfaces    *prometheus.GaugeVec

	// Probe metrics
	Refreshes       *prometheus.CounterVec
	RefreshDuration prometheus.Histogram

	// Apply metrics
	Applies       *prometheus.CounterVec
	ApplyDuration *prometheus.HistogramVec
	LateResults   prometheus.Counter

	// API metrics
	APIRequests *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec
	Subscribers prometheus.Gauge
}

// New creates a registry with Go runtime and process collectors attached.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)
	r := &Registry{reg: reg}

	r.HardwareInterfaces = factory.NewGauge(prometheus.GaugeOpts{
		Name: "netifmgr_hardware_interfaces",
		Help: "Number of hardware interfaces in the current snapshot",
	})

	r.LogicInterfaces = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "netifmgr_logic_interfaces",
		Help: "Number of logical interfaces in the current snapshot",
	}, []string{"method"})

	r.Refreshes = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "netifmgr_refreshes_total",
		Help: "Total interface refreshes by result",
	}, []string{"result"})

	r.RefreshDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "netifmgr_refresh_duration_seconds",
		Help:    "Time spent enumerating interfaces",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	r.Applies = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "netifmgr_applies_total",
		Help: "Total configuration changes by operation and result kind",
	}, []string{"operation", "result"})

	r.ApplyDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netifmgr_apply_duration_seconds",
		Help:    "Time from validation to commit of a configuration change",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"operation"})

	r.LateResults = factory.NewCounter(prometheus.CounterOpts{
		Name: "netifmgr_late_verifications_total",
		Help: "Verifications that finished after their caller timed out",
	})

	r.APIRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "netifmgr_api_requests_total",
		Help: "Total API requests",
	}, []string{"method", "route", "status"})

	r.APILatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netifmgr_api_latency_seconds",
		Help:    "API request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	r.Subscribers = factory.NewGauge(prometheus.GaugeOpts{
		Name: "netifmgr_event_subscribers",
		Help: "Number of connected event stream clients",
	})

	return r
}

// Handler serves the registry in the prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// RecordSnapshot updates the model gauges.
func (r *Registry) RecordSnapshot(hw []types.HardwareInterface) {
	counts := map[types.Method]int{types.MethodStatic: 0, types.MethodDHCP: 0}
	for _, h := range hw {
		for _, l := range h.LogicInterfaces {
			counts[l.Method]++
		}
	}
	r.HardwareInterfaces.Set(float64(len(hw)))
	for method, n := range counts {
		r.LogicInterfaces.WithLabelValues(string(method)).Set(float64(n))
	}
}

// RecordRefresh counts one refresh.
func (r *Registry) RecordRefresh(duration time.Duration, err error) {
	r.Refreshes.WithLabelValues(resultOf(err)).Inc()
	r.RefreshDuration.Observe(duration.Seconds())
}

// RecordApply counts one add, update or remove.
func (r *Registry) RecordApply(operation string, duration time.Duration, err error) {
	r.Applies.WithLabelValues(operation, resultOf(err)).Inc()
	r.ApplyDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAPIRequest counts one API request.
func (r *Registry) RecordAPIRequest(method, route string, status int, duration time.Duration) {
	r.APIRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.APILatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

func resultOf(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := types.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
