// Package telemetry replaces the teacher's hand-rolled control.MetricsRegistry
// (control/metrics.go, a map[string]any behind a RWMutex) with real
// Prometheus counters/gauges, grounded on the pack's
// pkg/exporter/exporter.go TCPInfoCollector pattern. Registered once per
// process (or once per test) via a Registry value passed down from the
// public API's Config.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Registry holds every counter/gauge the library exposes. Unlike the
// teacher's dynamic string-keyed map, each metric is a named Prometheus
// collector so scrape output is stable and typed.
type Registry struct {
	reg *prometheus.Registry

	SendOK     *prometheus.CounterVec
	SendFail   *prometheus.CounterVec
	RecvOK     *prometheus.CounterVec
	RecvFail   *prometheus.CounterVec
	Retries    *prometheus.CounterVec
	Connects   *prometheus.CounterVec
	Disconnects *prometheus.CounterVec

	RTSwaps      prometheus.Counter
	RTParseFail  prometheus.Counter
	RTActiveGen  prometheus.Gauge

	RingDepth prometheus.GaugeFunc
}

// New creates and registers a fresh metrics Registry. Callers that want
// these exposed on a /metrics endpoint register reg.Gatherer() with an
// http handler themselves; the library never opens its own listener.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		SendOK: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rmr",
			Name:      "send_ok_total",
			Help:      "Messages successfully sent, by endpoint.",
		}, []string{"endpoint"}),
		SendFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rmr",
			Name:      "send_fail_total",
			Help:      "Send failures, by endpoint and reason.",
		}, []string{"endpoint", "reason"}),
		RecvOK: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rmr",
			Name:      "recv_ok_total",
			Help:      "Messages successfully received, by source endpoint.",
		}, []string{"endpoint"}),
		RecvFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rmr",
			Name:      "recv_fail_total",
			Help:      "Receive failures, by source endpoint and reason.",
		}, []string{"endpoint", "reason"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rmr",
			Name:      "send_retry_total",
			Help:      "Send retries due to a transient endpoint busy/connect condition.",
		}, []string{"endpoint"}),
		Connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rmr",
			Name:      "endpoint_connects_total",
			Help:      "Successful outbound connects, by endpoint.",
		}, []string{"endpoint"}),
		Disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rmr",
			Name:      "endpoint_disconnects_total",
			Help:      "Connection losses, by endpoint.",
		}, []string{"endpoint"}),
		RTSwaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rmr",
			Name:      "route_table_swaps_total",
			Help:      "Number of times the active route table was atomically replaced.",
		}),
		RTParseFail: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rmr",
			Name:      "route_table_parse_failures_total",
			Help:      "Route table update lines rejected by the parser.",
		}),
		RTActiveGen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rmr",
			Name:      "route_table_generation",
			Help:      "Generation id of the currently active route table.",
		}),
	}

	reg.MustRegister(
		r.SendOK, r.SendFail, r.RecvOK, r.RecvFail, r.Retries,
		r.Connects, r.Disconnects, r.RTSwaps, r.RTParseFail, r.RTActiveGen,
	)
	return r
}

// Gatherer exposes the underlying prometheus.Gatherer for callers wiring
// their own /metrics handler (promhttp.HandlerFor).
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// WatchRingDepth registers a GaugeFunc that samples fn on every scrape,
// used to expose the C1 ring's current depth without polling it internally.
func (r *Registry) WatchRingDepth(name string, fn func() float64) {
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "rmr",
		Name:      "ring_depth",
		Help:      "Current occupancy of a named ring buffer.",
		ConstLabels: prometheus.Labels{
			"ring": name,
		},
	}, fn)
	r.reg.MustRegister(g)
}
