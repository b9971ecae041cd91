// Package metrics exposes Prometheus instrumentation for the classloader
// registry: library counts, per-library live instances, and load, unload and
// create outcomes.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "classloader"

	// ResultOK and ResultError label the outcome of loads and creations.
	ResultOK    = "ok"
	ResultError = "error"

	// KindManaged and KindUnmanaged label creations.
	KindManaged   = "managed"
	KindUnmanaged = "unmanaged"
)

// Collector groups the classloader metrics. The zero value is not usable;
// construct with New.
type Collector struct {
	Registered    prometheus.Gauge
	Loaded        prometheus.Gauge
	LiveInstances *prometheus.GaugeVec
	Loads         *prometheus.CounterVec
	Unloads       prometheus.Counter
	Creates       *prometheus.CounterVec
}

// New builds a Collector and registers it with reg. A nil reg yields working
// but unexported metrics.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		Registered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "libraries",
			Name:      "registered",
			Help:      "Number of registered libraries",
		}),
		Loaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "libraries",
			Name:      "loaded",
			Help:      "Number of registered libraries whose image is open",
		}),
		LiveInstances: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "instances",
			Name:      "live",
			Help:      "Managed instances not yet released, per library",
		}, []string{"library"}),
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "libraries",
			Name:      "loads_total",
			Help:      "Library image opens by result",
		}, []string{"result"}),
		Unloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "libraries",
			Name:      "unloads_total",
			Help:      "Library image closes",
		}),
		Creates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "instances",
			Name:      "creates_total",
			Help:      "Instance creation requests by kind and result",
		}, []string{"kind", "result"}),
	}
	if reg != nil {
		reg.MustRegister(c.Registered, c.Loaded, c.LiveInstances, c.Loads, c.Unloads, c.Creates)
	}
	return c
}

// LoadResult records one image open attempt.
func (c *Collector) LoadResult(err error) {
	if err != nil {
		c.Loads.WithLabelValues(ResultError).Inc()
		return
	}
	c.Loads.WithLabelValues(ResultOK).Inc()
	c.Loaded.Inc()
}

// Unloaded records one image close.
func (c *Collector) Unloaded() {
	c.Unloads.Inc()
	c.Loaded.Dec()
}

// CreateResult records one creation request.
func (c *Collector) CreateResult(kind string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	c.Creates.WithLabelValues(kind, result).Inc()
}

// SetLive publishes the live instance count of a library.
func (c *Collector) SetLive(library string, n int) {
	c.LiveInstances.WithLabelValues(library).Set(float64(n))
}

// Forget drops the per-library series of a deregistered library.
func (c *Collector) Forget(library string) {
	c.LiveInstances.DeleteLabelValues(library)
}
