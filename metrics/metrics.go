// Package metrics exposes the core's Prometheus counters: the malformed-
// frame counter and the backpressure-drop counter this module needs to
// keep observable, plus a handful of gauges useful for operating a
// deployment. The shape mirrors a typical exporter package: a
// small struct of *prometheus.Desc/typed metrics registered once and
// updated from the hot path without per-update allocation.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector holds the core's operational counters. It implements
// prometheus.Collector so a caller can prometheus.MustRegister it exactly
// once per process, same as a typical per-subsystem collector.
type Collector struct {
	malformedFrames     prometheus.Counter
	backpressureDrops   *prometheus.CounterVec
	cacheUnslotted      prometheus.Counter
	observersGauge      prometheus.Gauge
	periodicThreadGauge prometheus.Gauge
}

// NewCollector builds a Collector whose metric names are namespaced under
// prefix (e.g. "smartdata"). labels are constant labels attached to every
// metric, following exporter.NewTCPInfoCollector's constLabels parameter.
func NewCollector(prefix string, labels prometheus.Labels) *Collector {
	return &Collector{
		malformedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   prefix,
			Name:        "malformed_frames_total",
			Help:        "Frames dropped by the protocol layer for failing to parse.",
			ConstLabels: labels,
		}),
		backpressureDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   prefix,
			Name:        "backpressure_drops_total",
			Help:        "Messages dropped because an observer's bounded queue was full.",
			ConstLabels: labels,
		}, []string{"condition"}),
		cacheUnslotted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   prefix,
			Name:        "origin_cache_unslotted_total",
			Help:        "Responses delivered without a free per-origin cache slot (see spec's documented deficiency).",
			ConstLabels: labels,
		}),
		observersGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   prefix,
			Name:        "bus_observers",
			Help:        "Number of observers currently attached to the conditional bus.",
			ConstLabels: labels,
		}),
		periodicThreadGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   prefix,
			Name:        "periodic_threads_running",
			Help:        "Number of periodic threads currently running across all Agents.",
			ConstLabels: labels,
		}),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.malformedFrames.Describe(ch)
	c.backpressureDrops.Describe(ch)
	c.cacheUnslotted.Describe(ch)
	c.observersGauge.Describe(ch)
	c.periodicThreadGauge.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.malformedFrames.Collect(ch)
	c.backpressureDrops.Collect(ch)
	c.cacheUnslotted.Collect(ch)
	c.observersGauge.Collect(ch)
	c.periodicThreadGauge.Collect(ch)
}

// MalformedFrame records one dropped, unparseable frame.
func (c *Collector) MalformedFrame() { c.malformedFrames.Inc() }

// BackpressureDrop records one message dropped from a full observer queue
// registered under the given condition string (e.g.
// "unit=0x00000055,dir=RESPONSE", as rendered by unit.Condition.String).
func (c *Collector) BackpressureDrop(condition string) {
	c.backpressureDrops.WithLabelValues(condition).Inc()
}

// CacheUnslotted records one RESPONSE delivered without a free cache slot
// (a documented cache-full deficiency).
func (c *Collector) CacheUnslotted() { c.cacheUnslotted.Inc() }

// SetObservers updates the current bus observer count.
func (c *Collector) SetObservers(n int) { c.observersGauge.Set(float64(n)) }

// SetPeriodicThreads updates the current running periodic-thread count.
func (c *Collector) SetPeriodicThreads(n int) { c.periodicThreadGauge.Set(float64(n)) }

// IncPeriodicThreads records one more periodic thread starting, for callers
// (Agents) that each own at most one or two such threads and toggle them
// independently rather than recomputing a process-wide total.
func (c *Collector) IncPeriodicThreads() { c.periodicThreadGauge.Inc() }

// DecPeriodicThreads records one periodic thread stopping. Pairs with
// IncPeriodicThreads; callers must not call it without a matching Inc.
func (c *Collector) DecPeriodicThreads() { c.periodicThreadGauge.Dec() }

// NewUnregistered builds a Collector with real metrics that nobody has
// bound to a Prometheus registry. bus.New, cache.New, protocol.New and
// agent.New fall back to this so
// exercising the core never requires a caller to stand up a registry
// first; the counters still increment, they are just not scraped.
func NewUnregistered() *Collector {
	return NewCollector("smartdata", nil)
}
