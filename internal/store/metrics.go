package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the store's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	DurableErrors *prometheus.CounterVec
	Invalidations prometheus.Counter
	MemoryOnly    prometheus.Gauge
}

// NewMetrics creates the store collectors and registers them on reg.
// Tests pass a fresh prometheus.NewRegistry() to avoid duplicate
// registration against the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "hosting_emissions",
			Subsystem: "store",
			Name:      "cache_hits_total",
			Help:      "Reads served from the in-process cache.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "hosting_emissions",
			Subsystem: "store",
			Name:      "cache_misses_total",
			Help:      "Reads that fell through to the durable backend.",
		}),
		DurableErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hosting_emissions",
			Subsystem: "store",
			Name:      "durable_errors_total",
			Help:      "Durable backend failures absorbed by the store.",
		}, []string{"op"}),
		Invalidations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "hosting_emissions",
			Subsystem: "store",
			Name:      "invalidations_total",
			Help:      "Cache entries evicted because a dependent key changed.",
		}),
		MemoryOnly: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "hosting_emissions",
			Subsystem: "store",
			Name:      "memory_only",
			Help:      "1 when the store runs without a durable backend.",
		}),
	}
}

func (m *Metrics) hit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

func (m *Metrics) durableError(op string) {
	if m != nil {
		m.DurableErrors.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) invalidated(n int) {
	if m != nil && n > 0 {
		m.Invalidations.Add(float64(n))
	}
}

func (m *Metrics) setMode(mode Mode) {
	if m == nil {
		return
	}
	if mode == ModeMemoryOnly {
		m.MemoryOnly.Set(1)
		return
	}
	m.MemoryOnly.Set(0)
}
