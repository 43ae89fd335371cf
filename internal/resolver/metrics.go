package resolver

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeStatic = "static"
	outcomeHit    = "cache_hit"
	outcomeOK     = "ok"
	outcomeMiss   = "not_found"
	outcomeError  = "error"
	outcomePanic  = "panic"
)

type metrics struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newscast_resolve_total",
			Help: "Station URI resolutions by source kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newscast_resolve_duration_seconds",
			Help:    "Time spent in source fetchers.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),
	}
	if reg == nil {
		return m
	}
	m.total = register(reg, m.total)
	m.duration = register(reg, m.duration)
	return m
}

// register returns the already registered collector when another resolver
// registered the same metric first.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}
