package skill

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tgifai/newscast/internal/media"
)

type searchMetrics struct {
	searches *prometheus.CounterVec
	results  prometheus.Histogram
}

func newSearchMetrics(reg prometheus.Registerer) *searchMetrics {
	m := &searchMetrics{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newscast_search_total",
			Help: "Searches by requested media type and whether anything playable was found.",
		}, []string{"media", "found"}),
		results: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newscast_search_results",
			Help:    "Number of playable results per search.",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
	}
	if reg == nil {
		return m
	}
	if err := reg.Register(m.searches); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if c, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				m.searches = c
			}
		}
	}
	if err := reg.Register(m.results); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if h, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				m.results = h
			}
		}
	}
	return m
}

func (m *searchMetrics) observe(t media.Type, n int) {
	found := "false"
	if n > 0 {
		found = "true"
	}
	m.searches.WithLabelValues(string(t), found).Inc()
	m.results.Observe(float64(n))
}
