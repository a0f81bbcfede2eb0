package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for entity search.
type Metrics struct {
	Searches       *prometheus.CounterVec
	ResultSize     *prometheus.HistogramVec
	SearchDuration prometheus.Histogram
	CacheLookups   *prometheus.CounterVec
	Unresolved     prometheus.Counter
}

// New creates a new Metrics instance with all screening metrics registered.
func New() *Metrics {
	return &Metrics{
		Searches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "watchdesk_searches_total",
			Help: "Entity searches by kind (name, nationality, combined)",
		}, []string{"kind"}),
		ResultSize: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "watchdesk_search_results",
			Help:    "Number of records returned per search",
			Buckets: []float64{0, 1, 2, 5, 10, 15, 20},
		}, []string{"kind"}),
		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "watchdesk_search_duration_seconds",
			Help:    "Duration of entity searches",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "watchdesk_search_cache_lookups_total",
			Help: "Search cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		Unresolved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watchdesk_search_unresolved_nationality_total",
			Help: "Nationality inputs that named no known country and were matched raw",
		}),
	}
}

// ObserveSearch records one completed search.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSearch(kind string, results int, start time.Time) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(kind).Inc()
	m.ResultSize.WithLabelValues(kind).Observe(float64(results))
	m.SearchDuration.Observe(time.Since(start).Seconds())
}

// RecordCacheLookup counts a cache hit, miss or error.
func (m *Metrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// IncrementUnresolved counts a nationality that did not resolve.
func (m *Metrics) IncrementUnresolved() {
	if m == nil {
		return
	}
	m.Unresolved.Inc()
}
