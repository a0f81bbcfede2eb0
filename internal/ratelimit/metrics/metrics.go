package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Checks        *prometheus.CounterVec
	Rejections    *prometheus.CounterVec
	StoreFailures prometheus.Counter
	Degraded      prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		Checks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "watchdesk_ratelimit_checks_total",
			Help: "Rate limit checks by bucket class",
		}, []string{"class"}),
		Rejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "watchdesk_ratelimit_rejections_total",
			Help: "Requests rejected by the rate limiter by bucket class",
		}, []string{"class"}),
		StoreFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watchdesk_ratelimit_store_failures_total",
			Help: "Errors returned by the primary bucket store",
		}),
		Degraded: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "watchdesk_ratelimit_degraded",
			Help: "1 while the limiter is serving from the in-memory fallback",
		}),
	}
}

func (m *Metrics) IncrementCheck(class string) {
	if m == nil {
		return
	}
	m.Checks.WithLabelValues(class).Inc()
}

func (m *Metrics) IncrementRejection(class string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(class).Inc()
}

func (m *Metrics) IncrementStoreFailure() {
	if m == nil {
		return
	}
	m.StoreFailures.Inc()
}

func (m *Metrics) SetDegraded(degraded bool) {
	if m == nil {
		return
	}
	if degraded {
		m.Degraded.Set(1)
		return
	}
	m.Degraded.Set(0)
}
