package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the case lifecycle.
type Metrics struct {
	Mutations        *prometheus.CounterVec
	StatusChanges    *prometheus.CounterVec
	Denied           *prometheus.CounterVec
	MutationDuration *prometheus.HistogramVec
	ActiveCases      prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		Mutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "watchdesk_case_mutations_total",
			Help: "Successful case mutations by operation",
		}, []string{"op"}),
		StatusChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "watchdesk_case_status_changes_total",
			Help: "Status transitions by target status label",
		}, []string{"status"}),
		Denied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "watchdesk_case_denied_total",
			Help: "Case operations rejected by the access policy",
		}, []string{"op"}),
		MutationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "watchdesk_case_mutation_duration_seconds",
			Help:    "Duration of case mutations including the transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"op"}),
		ActiveCases: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "watchdesk_active_cases",
			Help: "Active cases seen by the last full listing",
		}),
	}
}

// ObserveMutation records a completed mutation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveMutation(op string, start time.Time) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(op).Inc()
	m.MutationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementStatusChange(status string) {
	if m == nil {
		return
	}
	m.StatusChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementDenied(op string) {
	if m == nil {
		return
	}
	m.Denied.WithLabelValues(op).Inc()
}

func (m *Metrics) SetActiveCases(n int) {
	if m == nil {
		return
	}
	m.ActiveCases.Set(float64(n))
}
