package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the history archive.
type Metrics struct {
	RecordsArchived prometheus.Counter
	RecordsRemoved  prometheus.Counter
	Exports         *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		RecordsArchived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watchdesk_history_records_archived_total",
			Help: "Cases cleared into the history archive",
		}),
		RecordsRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watchdesk_history_records_removed_total",
			Help: "History records removed by administrative cleanup",
		}),
		Exports: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "watchdesk_history_exports_total",
			Help: "History record exports to object storage by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncrementArchived() {
	if m == nil {
		return
	}
	m.RecordsArchived.Inc()
}

func (m *Metrics) AddRemoved(n int) {
	if m == nil {
		return
	}
	m.RecordsRemoved.Add(float64(n))
}

// RecordExport counts an export attempt; result is "ok" or "error".
func (m *Metrics) RecordExport(result string) {
	if m == nil {
		return
	}
	m.Exports.WithLabelValues(result).Inc()
}
