package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes repository state to Prometheus.
type Metrics struct {
	// LogsStored is the number of committed entries after the last read or write.
	LogsStored prometheus.Gauge

	// DraftPresent is 1 while a draft is persisted.
	DraftPresent prometheus.Gauge

	// CorruptReads counts values that failed to decode.
	// Labels: key
	CorruptReads *prometheus.CounterVec

	// Operations counts repository calls.
	// Labels: op, result (success, error, not_found)
	Operations *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LogsStored: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "imxin",
			Subsystem: "storage",
			Name:      "logs_stored",
			Help:      "Number of committed check-in entries",
		}),
		DraftPresent: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "imxin",
			Subsystem: "storage",
			Name:      "draft_present",
			Help:      "Whether an in-progress draft is persisted (1) or not (0)",
		}),
		CorruptReads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "imxin",
			Subsystem: "storage",
			Name:      "corrupt_reads_total",
			Help:      "Persisted values that could not be decoded and were treated as absent",
		}, []string{"key"}),
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "imxin",
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Repository operations by outcome",
		}, []string{"op", "result"}),
	}
}

func (m *Metrics) record(op string, err error) {
	switch {
	case err == nil:
		m.Operations.WithLabelValues(op, "success").Inc()
	case isNotFound(err):
		m.Operations.WithLabelValues(op, "not_found").Inc()
	default:
		m.Operations.WithLabelValues(op, "error").Inc()
	}
}

func (m *Metrics) setDraft(present bool) {
	if present {
		m.DraftPresent.Set(1)
		return
	}
	m.DraftPresent.Set(0)
}
