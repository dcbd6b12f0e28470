package document_processor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"time"
)

type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeFallback  Outcome = "fallback"
	// OutcomePartial is a document that got its visible mark but not its invisible one.
	OutcomePartial  Outcome = "partial"
	OutcomeRejected Outcome = "rejected"
	OutcomeError    Outcome = "error"
)

// Metrics holds the processor metrics. A nil *Metrics records nothing.
type Metrics struct {
	documentsTotal     *prometheus.CounterVec
	processingDuration *prometheus.HistogramVec
}

// NewMetrics registers the processor metrics on reg. It returns nil when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	factory := promauto.With(reg)
	return &Metrics{
		documentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docguard_documents_total",
				Help: "Total number of processed documents, by route and outcome",
			},
			[]string{"route", "outcome"},
		),
		processingDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docguard_processing_duration_seconds",
				Help:    "Document processing duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"route"},
		),
	}
}

func (m *Metrics) RecordDocument(route Route, outcome Outcome, duration time.Duration) {
	if m == nil {
		return
	}
	m.documentsTotal.WithLabelValues(route.String(), string(outcome)).Inc()
	m.processingDuration.WithLabelValues(route.String()).Observe(duration.Seconds())
}
