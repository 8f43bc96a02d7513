package fraud

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "carbon_ledger"
	metricsSubsystem = "fraud"
)

var (
	analysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "analyses_total",
			Help:      "Registration analyses by resulting risk level and verdict",
		},
		[]string{"risk_level", "fraudulent"},
	)

	riskScoreHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "risk_score",
			Help:      "Distribution of computed risk scores",
			Buckets:   []float64{0, 10, 25, 40, 50, 60, 70, 75, 85, 100},
		},
	)

	indicatorDetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "indicator_detections_total",
			Help:      "Number of times each indicator fired",
		},
		[]string{"indicator"},
	)

	persistenceFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "persistence_failures_total",
			Help:      "Analyses whose audit record could not be stored",
		},
	)

	rowsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "rows_skipped_total",
			Help:      "Stored results skipped by list queries because they could not be decoded",
		},
	)

	overridesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "overrides_total",
			Help:      "Administrative score overrides by resulting risk level",
		},
		[]string{"risk_level"},
	)

	cacheErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "cache_errors_total",
			Help:      "Statistics cache operations that failed and fell back to the database",
		},
		[]string{"op"},
	)
)

func recordAnalysis(r *FraudDetectionResult) {
	analysesTotal.WithLabelValues(string(r.RiskLevel), strconv.FormatBool(r.IsFraudulent)).Inc()
	riskScoreHistogram.Observe(r.RiskScore)
	for _, ind := range r.Indicators {
		if ind.Detected {
			indicatorDetectionsTotal.WithLabelValues(string(ind.Type)).Inc()
		}
	}
}
