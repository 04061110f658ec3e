package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Strategy labels for evaluation metrics.
const (
	StrategyFirstMatch = "first_match"
	StrategyCollectAll = "collect_all"
)

// Metrics holds the engine's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	evaluations   *prometheus.CounterVec
	warnings      prometheus.Counter
	configErrors  prometheus.Counter
	snapshotRules prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ordergate_evaluations_total",
				Help: "Rule selections performed, by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ordergate_evaluation_warnings_total",
			Help: "Conditions that failed closed because a record value could not be coerced",
		}),
		configErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ordergate_configuration_errors_total",
			Help: "Rules excluded from evaluation because they failed validation",
		}),
		snapshotRules: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ordergate_snapshot_rules",
			Help: "Number of evaluable rules in the most recently loaded snapshot",
		}),
	}

	for _, c := range []prometheus.Collector{m.evaluations, m.warnings, m.configErrors, m.snapshotRules} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveEvaluation counts one selection. matches is the number of matched rules.
func (m *Metrics) ObserveEvaluation(strategy string, matches, warnings int) {
	if m == nil {
		return
	}
	outcome := "no_match"
	if matches > 0 {
		outcome = "match"
	}
	m.evaluations.WithLabelValues(strategy, outcome).Inc()
	m.warnings.Add(float64(warnings))
}

// ConfigurationError counts one excluded rule.
func (m *Metrics) ConfigurationError() {
	if m == nil {
		return
	}
	m.configErrors.Inc()
}

// SetSnapshotRules records the size of the latest snapshot.
func (m *Metrics) SetSnapshotRules(n int) {
	if m == nil {
		return
	}
	m.snapshotRules.Set(float64(n))
}
