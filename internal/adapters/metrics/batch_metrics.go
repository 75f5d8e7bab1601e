package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BatchMetricsCollector handles batch lifecycle metrics
type BatchMetricsCollector struct {
	transitionsTotal      *prometheus.CounterVec
	claimConflictsTotal   prometheus.Counter
	conflictUnitsTotal    prometheus.Counter
	cascadeDeletionsTotal *prometheus.CounterVec
}

// NewBatchMetricsCollector creates a new batch metrics collector
func NewBatchMetricsCollector() *BatchMetricsCollector {
	return &BatchMetricsCollector{
		// Stage transitions by stage, action, and outcome
		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "transitions_total",
				Help:      "Total number of batch stage transition attempts by stage, action, and outcome",
			},
			[]string{"stage", "action", "outcome"},
		),

		// Rejected claim attempts
		claimConflictsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "claim_conflicts_total",
				Help:      "Total number of unit claim attempts rejected because a unit was held by another batch",
			},
		),

		// Conflicting units across rejected claims
		conflictUnitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "claim_conflict_units_total",
				Help:      "Total number of units named in rejected claim attempts",
			},
		),

		// Downstream batches removed by reopen or delete
		cascadeDeletionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cascade_deletions_total",
				Help:      "Total number of downstream batches deleted by cascade, by originating stage",
			},
			[]string{"stage"},
		),
	}
}

// Register registers all batch metrics with the Prometheus registry
func (c *BatchMetricsCollector) Register() error {
	if Registry == nil {
		return nil // Metrics not enabled
	}

	metrics := []prometheus.Collector{
		c.transitionsTotal,
		c.claimConflictsTotal,
		c.conflictUnitsTotal,
		c.cascadeDeletionsTotal,
	}

	for _, metric := range metrics {
		if err := Registry.Register(metric); err != nil {
			return err
		}
	}

	return nil
}

// RecordTransition records a stage transition attempt
func (c *BatchMetricsCollector) RecordTransition(stage string, action string, outcome string) {
	c.transitionsTotal.WithLabelValues(stage, action, outcome).Inc()
}

// RecordClaimConflict records a rejected unit claim
func (c *BatchMetricsCollector) RecordClaimConflict(conflictCount int) {
	c.claimConflictsTotal.Inc()
	c.conflictUnitsTotal.Add(float64(conflictCount))
}

// RecordCascadeDeletion records downstream batches removed by cascade
func (c *BatchMetricsCollector) RecordCascadeDeletion(stage string, deletedCount int) {
	c.cascadeDeletionsTotal.WithLabelValues(stage).Add(float64(deletedCount))
}
