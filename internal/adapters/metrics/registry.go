package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	// Namespace for all metrics
	namespace = "saphouse"
	// Subsystem for engine metrics
	subsystem = "engine"
)

var (
	// Registry is the global Prometheus registry for all metrics
	Registry *prometheus.Registry

	// globalBatchCollector is the singleton batch metrics collector
	// Set by SetGlobalBatchCollector() when metrics are enabled
	globalBatchCollector BatchMetricsRecorder
)

// BatchMetricsRecorder defines the interface for recording batch
// lifecycle events. Application code records through the package-level
// functions so it never depends on Prometheus directly.
type BatchMetricsRecorder interface {
	RecordTransition(stage string, action string, outcome string)
	RecordClaimConflict(conflictCount int)
	RecordCascadeDeletion(stage string, deletedCount int)
}

// InitRegistry initializes the Prometheus registry
// Should be called once at application startup if metrics are enabled
func InitRegistry() {
	Registry = prometheus.NewRegistry()
}

// GetRegistry returns the global Prometheus registry
// Returns nil if metrics are not initialized
func GetRegistry() *prometheus.Registry {
	return Registry
}

// IsEnabled returns true if metrics collection is enabled
func IsEnabled() bool {
	return Registry != nil
}

// SetGlobalBatchCollector sets the global batch metrics collector
func SetGlobalBatchCollector(collector BatchMetricsRecorder) {
	globalBatchCollector = collector
}

// RecordTransition records a stage transition attempt globally
func RecordTransition(stage string, action string, outcome string) {
	if globalBatchCollector != nil {
		globalBatchCollector.RecordTransition(stage, action, outcome)
	}
}

// RecordClaimConflict records a rejected unit claim globally
func RecordClaimConflict(conflictCount int) {
	if globalBatchCollector != nil {
		globalBatchCollector.RecordClaimConflict(conflictCount)
	}
}

// RecordCascadeDeletion records a downstream cascade deletion globally
func RecordCascadeDeletion(stage string, deletedCount int) {
	if globalBatchCollector != nil {
		globalBatchCollector.RecordCascadeDeletion(stage, deletedCount)
	}
}
