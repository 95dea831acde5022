package gcsmock

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// registerOnce ensures Register is idempotent.
var registerOnce sync.Once

// Operation outcome labels.
const (
	statusSuccess = "success"
	statusError   = "error"
)

var (
	// OperationsTotal counts simulated operations by operation name and
	// outcome, across every Storage instance in the process. Useful for
	// asserting the access patterns of code under test.
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gcsmock_operations_total",
			Help: "Simulated storage operations by type",
		},
		[]string{"operation", "status"},
	)

	// InjectedFaultsTotal counts fault-queue entries consumed, by operation.
	InjectedFaultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gcsmock_injected_faults_total",
			Help: "Injected faults consumed by operation",
		},
		[]string{"operation"},
	)

	// BytesStoredTotal counts bytes written into simulated objects via Save,
	// Put, Upload, and write streams.
	BytesStoredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gcsmock_bytes_stored_total",
			Help: "Total bytes written into simulated objects",
		},
	)
)

// Register registers the package's Prometheus collectors with the default
// registry. It must be called explicitly so that registration stays
// conditional on the consumer's configuration. Safe to call multiple times;
// subsequent calls are no-ops. Counters are updated whether or not they are
// registered.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			OperationsTotal,
			InjectedFaultsTotal,
			BytesStoredTotal,
		)
	})
}

func recordOp(operation, status string) {
	OperationsTotal.WithLabelValues(operation, status).Inc()
}

func recordFault(operation string) {
	InjectedFaultsTotal.WithLabelValues(operation).Inc()
}

func recordBytesStored(n int) {
	BytesStoredTotal.Add(float64(n))
}
