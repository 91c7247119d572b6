// Package telemetry carries the small hooks store backends use to report
// degraded operations without depending on the metrics package.
package telemetry

// FailureRecorder counts degraded store operations per backend and operation.
type FailureRecorder interface {
	StoreFailure(backend, op string)
}

// Record forwards to r when it is set.
func Record(r FailureRecorder, backend, op string) {
	if r != nil {
		r.StoreFailure(backend, op)
	}
}
