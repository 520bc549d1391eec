package changepoint

import "errors"

var (
	// ErrInvalidConfig rejects a run before any sampling cost is incurred.
	ErrInvalidConfig = errors.New("changepoint: invalid configuration")

	// ErrRunAborted marks a run stopped by context cancellation. No ensemble
	// is returned for an aborted run; a partial one would be mislabeled as
	// complete.
	ErrRunAborted = errors.New("changepoint: run aborted")

	// ErrDiagnosticsUnavailable means R-hat/ESS cannot be computed for the
	// ensemble. This is distinct from a computed report with Converged=false.
	ErrDiagnosticsUnavailable = errors.New("changepoint: convergence diagnostics unavailable")
)
