package service

import (
	"context"

	"RegimeScan/internal/domain/models"
)

// PosteriorSampler produces the frozen draw ensemble for one run. Run blocks
// until every chain has completed (or the context is cancelled, in which
// case no ensemble is returned).
type PosteriorSampler interface {
	Run(ctx context.Context) (*models.Ensemble, error)
}

// ConvergenceDiagnoser reduces an ensemble to a convergence report. It
// returns a diagnostics-unavailable error when the ensemble cannot support
// R-hat (fewer than two chains or too few draws).
type ConvergenceDiagnoser interface {
	Report(e *models.Ensemble) (*models.ConvergenceReport, error)
}
