package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"RegimeScan/internal/domain/models"
	drepo "RegimeScan/internal/domain/repository"
	dsvc "RegimeScan/internal/domain/service"
	"RegimeScan/internal/service/changepoint"
	"RegimeScan/pkg/logger"
)

// AnalysisRunner orchestrates one detection run: model construction,
// sampling, diagnostics, summarization, impact quantification, and delivery
// of the result to the configured sinks. Summarization never starts before
// the sampler's join barrier — the ensemble handed downstream is frozen.
type AnalysisRunner struct {
	diagnoser dsvc.ConvergenceDiagnoser
	store     drepo.ResultStore     // optional
	publisher drepo.ResultPublisher // optional
	cache     drepo.ResultCache     // optional
	metrics   drepo.Metrics
	log       *logger.Logger
}

// NewAnalysisRunner creates the runner. Store, publisher and cache may be
// nil when the corresponding sink is disabled.
func NewAnalysisRunner(
	diagnoser dsvc.ConvergenceDiagnoser,
	store drepo.ResultStore,
	publisher drepo.ResultPublisher,
	cache drepo.ResultCache,
	metrics drepo.Metrics,
	log *logger.Logger,
) *AnalysisRunner {
	return &AnalysisRunner{
		diagnoser: diagnoser,
		store:     store,
		publisher: publisher,
		cache:     cache,
		metrics:   metrics,
		log:       log,
	}
}

// Run executes a full analysis for the series under the given configuration.
// Configuration errors reject the run before any sampling cost; an aborted
// context propagates changepoint.ErrRunAborted with no result.
func (r *AnalysisRunner) Run(ctx context.Context, series *models.ObservationSeries, cfg changepoint.ModelConfig) (*models.AnalysisResult, error) {
	model, err := changepoint.NewModel(cfg, series)
	if err != nil {
		r.recordRun("rejected")
		return nil, err
	}
	sampler := changepoint.NewSampler(model, r.log, r.metrics)
	return r.execute(ctx, sampler, series, cfg)
}

// execute runs the pipeline behind the sampler interface so orchestration
// behavior is testable with a canned sampler.
func (r *AnalysisRunner) execute(ctx context.Context, sampler dsvc.PosteriorSampler, series *models.ObservationSeries, cfg changepoint.ModelConfig) (*models.AnalysisResult, error) {
	r.log.Info("starting analysis",
		logger.String("series", series.Name()),
		logger.Int("observations", series.Len()),
		logger.Int("regimes", cfg.Regimes),
		logger.Int("chains", cfg.Chains),
	)

	ensemble, err := sampler.Run(ctx)
	if err != nil {
		if errors.Is(err, changepoint.ErrRunAborted) {
			r.recordRun("aborted")
			return nil, err
		}
		r.recordRun("failed")
		return nil, fmt.Errorf("sampling: %w", err)
	}

	report, diagErr := r.diagnoser.Report(ensemble)
	available := diagErr == nil
	if diagErr != nil {
		if !errors.Is(diagErr, changepoint.ErrDiagnosticsUnavailable) {
			r.recordRun("failed")
			return nil, fmt.Errorf("diagnostics: %w", diagErr)
		}
		r.log.Warn("convergence diagnostics unavailable", logger.Error(diagErr))
	}

	lowConfidence := !available || !report.Converged
	if available && !report.Converged {
		r.log.Warn("chains may not have converged; estimates flagged low confidence",
			logger.Float64("max_r_hat", report.MaxRHat),
			logger.Float64("min_ess", report.MinESS),
		)
	}

	regimes, breakpoints := changepoint.NewSummarizer(series).Summarize(ensemble, lowConfidence)
	impacts := changepoint.QuantifyImpacts(regimes)

	result := &models.AnalysisResult{
		RunID:        uuid.NewString(),
		Series:       series.Name(),
		Observations: series.Len(),
		Config: models.RunConfig{
			Regimes: cfg.Regimes,
			Chains:  cfg.Chains,
			Draws:   cfg.Draws,
			WarmUp:  cfg.WarmUp,
			Seed:    cfg.Seed,
		},
		Convergence:          report,
		DiagnosticsAvailable: available,
		LowConfidence:        lowConfidence,
		Breakpoints:          breakpoints,
		Regimes:              regimes,
		Impacts:              impacts,
		CompletedAt:          time.Now().UTC(),
	}

	r.deliver(ctx, result)
	r.recordRun("completed")
	r.log.Info("analysis complete",
		logger.String("run_id", result.RunID),
		logger.Int("breakpoints", len(result.Breakpoints)),
		logger.Bool("low_confidence", result.LowConfidence),
	)
	return result, nil
}

// deliver fans the result out to the configured sinks. Sink failures are
// logged and counted; they never invalidate the computed result.
func (r *AnalysisRunner) deliver(ctx context.Context, result *models.AnalysisResult) {
	if r.store != nil {
		if err := r.store.Store(ctx, result); err != nil {
			r.metrics.RecordError("store")
			r.log.Error("result store failed", logger.Error(err))
		}
	}
	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, result); err != nil {
			r.metrics.RecordError("publish")
			r.log.Error("result publish failed", logger.Error(err))
		}
	}
	if r.cache != nil {
		if err := r.cache.SetLatest(ctx, result); err != nil {
			r.metrics.RecordError("cache")
			r.log.Error("result cache failed", logger.Error(err))
		}
	}
}

func (r *AnalysisRunner) recordRun(status string) {
	if r.metrics != nil {
		r.metrics.RecordRun(status)
	}
}
