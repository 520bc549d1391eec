package repository

import (
	"context"

	"RegimeScan/internal/domain/models"
)

// ResultStore persists analysis results for downstream presentation layers.
type ResultStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, r *models.AnalysisResult) error
	Health(ctx context.Context) error
	Close() error
}

// ResultPublisher emits completed analysis results to a message bus.
type ResultPublisher interface {
	Publish(ctx context.Context, r *models.AnalysisResult) error
	Close() error
}

// ResultCache keeps the latest result per series for cheap reads.
type ResultCache interface {
	SetLatest(ctx context.Context, r *models.AnalysisResult) error
	Latest(ctx context.Context, series string) (*models.AnalysisResult, error)
}

// Metrics records sampler and pipeline instrumentation.
type Metrics interface {
	RecordRun(status string)
	RecordProposals(block string, accepted, rejected uint64)
	RecordChainDuration(seconds float64)
	RecordError(kind string)
}
