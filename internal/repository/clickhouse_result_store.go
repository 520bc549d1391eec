package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"RegimeScan/internal/domain/models"
	domrepo "RegimeScan/internal/domain/repository"
	pkgch "RegimeScan/pkg/clickhouse"
	applogger "RegimeScan/pkg/logger"
)

var schemaStatements = []string{
	`CREATE DATABASE IF NOT EXISTS regimescan`,
	`CREATE TABLE IF NOT EXISTS regimescan.regime_summaries (
        run_id         String,
        series         String,
        regime         UInt8,
        start_date     Date,
        end_date       Date,
        log_mean       Float64,
        log_sigma      Float64,
        mean_price     Float64,
        volatility     Float64,
        low_confidence UInt8,
        completed_at   DateTime
    ) ENGINE = MergeTree()
    ORDER BY (series, completed_at, regime)`,
	`CREATE TABLE IF NOT EXISTS regimescan.change_points (
        run_id           String,
        series           String,
        position         UInt8,
        idx              UInt32,
        date             Date,
        mean_index       Float64,
        mode_mass        Float64,
        second_mode_mass Float64,
        interval_low     UInt32,
        interval_high    UInt32,
        interval_mass    Float64,
        completed_at     DateTime
    ) ENGINE = MergeTree()
    ORDER BY (series, completed_at, position)`,
	`CREATE TABLE IF NOT EXISTS regimescan.impact_records (
        run_id             String,
        series             String,
        from_regime        UInt8,
        to_regime          UInt8,
        transition_date    Date,
        price_pct_change   Float64,
        vol_pct_change     Float64,
        low_confidence     UInt8,
        completed_at       DateTime
    ) ENGINE = MergeTree()
    ORDER BY (series, completed_at, from_regime)`,
}

// CHResultStore persists analysis results into ClickHouse, one row per
// regime, change point and impact record.
type CHResultStore struct {
	client *pkgch.Client
	db     *sql.DB
	l      *applogger.Logger
}

func NewCHResultStore(client *pkgch.Client, l *applogger.Logger) *CHResultStore {
	return &CHResultStore{client: client, db: client.DB(), l: l}
}

var _ domrepo.ResultStore = (*CHResultStore)(nil)

func (s *CHResultStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, schemaStatements)
}

func (s *CHResultStore) Store(ctx context.Context, r *models.AnalysisResult) error {
	start := time.Now()

	if err := s.storeRegimes(ctx, r); err != nil {
		return fmt.Errorf("store regimes: %w", err)
	}
	if err := s.storeBreakpoints(ctx, r); err != nil {
		return fmt.Errorf("store change points: %w", err)
	}
	if err := s.storeImpacts(ctx, r); err != nil {
		return fmt.Errorf("store impacts: %w", err)
	}

	if s.l != nil {
		s.l.Info("clickhouse store ok",
			applogger.String("run_id", r.RunID),
			applogger.String("series", r.Series),
			applogger.Int("regimes", len(r.Regimes)),
			applogger.Int("change_points", len(r.Breakpoints)),
			applogger.Int("impacts", len(r.Impacts)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *CHResultStore) storeRegimes(ctx context.Context, r *models.AnalysisResult) error {
	const q = `INSERT INTO regimescan.regime_summaries
        (run_id, series, regime, start_date, end_date, log_mean, log_sigma, mean_price, volatility, low_confidence, completed_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, reg := range r.Regimes {
		_, err := s.db.ExecContext(ctx, q,
			r.RunID,
			r.Series,
			uint8(reg.Regime),
			reg.StartDate,
			reg.EndDate,
			reg.LogMean,
			reg.LogSigma,
			reg.MeanPrice,
			reg.Volatility,
			boolToUInt8(reg.LowConfidence),
			r.CompletedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *CHResultStore) storeBreakpoints(ctx context.Context, r *models.AnalysisResult) error {
	const q = `INSERT INTO regimescan.change_points
        (run_id, series, position, idx, date, mean_index, mode_mass, second_mode_mass, interval_low, interval_high, interval_mass, completed_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for i, bp := range r.Breakpoints {
		_, err := s.db.ExecContext(ctx, q,
			r.RunID,
			r.Series,
			uint8(i+1),
			uint32(bp.Index),
			bp.Date,
			bp.MeanIndex,
			bp.ModeMass,
			bp.SecondModeMass,
			uint32(bp.IntervalLow),
			uint32(bp.IntervalHigh),
			bp.IntervalMass,
			r.CompletedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *CHResultStore) storeImpacts(ctx context.Context, r *models.AnalysisResult) error {
	const q = `INSERT INTO regimescan.impact_records
        (run_id, series, from_regime, to_regime, transition_date, price_pct_change, vol_pct_change, low_confidence, completed_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, imp := range r.Impacts {
		_, err := s.db.ExecContext(ctx, q,
			r.RunID,
			r.Series,
			uint8(imp.FromRegime),
			uint8(imp.ToRegime),
			imp.TransitionDate,
			imp.PricePctChange,
			imp.VolatilityPctChange,
			boolToUInt8(imp.LowConfidence),
			r.CompletedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *CHResultStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *CHResultStore) Close() error {
	return s.client.Close()
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
