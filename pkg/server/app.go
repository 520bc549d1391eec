package server

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"RegimeScan/internal/domain/models"
	"RegimeScan/internal/service/changepoint"
	"RegimeScan/internal/service/series"
	"RegimeScan/internal/usecase"
	pkgch "RegimeScan/pkg/clickhouse"
	"RegimeScan/pkg/config"
	applogger "RegimeScan/pkg/logger"
	"RegimeScan/pkg/util"
)

// App encapsulates the application lifecycle: load the input series, run
// the analysis, report the findings, release infrastructure clients.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	runner   *usecase.AnalysisRunner
	chClient *pkgch.Client
	closers  []func() error
}

// New creates a new App instance with all dependencies. chClient may be
// nil when ClickHouse output is disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	runner *usecase.AnalysisRunner,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		runner:   runner,
		chClient: chClient,
	}
}

// AddCloser registers a resource closed during shutdown.
func (a *App) AddCloser(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Run executes one analysis end to end. SIGINT or SIGTERM cancels the
// context; an in-flight sampler run stops at the next iteration and the
// run reports aborted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer a.shutdown()

	obs, err := a.loadSeries()
	if err != nil {
		a.log.Error("load series failed", applogger.Error(err))
		return err
	}
	a.log.Info("series loaded",
		applogger.String("series", obs.Name()),
		applogger.Int("observations", obs.Len()),
		applogger.String("start", obs.StartDate().Format("2006-01-02")),
		applogger.String("end", obs.EndDate().Format("2006-01-02")),
	)

	cfg := changepoint.ModelConfig{
		Regimes:    a.cfg.Model.Regimes,
		Chains:     a.cfg.Model.Chains,
		Draws:      a.cfg.Model.Draws,
		WarmUp:     a.cfg.Model.WarmUp,
		Seed:       a.cfg.Model.Seed,
		MeanScale:  a.cfg.Model.MeanScale,
		SigmaScale: a.cfg.Model.SigmaScale,
	}

	result, err := a.runner.Run(ctx, obs, cfg)
	if err != nil {
		a.log.Error("analysis failed", applogger.Error(err))
		return err
	}

	a.report(result)
	return nil
}

// loadSeries reads the configured CSV, applies the optional focus window
// and converts prices to the log scale.
func (a *App) loadSeries() (*models.ObservationSeries, error) {
	dates, prices, err := series.LoadCSV(a.cfg.Input.CSVPath)
	if err != nil {
		return nil, err
	}

	if a.cfg.Input.From != "" || a.cfg.Input.To != "" {
		from := util.ParseDateDefault(a.cfg.Input.From, time.Time{})
		to := util.ParseDateDefault(a.cfg.Input.To, time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC))
		dates, prices = series.Window(dates, prices, from, to)
	}

	return series.Prepare(a.cfg.Input.Series, dates, prices)
}

func (a *App) report(result *models.AnalysisResult) {
	if result.Convergence != nil {
		a.log.Info("convergence",
			applogger.Float64("max_r_hat", result.Convergence.MaxRHat),
			applogger.Float64("min_ess", result.Convergence.MinESS),
			applogger.Bool("converged", result.Convergence.Converged),
		)
	}
	for _, bp := range result.Breakpoints {
		a.log.Info("change point",
			applogger.String("date", bp.Date.Format("2006-01-02")),
			applogger.Int("index", bp.Index),
			applogger.Float64("mode_mass", bp.ModeMass),
			applogger.String("interval", bp.IntervalLowDate.Format("2006-01-02")+".."+bp.IntervalHighDate.Format("2006-01-02")),
		)
	}
	for _, reg := range result.Regimes {
		a.log.Info("regime",
			applogger.Int("regime", reg.Regime),
			applogger.String("start", reg.StartDate.Format("2006-01-02")),
			applogger.String("end", reg.EndDate.Format("2006-01-02")),
			applogger.Float64("mean_price", reg.MeanPrice),
			applogger.Float64("volatility", reg.Volatility),
		)
	}
	for _, imp := range result.Impacts {
		a.log.Info("impact",
			applogger.Int("from", imp.FromRegime),
			applogger.Int("to", imp.ToRegime),
			applogger.Float64("price_pct", imp.PricePctChange),
			applogger.Float64("volatility_pct", imp.VolatilityPctChange),
			applogger.Bool("low_confidence", imp.LowConfidence),
		)
	}
	if result.LowConfidence {
		a.log.Warn("estimates are low confidence; inspect convergence diagnostics before acting on them")
	}
}

// shutdown releases all infrastructure clients best effort.
func (a *App) shutdown() {
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			a.log.Warn("close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	a.log.Info("shutdown complete")
}
