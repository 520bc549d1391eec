package models

import "time"

// ParameterDiagnostic holds the convergence statistics of one parameter.
type ParameterDiagnostic struct {
	Name string  `json:"name"`
	RHat float64 `json:"r_hat"`
	ESS  float64 `json:"ess"`
}

// ConvergenceReport summarizes R-hat and ESS across all parameters of a run.
type ConvergenceReport struct {
	Parameters []ParameterDiagnostic `json:"parameters"`
	MaxRHat    float64               `json:"max_r_hat"`
	MinESS     float64               `json:"min_ess"`
	Converged  bool                  `json:"converged"`
}

// BreakpointEstimate collapses one breakpoint posterior to a point estimate
// plus a credible interval. SecondModeMass is non-zero when the posterior is
// multi-modal; the second mode is reported rather than silently discarded.
type BreakpointEstimate struct {
	Index           int       `json:"index"` // posterior mode over positions
	Date            time.Time `json:"date"`
	MeanIndex       float64   `json:"mean_index"`
	ModeMass        float64   `json:"mode_mass"`
	SecondModeIndex int       `json:"second_mode_index"`
	SecondModeMass  float64   `json:"second_mode_mass"`
	IntervalLow     int       `json:"interval_low"` // 90% HDI bounds
	IntervalHigh    int       `json:"interval_high"`
	IntervalLowDate time.Time `json:"interval_low_date"`
	IntervalHighDate time.Time `json:"interval_high_date"`
	IntervalMass    float64   `json:"interval_mass"`
}

// RegimeSummary is the per-regime reduction of the draw ensemble, with the
// mean back-transformed from the log scale to the price scale.
type RegimeSummary struct {
	Regime        int                 `json:"regime"` // 1-based
	StartDate     time.Time           `json:"start_date"`
	EndDate       time.Time           `json:"end_date"`
	LogMean       float64             `json:"log_mean"`
	LogSigma      float64             `json:"log_sigma"`
	MeanPrice     float64             `json:"mean_price"`
	Volatility    float64             `json:"volatility"`
	Breakpoint    *BreakpointEstimate `json:"breakpoint,omitempty"` // upper boundary, nil for last regime
	LowConfidence bool                `json:"low_confidence"`
}

// ImpactRecord is the economic delta between two adjacent regimes.
type ImpactRecord struct {
	FromRegime          int       `json:"from_regime"`
	ToRegime            int       `json:"to_regime"`
	TransitionDate      time.Time `json:"transition_date"`
	PricePctChange      float64   `json:"price_pct_change"`
	VolatilityPctChange float64   `json:"volatility_pct_change"`
	LowConfidence       bool      `json:"low_confidence"`
}

// RunConfig echoes the model configuration a result was produced with.
type RunConfig struct {
	Regimes int    `json:"regimes"`
	Chains  int    `json:"chains"`
	Draws   int    `json:"draws"`
	WarmUp  int    `json:"warm_up"`
	Seed    uint64 `json:"seed"`
}

// AnalysisResult is the flat output envelope handed to downstream consumers:
// regime summaries, breakpoint estimates, convergence report and impact
// records, exactly as computed, with low-confidence and
// diagnostics-unavailable states surfaced instead of hidden.
type AnalysisResult struct {
	RunID                string              `json:"run_id"`
	Series               string              `json:"series"`
	Observations         int                 `json:"observations"`
	Config               RunConfig           `json:"config"`
	Convergence          *ConvergenceReport  `json:"convergence,omitempty"`
	DiagnosticsAvailable bool                `json:"diagnostics_available"`
	LowConfidence        bool                `json:"low_confidence"`
	Breakpoints          []BreakpointEstimate `json:"breakpoints"`
	Regimes              []RegimeSummary     `json:"regimes"`
	Impacts              []ImpactRecord      `json:"impacts"`
	CompletedAt          time.Time           `json:"completed_at"`
}
