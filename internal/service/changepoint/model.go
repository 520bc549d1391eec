package changepoint

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"RegimeScan/internal/domain/models"
)

const lnSqrt2Pi = 0.9189385332046727

// minStd keeps prior scales positive for a degenerate flat series; the
// posterior over breakpoints is then diffuse, which the diagnostics report.
const minStd = 1e-9

// ModelConfig is the full configuration surface of one run. All knobs are
// explicit inputs; nothing is baked into the model.
type ModelConfig struct {
	Regimes int    // K, fixed per run (>= 2)
	Chains  int    // independent MCMC chains
	Draws   int    // retained draws per chain
	WarmUp  int    // discarded adaptation iterations per chain
	Seed    uint64 // base seed; chain c uses Seed + c

	// Weakly informative prior multipliers, applied to the data std. The
	// data is meant to dominate inference.
	MeanScale  float64 // mu_k ~ Normal(mean(y), MeanScale*std(y)), default 10
	SigmaScale float64 // sigma_k ~ HalfNormal(SigmaScale*std(y)), default 2
}

// State is one point of the joint parameter space: K-1 ordered breakpoint
// indices plus K regime means and volatilities on the log scale.
type State struct {
	Taus   []int
	Mus    []float64
	Sigmas []float64
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	c := &State{
		Taus:   make([]int, len(s.Taus)),
		Mus:    make([]float64, len(s.Mus)),
		Sigmas: make([]float64, len(s.Sigmas)),
	}
	copy(c.Taus, s.Taus)
	copy(c.Mus, s.Mus)
	copy(c.Sigmas, s.Sigmas)
	return c
}

// Model is the generative change-point specification: uniform ordered
// breakpoint priors, Normal regime-mean priors, HalfNormal volatility priors
// and a Normal likelihood on the log scale. Log densities are explicit
// functions so the Metropolis acceptance ratio is transparent and
// deterministic.
type Model struct {
	cfg    ModelConfig
	series *models.ObservationSeries
	data   []float64
	n      int

	dataMean   float64
	dataStd    float64
	muPrior    distuv.Normal
	sigmaPrior distuv.Normal // centered; folded to half-normal in LogPrior
}

// NewModel validates the configuration against the series and precomputes
// the prior hyperparameters. Validation failures reject the run before any
// sampling begins.
func NewModel(cfg ModelConfig, series *models.ObservationSeries) (*Model, error) {
	if series == nil {
		return nil, fmt.Errorf("%w: nil observation series", ErrInvalidConfig)
	}
	if cfg.Regimes < 2 {
		return nil, fmt.Errorf("%w: regime count %d, need at least 2", ErrInvalidConfig, cfg.Regimes)
	}
	if series.Len() < 2*cfg.Regimes {
		return nil, fmt.Errorf("%w: %d observations for %d regimes, need at least %d",
			ErrInvalidConfig, series.Len(), cfg.Regimes, 2*cfg.Regimes)
	}
	if cfg.Chains < 1 {
		return nil, fmt.Errorf("%w: chain count %d, need at least 1", ErrInvalidConfig, cfg.Chains)
	}
	if cfg.Draws < 1 {
		return nil, fmt.Errorf("%w: draw count %d, need at least 1", ErrInvalidConfig, cfg.Draws)
	}
	if cfg.WarmUp < 0 {
		return nil, fmt.Errorf("%w: negative warm-up %d", ErrInvalidConfig, cfg.WarmUp)
	}
	if cfg.MeanScale <= 0 {
		cfg.MeanScale = 10
	}
	if cfg.SigmaScale <= 0 {
		cfg.SigmaScale = 2
	}

	data := series.Values()
	mean := stat.Mean(data, nil)
	sd := stat.StdDev(data, nil)
	if math.IsNaN(sd) || sd < minStd {
		sd = minStd
	}

	return &Model{
		cfg:        cfg,
		series:     series,
		data:       data,
		n:          len(data),
		dataMean:   mean,
		dataStd:    sd,
		muPrior:    distuv.Normal{Mu: mean, Sigma: cfg.MeanScale * sd},
		sigmaPrior: distuv.Normal{Mu: 0, Sigma: cfg.SigmaScale * sd},
	}, nil
}

// Config returns the run configuration.
func (m *Model) Config() ModelConfig { return m.cfg }

// N returns the observation count.
func (m *Model) N() int { return m.n }

// Series returns the modeled observation series.
func (m *Model) Series() *models.ObservationSeries { return m.series }

// DataStd returns the global std of the log series (proposal scale basis).
func (m *Model) DataStd() float64 { return m.dataStd }

// ValidTaus reports whether taus satisfy 0 < tau_1 < ... < tau_{K-1} < N.
func (m *Model) ValidTaus(taus []int) bool {
	prev := 0
	for _, t := range taus {
		if t <= prev || t >= m.n {
			return false
		}
		prev = t
	}
	return true
}

// LogPrior evaluates the joint log prior. Orderings that violate the strict
// breakpoint constraint and non-positive volatilities have zero mass.
func (m *Model) LogPrior(s *State) float64 {
	if !m.ValidTaus(s.Taus) {
		return math.Inf(-1)
	}
	lp := 0.0
	for _, mu := range s.Mus {
		lp += m.muPrior.LogProb(mu)
	}
	for _, sig := range s.Sigmas {
		if sig <= 0 {
			return math.Inf(-1)
		}
		// half-normal: fold the centered normal onto the positive axis
		lp += math.Ln2 + m.sigmaPrior.LogProb(sig)
	}
	return lp
}

// LogLikelihood evaluates sum_t log Normal(y_t; mu_k(t), sigma_k(t)) where
// observation t belongs to regime k with tau_{k-1} <= t < tau_k (tau_0 = 0,
// tau_K = N). Assumes a valid ordering.
func (m *Model) LogLikelihood(s *State) float64 {
	ll := 0.0
	start := 0
	for k := 0; k < m.cfg.Regimes; k++ {
		end := m.n
		if k < len(s.Taus) {
			end = s.Taus[k]
		}
		mu, sig := s.Mus[k], s.Sigmas[k]
		if sig <= 0 {
			return math.Inf(-1)
		}
		var ss float64
		for t := start; t < end; t++ {
			d := m.data[t] - mu
			ss += d * d
		}
		nk := float64(end - start)
		ll += -nk*(lnSqrt2Pi+math.Log(sig)) - ss/(2*sig*sig)
		start = end
	}
	return ll
}

// LogPosterior is the unnormalized joint log density driving the sampler.
func (m *Model) LogPosterior(s *State) float64 {
	lp := m.LogPrior(s)
	if math.IsInf(lp, -1) {
		return lp
	}
	return lp + m.LogLikelihood(s)
}

// InitialState places breakpoints evenly and seeds each regime with its
// segment mean and std. Every chain starts here; exploration comes from the
// per-chain random streams.
func (m *Model) InitialState() *State {
	k := m.cfg.Regimes
	s := &State{
		Taus:   make([]int, k-1),
		Mus:    make([]float64, k),
		Sigmas: make([]float64, k),
	}
	for i := 0; i < k-1; i++ {
		s.Taus[i] = (i + 1) * m.n / k
	}
	start := 0
	for r := 0; r < k; r++ {
		end := m.n
		if r < k-1 {
			end = s.Taus[r]
		}
		seg := m.data[start:end]
		s.Mus[r] = stat.Mean(seg, nil)
		sd := stat.StdDev(seg, nil)
		if math.IsNaN(sd) || sd < minStd {
			sd = m.dataStd
		}
		s.Sigmas[r] = sd
		start = end
	}
	return s
}
