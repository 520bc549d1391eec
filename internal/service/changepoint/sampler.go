package changepoint

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/exp/rand"

	"RegimeScan/internal/domain/models"
	drepo "RegimeScan/internal/domain/repository"
	"RegimeScan/pkg/logger"
)

const (
	adaptBatch       = 50   // iterations between proposal-scale updates
	targetAcceptance = 0.44 // single-site random-walk target
	maxTauWidthFrac  = 4    // tau window capped at N/maxTauWidthFrac
)

// Sampler runs the multi-chain Metropolis-within-Gibbs procedure over the
// model. Chains share no mutable state: each owns its random stream and its
// partial draw sequence, and the only synchronization point is the join
// barrier before ensemble assembly.
//
// Discrete breakpoint moves are a known slow mixer: with a weak signal,
// chains can settle in different modes. That surfaces as a poor convergence
// report downstream, never as a sampler failure.
type Sampler struct {
	model   *Model
	log     *logger.Logger
	metrics drepo.Metrics
}

// NewSampler creates a sampler for the model. metrics may be nil.
func NewSampler(model *Model, log *logger.Logger, metrics drepo.Metrics) *Sampler {
	return &Sampler{model: model, log: log, metrics: metrics}
}

// Run executes all chains and assembles the frozen draw ensemble. The
// returned ensemble is deterministic for a fixed configuration and seed.
// Cancellation stops every chain at its next iteration boundary and the run
// reports ErrRunAborted instead of a partial ensemble.
func (s *Sampler) Run(ctx context.Context) (*models.Ensemble, error) {
	cfg := s.model.Config()
	results := make([]models.ChainDraws, cfg.Chains)
	errs := make([]error, cfg.Chains)

	start := time.Now()
	var wg sync.WaitGroup
	for c := 0; c < cfg.Chains; c++ {
		wg.Add(1)
		go func(chain int) {
			defer wg.Done()
			results[chain], errs[chain] = s.runChain(ctx, chain)
		}(c)
	}
	wg.Wait() // the single barrier: nothing downstream starts before this

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	ensemble, err := models.NewEnsemble(s.model.N(), results)
	if err != nil {
		return nil, fmt.Errorf("assemble ensemble: %w", err)
	}

	if s.log != nil {
		s.log.Info("sampling complete",
			logger.Int("chains", cfg.Chains),
			logger.Int("draws_per_chain", cfg.Draws),
			logger.Int("warm_up", cfg.WarmUp),
			logger.Duration("elapsed", time.Since(start)),
		)
	}
	return ensemble, nil
}

// blockCounters tracks proposal outcomes for one parameter block.
type blockCounters struct {
	accepted uint64
	rejected uint64
	// batch-local counts drive warm-up adaptation
	batchAccepted int
	batchTotal    int
}

func (b *blockCounters) record(accepted bool) {
	if accepted {
		b.accepted++
		b.batchAccepted++
	} else {
		b.rejected++
	}
	b.batchTotal++
}

func (b *blockCounters) batchRate() float64 {
	if b.batchTotal == 0 {
		return targetAcceptance
	}
	return float64(b.batchAccepted) / float64(b.batchTotal)
}

func (b *blockCounters) resetBatch() {
	b.batchAccepted = 0
	b.batchTotal = 0
}

func (s *Sampler) runChain(ctx context.Context, chain int) (models.ChainDraws, error) {
	cfg := s.model.Config()
	n := s.model.N()
	k := cfg.Regimes
	rng := rand.New(rand.NewSource(cfg.Seed + uint64(chain)))

	state := s.model.InitialState()
	cur := s.model.LogPosterior(state)

	// per-site proposal scales, adapted during warm-up only
	tauWidth := make([]float64, k-1)
	muStep := make([]float64, k)
	sigStep := make([]float64, k)
	for i := range tauWidth {
		tauWidth[i] = math.Max(float64(n)/50, 2)
	}
	for r := 0; r < k; r++ {
		muStep[r] = math.Max(s.model.DataStd()/10, 1e-6)
		sigStep[r] = 0.1
	}

	var tauCtr, muCtr, sigCtr blockCounters
	out := models.ChainDraws{
		Chain:  chain,
		Taus:   make([][]int, 0, cfg.Draws),
		Mus:    make([][]float64, 0, cfg.Draws),
		Sigmas: make([][]float64, 0, cfg.Draws),
	}

	total := cfg.WarmUp + cfg.Draws
	chainStart := time.Now()
	for iter := 0; iter < total; iter++ {
		if err := ctx.Err(); err != nil {
			return models.ChainDraws{}, fmt.Errorf("%w: chain %d stopped at iteration %d/%d",
				ErrRunAborted, chain, iter, total)
		}
		warm := iter < cfg.WarmUp

		// breakpoint block: single-site integer random walk; ordering or
		// bound violations are rejected outright, the standard Metropolis
		// recovery for out-of-range proposals
		for i := 0; i < k-1; i++ {
			w := int(tauWidth[i])
			if w < 1 {
				w = 1
			}
			delta := 1 + rng.Intn(w)
			if rng.Intn(2) == 0 {
				delta = -delta
			}
			cand := state.Taus[i] + delta

			lo, hi := 1, n-1
			if i > 0 {
				lo = state.Taus[i-1] + 1
			}
			if i < k-2 {
				hi = state.Taus[i+1] - 1
			}
			if cand < lo || cand > hi {
				tauCtr.record(false)
				continue
			}

			old := state.Taus[i]
			state.Taus[i] = cand
			prop := s.model.LogPosterior(state)
			if acceptLog(rng, prop-cur) {
				cur = prop
				tauCtr.record(true)
			} else {
				state.Taus[i] = old
				tauCtr.record(false)
			}
		}

		// regime mean block: Gaussian random walk
		for r := 0; r < k; r++ {
			old := state.Mus[r]
			state.Mus[r] = old + muStep[r]*rng.NormFloat64()
			prop := s.model.LogPosterior(state)
			if acceptLog(rng, prop-cur) {
				cur = prop
				muCtr.record(true)
			} else {
				state.Mus[r] = old
				muCtr.record(false)
			}
		}

		// volatility block: multiplicative walk on the log scale; the
		// log(factor) term is the Jacobian of the reparametrization
		for r := 0; r < k; r++ {
			old := state.Sigmas[r]
			factor := math.Exp(sigStep[r] * rng.NormFloat64())
			state.Sigmas[r] = old * factor
			prop := s.model.LogPosterior(state)
			if acceptLog(rng, prop-cur+math.Log(factor)) {
				cur = prop
				sigCtr.record(true)
			} else {
				state.Sigmas[r] = old
				sigCtr.record(false)
			}
		}

		if warm && (iter+1)%adaptBatch == 0 {
			adjust := math.Exp(tauCtr.batchRate() - targetAcceptance)
			for i := range tauWidth {
				tauWidth[i] = clamp(tauWidth[i]*adjust, 1, float64(n)/maxTauWidthFrac)
			}
			adjust = math.Exp(muCtr.batchRate() - targetAcceptance)
			for r := range muStep {
				muStep[r] = clamp(muStep[r]*adjust, 1e-9, 10*s.model.DataStd()+1)
			}
			adjust = math.Exp(sigCtr.batchRate() - targetAcceptance)
			for r := range sigStep {
				sigStep[r] = clamp(sigStep[r]*adjust, 1e-4, 5)
			}
			tauCtr.resetBatch()
			muCtr.resetBatch()
			sigCtr.resetBatch()
		}

		if !warm {
			taus := make([]int, k-1)
			mus := make([]float64, k)
			sigmas := make([]float64, k)
			copy(taus, state.Taus)
			copy(mus, state.Mus)
			copy(sigmas, state.Sigmas)
			out.Taus = append(out.Taus, taus)
			out.Mus = append(out.Mus, mus)
			out.Sigmas = append(out.Sigmas, sigmas)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordProposals("tau", tauCtr.accepted, tauCtr.rejected)
		s.metrics.RecordProposals("mu", muCtr.accepted, muCtr.rejected)
		s.metrics.RecordProposals("sigma", sigCtr.accepted, sigCtr.rejected)
		s.metrics.RecordChainDuration(time.Since(chainStart).Seconds())
	}
	if s.log != nil {
		s.log.Debug("chain finished",
			logger.Int("chain", chain),
			logger.Int64("tau_accepted", int64(tauCtr.accepted)),
			logger.Int64("tau_rejected", int64(tauCtr.rejected)),
			logger.Duration("elapsed", time.Since(chainStart)),
		)
	}
	return out, nil
}

// acceptLog applies the Metropolis criterion on a log ratio. Non-finite
// ratios from numerical overflow reject the proposal instead of aborting the
// chain.
func acceptLog(rng *rand.Rand, logRatio float64) bool {
	if math.IsNaN(logRatio) {
		return false
	}
	if logRatio >= 0 {
		return true
	}
	return math.Log(rng.Float64()) < logRatio
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
