package models

import "fmt"

// ChainDraws holds the retained post-warm-up draws of a single chain.
// Ordering within the slices is the Markov iteration order.
type ChainDraws struct {
	Chain  int
	Taus   [][]int     // [draw][breakpoint]
	Mus    [][]float64 // [draw][regime]
	Sigmas [][]float64 // [draw][regime]
}

// Ensemble is the frozen collection of post-warm-up draws across all chains.
// It is assembled once after the chain join barrier and then only read.
type Ensemble struct {
	seriesLen int
	regimes   int
	draws     int
	chains    []ChainDraws
}

// NewEnsemble validates per-chain draw sequences for uniform shape and
// freezes them. seriesLen is N, the observation count the taus index into.
func NewEnsemble(seriesLen int, chains []ChainDraws) (*Ensemble, error) {
	if len(chains) == 0 {
		return nil, fmt.Errorf("ensemble: no chains")
	}
	draws := len(chains[0].Taus)
	if draws == 0 {
		return nil, fmt.Errorf("ensemble: chain 0 has no draws")
	}
	regimes := len(chains[0].Mus[0])
	for _, c := range chains {
		if len(c.Taus) != draws || len(c.Mus) != draws || len(c.Sigmas) != draws {
			return nil, fmt.Errorf("ensemble: chain %d draw count mismatch", c.Chain)
		}
		for d := range c.Taus {
			if len(c.Taus[d]) != regimes-1 || len(c.Mus[d]) != regimes || len(c.Sigmas[d]) != regimes {
				return nil, fmt.Errorf("ensemble: chain %d draw %d parameter shape mismatch", c.Chain, d)
			}
		}
	}
	return &Ensemble{seriesLen: seriesLen, regimes: regimes, draws: draws, chains: chains}, nil
}

// SeriesLen returns N, the length of the modeled series.
func (e *Ensemble) SeriesLen() int { return e.seriesLen }

// Regimes returns K.
func (e *Ensemble) Regimes() int { return e.regimes }

// Breakpoints returns K-1.
func (e *Ensemble) Breakpoints() int { return e.regimes - 1 }

// Chains returns the chain count.
func (e *Ensemble) Chains() int { return len(e.chains) }

// DrawsPerChain returns the retained draws per chain.
func (e *Ensemble) DrawsPerChain() int { return e.draws }

// TauChain returns breakpoint i of chain c as a float sequence in iteration
// order, for the diagnostics engine.
func (e *Ensemble) TauChain(i, c int) []float64 {
	out := make([]float64, e.draws)
	for d := 0; d < e.draws; d++ {
		out[d] = float64(e.chains[c].Taus[d][i])
	}
	return out
}

// MuChain returns regime mean k of chain c in iteration order.
func (e *Ensemble) MuChain(k, c int) []float64 {
	out := make([]float64, e.draws)
	for d := 0; d < e.draws; d++ {
		out[d] = e.chains[c].Mus[d][k]
	}
	return out
}

// SigmaChain returns regime volatility k of chain c in iteration order.
func (e *Ensemble) SigmaChain(k, c int) []float64 {
	out := make([]float64, e.draws)
	for d := 0; d < e.draws; d++ {
		out[d] = e.chains[c].Sigmas[d][k]
	}
	return out
}

// TauSamples returns breakpoint i pooled across all chains.
func (e *Ensemble) TauSamples(i int) []int {
	out := make([]int, 0, e.draws*len(e.chains))
	for _, c := range e.chains {
		for d := 0; d < e.draws; d++ {
			out = append(out, c.Taus[d][i])
		}
	}
	return out
}

// MuSamples returns regime mean k pooled across all chains.
func (e *Ensemble) MuSamples(k int) []float64 {
	out := make([]float64, 0, e.draws*len(e.chains))
	for _, c := range e.chains {
		for d := 0; d < e.draws; d++ {
			out = append(out, c.Mus[d][k])
		}
	}
	return out
}

// SigmaSamples returns regime volatility k pooled across all chains.
func (e *Ensemble) SigmaSamples(k int) []float64 {
	out := make([]float64, 0, e.draws*len(e.chains))
	for _, c := range e.chains {
		for d := 0; d < e.draws; d++ {
			out = append(out, c.Sigmas[d][k])
		}
	}
	return out
}

// EachDraw calls fn for every retained draw of every chain. The slices passed
// to fn are the frozen backing arrays and must not be mutated.
func (e *Ensemble) EachDraw(fn func(chain, draw int, taus []int, mus, sigmas []float64)) {
	for _, c := range e.chains {
		for d := 0; d < e.draws; d++ {
			fn(c.Chain, d, c.Taus[d], c.Mus[d], c.Sigmas[d])
		}
	}
}
