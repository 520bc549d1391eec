package changepoint

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/exp/rand"

	"RegimeScan/internal/domain/models"
)

// noisyShiftSeries builds a two-level log-price series with Gaussian noise
// from a fixed stream, shifting from priceLo to priceHi at shiftAt.
func noisyShiftSeries(t *testing.T, n, shiftAt int, priceLo, priceHi, noise float64, seed uint64) *models.ObservationSeries {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	values := make([]float64, n)
	for i := range values {
		level := math.Log(priceLo)
		if i >= shiftAt {
			level = math.Log(priceHi)
		}
		values[i] = level + noise*rng.NormFloat64()
	}
	return testSeries(t, values)
}

func runSampler(t *testing.T, series *models.ObservationSeries, cfg ModelConfig) *models.Ensemble {
	t.Helper()
	m, err := NewModel(cfg, series)
	require.NoError(t, err)
	e, err := NewSampler(m, nil, nil).Run(context.Background())
	require.NoError(t, err)
	return e
}

func TestSamplerEnsembleShape(t *testing.T) {
	series := noisyShiftSeries(t, 200, 100, 50, 90, 0.02, 7)
	cfg := ModelConfig{Regimes: 2, Chains: 3, Draws: 50, WarmUp: 50, Seed: 42}
	e := runSampler(t, series, cfg)

	assert.Equal(t, 3, e.Chains())
	assert.Equal(t, 50, e.DrawsPerChain())
	assert.Equal(t, 2, e.Regimes())
	assert.Equal(t, 1, e.Breakpoints())
	assert.Equal(t, 200, e.SeriesLen())
}

func TestSamplerEveryDrawSatisfiesOrdering(t *testing.T) {
	series := noisyShiftSeries(t, 150, 60, 50, 80, 0.05, 11)
	cfg := ModelConfig{Regimes: 3, Chains: 2, Draws: 100, WarmUp: 100, Seed: 1}
	m, err := NewModel(cfg, series)
	require.NoError(t, err)
	e := runSampler(t, series, cfg)

	e.EachDraw(func(chain, draw int, taus []int, mus, sigmas []float64) {
		require.True(t, m.ValidTaus(taus), "chain %d draw %d taus %v violate ordering", chain, draw, taus)
		for _, sig := range sigmas {
			require.Positive(t, sig, "chain %d draw %d", chain, draw)
		}
		for _, mu := range mus {
			require.False(t, math.IsNaN(mu), "chain %d draw %d", chain, draw)
		}
	})
}

func TestSamplerDeterministicForSeed(t *testing.T) {
	series := noisyShiftSeries(t, 120, 60, 50, 90, 0.02, 3)
	cfg := ModelConfig{Regimes: 2, Chains: 2, Draws: 40, WarmUp: 40, Seed: 99}

	e1 := runSampler(t, series, cfg)
	e2 := runSampler(t, series, cfg)

	assert.Equal(t, e1.TauSamples(0), e2.TauSamples(0))
	assert.Equal(t, e1.MuSamples(0), e2.MuSamples(0))
	assert.Equal(t, e1.SigmaSamples(1), e2.SigmaSamples(1))
}

func TestSamplerSeedChangesDraws(t *testing.T) {
	series := noisyShiftSeries(t, 120, 60, 50, 90, 0.02, 3)
	cfg := ModelConfig{Regimes: 2, Chains: 1, Draws: 60, WarmUp: 40, Seed: 1}
	other := cfg
	other.Seed = 2

	e1 := runSampler(t, series, cfg)
	e2 := runSampler(t, series, other)
	assert.NotEqual(t, e1.MuSamples(0), e2.MuSamples(0))
}

func TestSamplerAbortsOnCancel(t *testing.T) {
	series := noisyShiftSeries(t, 200, 100, 50, 90, 0.02, 5)
	m, err := NewModel(ModelConfig{Regimes: 2, Chains: 2, Draws: 100000, WarmUp: 1000, Seed: 42}, series)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewSampler(m, nil, nil).Run(ctx)
	assert.ErrorIs(t, err, ErrRunAborted)
}

func TestSamplerRecoversKnownBreak(t *testing.T) {
	// Strong level shift, low noise: the pooled tau posterior must
	// concentrate near the true position.
	const n, truth = 1000, 500
	series := noisyShiftSeries(t, n, truth, 50, 90, 0.02, 21)
	cfg := ModelConfig{Regimes: 2, Chains: 4, Draws: 500, WarmUp: 500, Seed: 42}
	e := runSampler(t, series, cfg)

	taus := e.TauSamples(0)
	within := 0
	for _, tau := range taus {
		if tau >= truth-5 && tau <= truth+5 {
			within++
		}
	}
	frac := float64(within) / float64(len(taus))
	assert.Greater(t, frac, 0.9, "only %.2f of tau mass within 5 of the true break", frac)

	// regime means must recover the two levels
	mu0 := mean(e.MuSamples(0))
	mu1 := mean(e.MuSamples(1))
	assert.InDelta(t, math.Log(50), mu0, 0.05)
	assert.InDelta(t, math.Log(90), mu1, 0.05)
}

func TestSamplerFlatSeriesCompletes(t *testing.T) {
	// No signal at all: the run must complete with a diffuse posterior,
	// not crash or hang.
	values := make([]float64, 80)
	for i := range values {
		values[i] = math.Log(75)
	}
	series := testSeries(t, values)
	cfg := ModelConfig{Regimes: 2, Chains: 2, Draws: 50, WarmUp: 50, Seed: 42}
	e := runSampler(t, series, cfg)
	assert.Equal(t, 50, e.DrawsPerChain())
}

func mean(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}
