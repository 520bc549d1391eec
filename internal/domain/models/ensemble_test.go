package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chain(id, draws int) ChainDraws {
	c := ChainDraws{Chain: id}
	for d := 0; d < draws; d++ {
		c.Taus = append(c.Taus, []int{10 + d})
		c.Mus = append(c.Mus, []float64{1, 2})
		c.Sigmas = append(c.Sigmas, []float64{0.1, 0.2})
	}
	return c
}

func TestNewEnsembleShape(t *testing.T) {
	e, err := NewEnsemble(100, []ChainDraws{chain(0, 5), chain(1, 5)})
	require.NoError(t, err)

	assert.Equal(t, 100, e.SeriesLen())
	assert.Equal(t, 2, e.Chains())
	assert.Equal(t, 5, e.DrawsPerChain())
	assert.Equal(t, 2, e.Regimes())
	assert.Equal(t, 1, e.Breakpoints())
}

func TestNewEnsembleRejectsMismatch(t *testing.T) {
	_, err := NewEnsemble(100, nil)
	assert.Error(t, err)

	_, err = NewEnsemble(100, []ChainDraws{chain(0, 5), chain(1, 4)})
	assert.Error(t, err, "uneven draw counts")

	bad := chain(0, 3)
	bad.Mus[1] = []float64{1}
	_, err = NewEnsemble(100, []ChainDraws{bad})
	assert.Error(t, err, "parameter shape mismatch")
}

func TestEnsembleAccessors(t *testing.T) {
	e, err := NewEnsemble(100, []ChainDraws{chain(0, 3), chain(1, 3)})
	require.NoError(t, err)

	assert.Equal(t, []float64{10, 11, 12}, e.TauChain(0, 0))
	assert.Equal(t, []int{10, 11, 12, 10, 11, 12}, e.TauSamples(0))
	assert.Equal(t, []float64{2, 2, 2, 2, 2, 2}, e.MuSamples(1))
	assert.Equal(t, []float64{0.1, 0.1, 0.1}, e.SigmaChain(0, 1))

	visits := 0
	e.EachDraw(func(chain, draw int, taus []int, mus, sigmas []float64) {
		visits++
	})
	assert.Equal(t, 6, visits)
}
