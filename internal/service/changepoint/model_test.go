package changepoint

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RegimeScan/internal/domain/models"
)

func testSeries(t *testing.T, values []float64) *models.ObservationSeries {
	t.Helper()
	dates := make([]time.Time, len(values))
	base := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = base.AddDate(0, 0, i)
	}
	s, err := models.NewObservationSeries("test", dates, values)
	require.NoError(t, err)
	return s
}

// constantShiftSeries builds a log-price series with a level shift at the
// given index and small deterministic wiggle so segment stds are non-zero.
func constantShiftSeries(t *testing.T, n, shiftAt int, lo, hi float64) *models.ObservationSeries {
	t.Helper()
	values := make([]float64, n)
	for i := range values {
		level := lo
		if i >= shiftAt {
			level = hi
		}
		values[i] = level + 0.001*math.Sin(float64(i))
	}
	return testSeries(t, values)
}

func TestNewModelRejectsBadConfig(t *testing.T) {
	series := constantShiftSeries(t, 100, 50, math.Log(50), math.Log(90))

	cases := []struct {
		name string
		cfg  ModelConfig
	}{
		{"one regime", ModelConfig{Regimes: 1, Chains: 2, Draws: 10}},
		{"zero chains", ModelConfig{Regimes: 2, Chains: 0, Draws: 10}},
		{"zero draws", ModelConfig{Regimes: 2, Chains: 2, Draws: 0}},
		{"negative warm-up", ModelConfig{Regimes: 2, Chains: 2, Draws: 10, WarmUp: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewModel(tc.cfg, series)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestNewModelRejectsShortSeries(t *testing.T) {
	// N equal to K cannot host K non-empty regimes with room to move.
	series := testSeries(t, []float64{1, 2})
	_, err := NewModel(ModelConfig{Regimes: 2, Chains: 1, Draws: 10}, series)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	series4 := testSeries(t, []float64{1, 2, 3, 4})
	_, err = NewModel(ModelConfig{Regimes: 3, Chains: 1, Draws: 10}, series4)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewModelRejectsNilSeries(t *testing.T) {
	_, err := NewModel(ModelConfig{Regimes: 2, Chains: 1, Draws: 10}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidTaus(t *testing.T) {
	series := constantShiftSeries(t, 100, 50, 1, 2)
	m, err := NewModel(ModelConfig{Regimes: 3, Chains: 1, Draws: 10}, series)
	require.NoError(t, err)

	assert.True(t, m.ValidTaus([]int{30, 60}))
	assert.False(t, m.ValidTaus([]int{60, 30}), "out of order")
	assert.False(t, m.ValidTaus([]int{30, 30}), "equal breakpoints")
	assert.False(t, m.ValidTaus([]int{0, 60}), "first regime empty")
	assert.False(t, m.ValidTaus([]int{30, 100}), "last regime empty")
}

func TestLogPriorZeroMassStates(t *testing.T) {
	series := constantShiftSeries(t, 100, 50, 1, 2)
	m, err := NewModel(ModelConfig{Regimes: 2, Chains: 1, Draws: 10}, series)
	require.NoError(t, err)

	good := &State{Taus: []int{50}, Mus: []float64{1, 2}, Sigmas: []float64{0.1, 0.1}}
	assert.False(t, math.IsInf(m.LogPrior(good), -1))

	badOrder := &State{Taus: []int{100}, Mus: []float64{1, 2}, Sigmas: []float64{0.1, 0.1}}
	assert.True(t, math.IsInf(m.LogPrior(badOrder), -1))

	badSigma := &State{Taus: []int{50}, Mus: []float64{1, 2}, Sigmas: []float64{0.1, -0.1}}
	assert.True(t, math.IsInf(m.LogPrior(badSigma), -1))
}

func TestLogLikelihoodPrefersTrueBreak(t *testing.T) {
	series := constantShiftSeries(t, 200, 100, math.Log(50), math.Log(90))
	m, err := NewModel(ModelConfig{Regimes: 2, Chains: 1, Draws: 10}, series)
	require.NoError(t, err)

	mus := []float64{math.Log(50), math.Log(90)}
	sigmas := []float64{0.01, 0.01}

	atTruth := m.LogLikelihood(&State{Taus: []int{100}, Mus: mus, Sigmas: sigmas})
	offTruth := m.LogLikelihood(&State{Taus: []int{60}, Mus: mus, Sigmas: sigmas})
	assert.Greater(t, atTruth, offTruth)
}

func TestInitialStateShapeAndValidity(t *testing.T) {
	series := constantShiftSeries(t, 90, 30, 1, 2)
	m, err := NewModel(ModelConfig{Regimes: 3, Chains: 1, Draws: 10}, series)
	require.NoError(t, err)

	s := m.InitialState()
	require.Len(t, s.Taus, 2)
	require.Len(t, s.Mus, 3)
	require.Len(t, s.Sigmas, 3)
	assert.Equal(t, []int{30, 60}, s.Taus)
	assert.True(t, m.ValidTaus(s.Taus))
	for _, sig := range s.Sigmas {
		assert.Positive(t, sig)
	}
	assert.False(t, math.IsInf(m.LogPosterior(s), -1))
}

func TestInitialStateFlatSeries(t *testing.T) {
	// A perfectly flat series must not produce zero prior scales or a
	// degenerate posterior evaluation.
	values := make([]float64, 60)
	for i := range values {
		values[i] = math.Log(75)
	}
	series := testSeries(t, values)
	m, err := NewModel(ModelConfig{Regimes: 2, Chains: 1, Draws: 10}, series)
	require.NoError(t, err)

	s := m.InitialState()
	for _, sig := range s.Sigmas {
		assert.Positive(t, sig)
	}
	lp := m.LogPosterior(s)
	assert.False(t, math.IsNaN(lp))
}

func TestStateClone(t *testing.T) {
	s := &State{Taus: []int{10}, Mus: []float64{1, 2}, Sigmas: []float64{0.1, 0.2}}
	c := s.Clone()
	c.Taus[0] = 99
	c.Mus[0] = 99
	assert.Equal(t, 10, s.Taus[0])
	assert.Equal(t, 1.0, s.Mus[0])
}
