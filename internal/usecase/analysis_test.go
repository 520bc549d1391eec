package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RegimeScan/internal/domain/models"
	"RegimeScan/internal/service/changepoint"
	"RegimeScan/pkg/logger"
)

type fakeSampler struct {
	ensemble *models.Ensemble
	err      error
}

func (f *fakeSampler) Run(ctx context.Context) (*models.Ensemble, error) {
	return f.ensemble, f.err
}

type fakeDiagnoser struct {
	report *models.ConvergenceReport
	err    error
}

func (f *fakeDiagnoser) Report(e *models.Ensemble) (*models.ConvergenceReport, error) {
	return f.report, f.err
}

type fakeStore struct {
	stored []*models.AnalysisResult
	err    error
}

func (f *fakeStore) Init(ctx context.Context) error   { return nil }
func (f *fakeStore) Health(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                     { return nil }
func (f *fakeStore) Store(ctx context.Context, r *models.AnalysisResult) error {
	f.stored = append(f.stored, r)
	return f.err
}

type fakePublisher struct {
	published []*models.AnalysisResult
	err       error
}

func (f *fakePublisher) Close() error { return nil }
func (f *fakePublisher) Publish(ctx context.Context, r *models.AnalysisResult) error {
	f.published = append(f.published, r)
	return f.err
}

type fakeCache struct {
	latest map[string]*models.AnalysisResult
	err    error
}

func (f *fakeCache) SetLatest(ctx context.Context, r *models.AnalysisResult) error {
	if f.err != nil {
		return f.err
	}
	if f.latest == nil {
		f.latest = map[string]*models.AnalysisResult{}
	}
	f.latest[r.Series] = r
	return nil
}

func (f *fakeCache) Latest(ctx context.Context, series string) (*models.AnalysisResult, error) {
	r, ok := f.latest[series]
	if !ok {
		return nil, errors.New("miss")
	}
	return r, nil
}

type fakeMetrics struct {
	runs   map[string]int
	errors map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{runs: map[string]int{}, errors: map[string]int{}}
}

func (f *fakeMetrics) RecordRun(status string)                                 { f.runs[status]++ }
func (f *fakeMetrics) RecordProposals(block string, accepted, rejected uint64) {}
func (f *fakeMetrics) RecordChainDuration(seconds float64)                     {}
func (f *fakeMetrics) RecordError(kind string)                                 { f.errors[kind]++ }

func testSeries(t *testing.T, n int) *models.ObservationSeries {
	t.Helper()
	dates := make([]time.Time, n)
	values := make([]float64, n)
	base := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = base.AddDate(0, 0, i)
		values[i] = math.Log(50) + 0.001*math.Sin(float64(i))
		if i >= n/2 {
			values[i] = math.Log(90) + 0.001*math.Sin(float64(i))
		}
	}
	s, err := models.NewObservationSeries("brent", dates, values)
	require.NoError(t, err)
	return s
}

func testEnsemble(t *testing.T, n, chains, draws int) *models.Ensemble {
	t.Helper()
	cd := make([]models.ChainDraws, chains)
	for c := 0; c < chains; c++ {
		cd[c] = models.ChainDraws{Chain: c}
		for d := 0; d < draws; d++ {
			cd[c].Taus = append(cd[c].Taus, []int{n / 2})
			cd[c].Mus = append(cd[c].Mus, []float64{math.Log(50), math.Log(90)})
			cd[c].Sigmas = append(cd[c].Sigmas, []float64{0.05, 0.05})
		}
	}
	e, err := models.NewEnsemble(n, cd)
	require.NoError(t, err)
	return e
}

func convergedReport() *models.ConvergenceReport {
	return &models.ConvergenceReport{
		Parameters: []models.ParameterDiagnostic{{Name: "tau[1]", RHat: 1.0, ESS: 1000}},
		MaxRHat:    1.0,
		MinESS:     1000,
		Converged:  true,
	}
}

func testConfig() changepoint.ModelConfig {
	return changepoint.ModelConfig{Regimes: 2, Chains: 2, Draws: 50, WarmUp: 10, Seed: 42}
}

func TestExecuteDeliversToAllSinks(t *testing.T) {
	series := testSeries(t, 100)
	store := &fakeStore{}
	pub := &fakePublisher{}
	cache := &fakeCache{}
	metrics := newFakeMetrics()
	runner := NewAnalysisRunner(&fakeDiagnoser{report: convergedReport()}, store, pub, cache, metrics, logger.Nop())

	sampler := &fakeSampler{ensemble: testEnsemble(t, 100, 2, 50)}
	result, err := runner.execute(context.Background(), sampler, series, testConfig())
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "brent", result.Series)
	assert.Equal(t, 100, result.Observations)
	assert.True(t, result.DiagnosticsAvailable)
	assert.False(t, result.LowConfidence)
	require.Len(t, result.Regimes, 2)
	require.Len(t, result.Breakpoints, 1)
	require.Len(t, result.Impacts, 1)
	assert.Equal(t, 50, result.Breakpoints[0].Index)

	require.Len(t, store.stored, 1)
	require.Len(t, pub.published, 1)
	cached, err := cache.Latest(context.Background(), "brent")
	require.NoError(t, err)
	assert.Equal(t, result.RunID, cached.RunID)
	assert.Equal(t, 1, metrics.runs["completed"])
}

func TestExecuteDiagnosticsUnavailable(t *testing.T) {
	series := testSeries(t, 100)
	diag := &fakeDiagnoser{err: changepoint.ErrDiagnosticsUnavailable}
	metrics := newFakeMetrics()
	runner := NewAnalysisRunner(diag, nil, nil, nil, metrics, logger.Nop())

	sampler := &fakeSampler{ensemble: testEnsemble(t, 100, 1, 50)}
	result, err := runner.execute(context.Background(), sampler, series, testConfig())
	require.NoError(t, err)

	assert.False(t, result.DiagnosticsAvailable)
	assert.Nil(t, result.Convergence)
	assert.True(t, result.LowConfidence)
	for _, r := range result.Regimes {
		assert.True(t, r.LowConfidence)
	}
	for _, imp := range result.Impacts {
		assert.True(t, imp.LowConfidence)
	}
}

func TestExecuteNonConvergedFlagsLowConfidence(t *testing.T) {
	series := testSeries(t, 100)
	report := convergedReport()
	report.Converged = false
	report.MaxRHat = 2.3
	runner := NewAnalysisRunner(&fakeDiagnoser{report: report}, nil, nil, nil, newFakeMetrics(), logger.Nop())

	sampler := &fakeSampler{ensemble: testEnsemble(t, 100, 2, 50)}
	result, err := runner.execute(context.Background(), sampler, series, testConfig())
	require.NoError(t, err)

	assert.True(t, result.DiagnosticsAvailable)
	assert.True(t, result.LowConfidence)
}

func TestExecuteAbortedRun(t *testing.T) {
	series := testSeries(t, 100)
	metrics := newFakeMetrics()
	store := &fakeStore{}
	runner := NewAnalysisRunner(&fakeDiagnoser{report: convergedReport()}, store, nil, nil, metrics, logger.Nop())

	sampler := &fakeSampler{err: changepoint.ErrRunAborted}
	_, err := runner.execute(context.Background(), sampler, series, testConfig())
	assert.ErrorIs(t, err, changepoint.ErrRunAborted)
	assert.Equal(t, 1, metrics.runs["aborted"])
	assert.Empty(t, store.stored)
}

func TestExecuteSinkFailureDoesNotFailRun(t *testing.T) {
	series := testSeries(t, 100)
	store := &fakeStore{err: errors.New("clickhouse down")}
	pub := &fakePublisher{err: errors.New("kafka down")}
	cache := &fakeCache{err: errors.New("redis down")}
	metrics := newFakeMetrics()
	runner := NewAnalysisRunner(&fakeDiagnoser{report: convergedReport()}, store, pub, cache, metrics, logger.Nop())

	sampler := &fakeSampler{ensemble: testEnsemble(t, 100, 2, 50)}
	result, err := runner.execute(context.Background(), sampler, series, testConfig())
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, 1, metrics.errors["store"])
	assert.Equal(t, 1, metrics.errors["publish"])
	assert.Equal(t, 1, metrics.errors["cache"])
	assert.Equal(t, 1, metrics.runs["completed"])
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	series := testSeries(t, 100)
	metrics := newFakeMetrics()
	runner := NewAnalysisRunner(&fakeDiagnoser{report: convergedReport()}, nil, nil, nil, metrics, logger.Nop())

	cfg := testConfig()
	cfg.Regimes = 1
	_, err := runner.Run(context.Background(), series, cfg)
	assert.ErrorIs(t, err, changepoint.ErrInvalidConfig)
	assert.Equal(t, 1, metrics.runs["rejected"])
}

func TestRunEndToEnd(t *testing.T) {
	// Real sampler through the public entry point, small but sufficient.
	series := testSeries(t, 200)
	cache := &fakeCache{}
	runner := NewAnalysisRunner(changepoint.NewDiagnoser(), nil, nil, cache, newFakeMetrics(), logger.Nop())

	cfg := changepoint.ModelConfig{Regimes: 2, Chains: 2, Draws: 100, WarmUp: 100, Seed: 42}
	result, err := runner.Run(context.Background(), series, cfg)
	require.NoError(t, err)

	assert.True(t, result.DiagnosticsAvailable)
	require.Len(t, result.Breakpoints, 1)
	// the shift is at index 100 and the signal is strong
	assert.InDelta(t, 100, result.Breakpoints[0].Index, 5)

	// 50 -> 90 is an 80% jump in mean price level
	require.Len(t, result.Impacts, 1)
	assert.InDelta(t, 80, result.Impacts[0].PricePctChange, 3)
}
