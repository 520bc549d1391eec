package changepoint

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"RegimeScan/internal/domain/models"
)

const (
	// RHatThreshold flags chain disagreement (potential scale reduction).
	RHatThreshold = 1.05
	// ESSThreshold flags insufficient effective exploration.
	ESSThreshold = 400
	// MinDiagnosticDraws is the fewest retained draws per chain that still
	// give meaningful split-chain halves.
	MinDiagnosticDraws = 20
)

// Diagnoser computes split-chain R-hat and autocorrelation-adjusted ESS per
// parameter across chains.
type Diagnoser struct{}

// NewDiagnoser creates a convergence diagnostics engine.
func NewDiagnoser() *Diagnoser { return &Diagnoser{} }

// Report reduces the ensemble to a convergence report. It fails with
// ErrDiagnosticsUnavailable when R-hat is undefined (fewer than two chains
// or too few draws) rather than fabricating values.
func (d *Diagnoser) Report(e *models.Ensemble) (*models.ConvergenceReport, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: no ensemble", ErrDiagnosticsUnavailable)
	}
	if e.Chains() < 2 {
		return nil, fmt.Errorf("%w: %d chains, need at least 2", ErrDiagnosticsUnavailable, e.Chains())
	}
	if e.DrawsPerChain() < MinDiagnosticDraws {
		return nil, fmt.Errorf("%w: %d draws per chain, need at least %d",
			ErrDiagnosticsUnavailable, e.DrawsPerChain(), MinDiagnosticDraws)
	}

	report := &models.ConvergenceReport{
		MaxRHat: math.Inf(-1),
		MinESS:  math.Inf(1),
	}
	add := func(name string, chains [][]float64) {
		halves := splitHalves(chains)
		pd := models.ParameterDiagnostic{
			Name: name,
			RHat: rHat(halves),
			ESS:  effectiveSampleSize(halves),
		}
		report.Parameters = append(report.Parameters, pd)
		if pd.RHat > report.MaxRHat {
			report.MaxRHat = pd.RHat
		}
		if pd.ESS < report.MinESS {
			report.MinESS = pd.ESS
		}
	}

	for i := 0; i < e.Breakpoints(); i++ {
		chains := make([][]float64, e.Chains())
		for c := range chains {
			chains[c] = e.TauChain(i, c)
		}
		add(fmt.Sprintf("tau[%d]", i+1), chains)
	}
	for k := 0; k < e.Regimes(); k++ {
		muChains := make([][]float64, e.Chains())
		sigChains := make([][]float64, e.Chains())
		for c := 0; c < e.Chains(); c++ {
			muChains[c] = e.MuChain(k, c)
			sigChains[c] = e.SigmaChain(k, c)
		}
		add(fmt.Sprintf("mu[%d]", k+1), muChains)
		add(fmt.Sprintf("sigma[%d]", k+1), sigChains)
	}

	report.Converged = report.MaxRHat < RHatThreshold && report.MinESS > ESSThreshold
	return report, nil
}

// splitHalves doubles the chain count by splitting each chain in two, the
// standard guard against within-chain trends masquerading as agreement. Odd
// trailing draws are dropped.
func splitHalves(chains [][]float64) [][]float64 {
	out := make([][]float64, 0, 2*len(chains))
	for _, c := range chains {
		h := len(c) / 2
		out = append(out, c[:h], c[h:2*h])
	}
	return out
}

// rHat is the potential scale reduction factor: sqrt of the pooled-variance
// estimate over the mean within-chain variance. Identical constant chains
// give 1; divergent constant chains give +Inf.
func rHat(chains [][]float64) float64 {
	m := len(chains)
	n := len(chains[0])

	means := make([]float64, m)
	vars := make([]float64, m)
	for j, c := range chains {
		means[j], vars[j] = stat.MeanVariance(c, nil)
	}
	w := stat.Mean(vars, nil)
	b := float64(n) * stat.Variance(means, nil)
	varPlus := float64(n-1)/float64(n)*w + b/float64(n)

	if w == 0 {
		if b == 0 {
			return 1
		}
		return math.Inf(1)
	}
	return math.Sqrt(varPlus / w)
}

// effectiveSampleSize estimates independent-equivalent draw count using the
// Geyer initial monotone sequence over chain-averaged autocorrelations.
func effectiveSampleSize(chains [][]float64) float64 {
	m := len(chains)
	n := len(chains[0])
	total := float64(m * n)

	means := make([]float64, m)
	vars := make([]float64, m)
	for j, c := range chains {
		means[j], vars[j] = stat.MeanVariance(c, nil)
	}
	w := stat.Mean(vars, nil)
	b := float64(n) * stat.Variance(means, nil)
	varPlus := float64(n-1)/float64(n)*w + b/float64(n)
	if varPlus == 0 {
		// all draws identical: no autocorrelation structure to correct for
		return total
	}

	rho := func(lag int) float64 {
		acSum := 0.0
		for j, c := range chains {
			acSum += autocovariance(c, means[j], lag)
		}
		return 1 - (w-acSum/float64(m))/varPlus
	}

	// pair lags (Geyer): sum while pair sums stay positive and monotone
	tau := 1.0
	prevPair := math.Inf(1)
	for lag := 1; lag+1 < n; lag += 2 {
		pair := rho(lag) + rho(lag + 1)
		if pair <= 0 {
			break
		}
		if pair > prevPair {
			pair = prevPair
		}
		tau += 2 * pair
		prevPair = pair
	}
	if tau < 1 {
		tau = 1
	}
	return total / tau
}

// autocovariance is the biased (1/n) lag-t autocovariance, the conventional
// estimator for ESS computation.
func autocovariance(x []float64, mean float64, lag int) float64 {
	n := len(x)
	if lag >= n {
		return 0
	}
	var s float64
	for i := 0; i+lag < n; i++ {
		s += (x[i] - mean) * (x[i+lag] - mean)
	}
	return s / float64(n)
}
