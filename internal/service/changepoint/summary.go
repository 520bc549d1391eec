package changepoint

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"RegimeScan/internal/domain/models"
)

// CredibleMass is the highest-density interval mass reported per breakpoint.
const CredibleMass = 0.90

// Summarizer reduces a frozen draw ensemble to regime summaries and
// breakpoint estimates, mapping observation indices back to calendar dates
// through the series.
type Summarizer struct {
	series *models.ObservationSeries
}

// NewSummarizer creates a summarizer bound to the modeled series.
func NewSummarizer(series *models.ObservationSeries) *Summarizer {
	return &Summarizer{series: series}
}

// Summarize derives the ordered regime summaries and per-breakpoint
// estimates. lowConfidence (non-convergence or missing diagnostics) is
// stamped onto every summary so no derived output looks more certain than
// the posterior warrants.
func (s *Summarizer) Summarize(e *models.Ensemble, lowConfidence bool) ([]models.RegimeSummary, []models.BreakpointEstimate) {
	k := e.Regimes()

	breakpoints := make([]models.BreakpointEstimate, e.Breakpoints())
	for i := range breakpoints {
		breakpoints[i] = s.estimateBreakpoint(e.TauSamples(i))
	}

	regimes := make([]models.RegimeSummary, k)
	for r := 0; r < k; r++ {
		mu := stat.Mean(e.MuSamples(r), nil)
		sigma := stat.Mean(e.SigmaSamples(r), nil)

		rs := models.RegimeSummary{
			Regime:        r + 1,
			LogMean:       mu,
			LogSigma:      sigma,
			MeanPrice:     PriceScaleMean(mu, sigma),
			Volatility:    PriceScaleVolatility(mu, sigma),
			LowConfidence: lowConfidence,
		}
		if r == 0 {
			rs.StartDate = s.series.StartDate()
		} else {
			rs.StartDate = breakpoints[r-1].Date
		}
		if r == k-1 {
			rs.EndDate = s.series.EndDate()
		} else {
			bp := breakpoints[r]
			rs.EndDate = bp.Date
			rs.Breakpoint = &bp
		}
		regimes[r] = rs
	}
	return regimes, breakpoints
}

// estimateBreakpoint collapses one breakpoint posterior: mode (ties broken
// toward the earlier index, with the runner-up mode's mass reported rather
// than discarded), posterior mean index, and the 90% highest-density
// interval over sampled positions.
func (s *Summarizer) estimateBreakpoint(samples []int) models.BreakpointEstimate {
	counts := make(map[int]int)
	sum := 0.0
	for _, v := range samples {
		counts[v]++
		sum += float64(v)
	}
	total := float64(len(samples))

	mode, modeCount := -1, -1
	second, secondCount := -1, 0
	positions := make([]int, 0, len(counts))
	for p := range counts {
		positions = append(positions, p)
	}
	sort.Ints(positions)
	for _, p := range positions {
		c := counts[p]
		if c > modeCount {
			second, secondCount = mode, modeCount
			mode, modeCount = p, c
		} else if c > secondCount {
			second, secondCount = p, c
		}
	}

	lo, hi := hdi(samples, CredibleMass)
	est := models.BreakpointEstimate{
		Index:            mode,
		Date:             s.series.DateAtClamped(mode),
		MeanIndex:        sum / total,
		ModeMass:         float64(modeCount) / total,
		IntervalLow:      lo,
		IntervalHigh:     hi,
		IntervalLowDate:  s.series.DateAtClamped(lo),
		IntervalHighDate: s.series.DateAtClamped(hi),
		IntervalMass:     CredibleMass,
	}
	if second >= 0 {
		est.SecondModeIndex = second
		est.SecondModeMass = float64(secondCount) / total
	} else {
		est.SecondModeIndex = -1
	}
	return est
}

// hdi returns the shortest interval of sorted samples containing the given
// mass: the sliding window of ceil(mass*n) consecutive order statistics with
// the smallest span.
func hdi(samples []int, mass float64) (lo, hi int) {
	sorted := make([]int, len(samples))
	copy(sorted, samples)
	sort.Ints(sorted)

	n := len(sorted)
	window := int(math.Ceil(mass * float64(n)))
	if window < 1 {
		window = 1
	}
	if window > n {
		window = n
	}

	bestLo, bestHi := sorted[0], sorted[n-1]
	bestSpan := bestHi - bestLo
	for i := 0; i+window <= n; i++ {
		span := sorted[i+window-1] - sorted[i]
		if span < bestSpan {
			bestSpan = span
			bestLo, bestHi = sorted[i], sorted[i+window-1]
		}
	}
	return bestLo, bestHi
}

// PriceScaleMean back-transforms a log-scale regime mean to the price scale,
// with the log-normal volatility adjustment: E[P] = exp(mu + sigma^2/2).
func PriceScaleMean(mu, sigma float64) float64 {
	return math.Exp(mu + sigma*sigma/2)
}

// PriceScaleVolatility is the log-normal standard deviation on the price
// scale: E[P] * sqrt(exp(sigma^2) - 1).
func PriceScaleVolatility(mu, sigma float64) float64 {
	return PriceScaleMean(mu, sigma) * math.Sqrt(math.Expm1(sigma*sigma))
}

// LogScaleMean inverts PriceScaleMean for a known sigma, recovering the
// log-scale mean from a price-scale one.
func LogScaleMean(meanPrice, sigma float64) float64 {
	return math.Log(meanPrice) - sigma*sigma/2
}
