// Package series is the preparation adapter between the external cleaning
// pipeline and the change-point model: it validates the gap-free cleaned
// price series, applies the log transform, and hands the model an immutable
// observation sequence.
package series

import (
	"fmt"
	"math"
	"time"

	"RegimeScan/internal/domain/models"
)

// Prepare validates the cleaned series preconditions explicitly (equal
// lengths, positive prices) rather than trusting them, log-transforms the
// prices, and freezes the result. Date ordering is enforced by the series
// constructor.
func Prepare(name string, dates []time.Time, prices []float64) (*models.ObservationSeries, error) {
	if len(prices) == 0 {
		return nil, fmt.Errorf("series %q: no observations", name)
	}
	if len(dates) != len(prices) {
		return nil, fmt.Errorf("series %q: %d dates but %d prices", name, len(dates), len(prices))
	}
	logValues := make([]float64, len(prices))
	for i, p := range prices {
		if math.IsNaN(p) || p <= 0 {
			return nil, fmt.Errorf("series %q: non-positive price %v at row %d (%s); log transform would fail",
				name, p, i, dates[i].Format("2006-01-02"))
		}
		logValues[i] = math.Log(p)
	}
	return models.NewObservationSeries(name, dates, logValues)
}

// Window restricts the raw series to [from, to] inclusive before preparation,
// mirroring the focus-window selection of the analysis. Zero bounds are
// unbounded.
func Window(dates []time.Time, prices []float64, from, to time.Time) ([]time.Time, []float64) {
	outDates := make([]time.Time, 0, len(dates))
	outPrices := make([]float64, 0, len(prices))
	for i, d := range dates {
		if !from.IsZero() && d.Before(from) {
			continue
		}
		if !to.IsZero() && d.After(to) {
			continue
		}
		outDates = append(outDates, d)
		outPrices = append(outPrices, prices[i])
	}
	return outDates, outPrices
}
