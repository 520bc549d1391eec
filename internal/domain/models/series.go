package models

import (
	"fmt"
	"math"
	"time"
)

// ObservationSeries is the log-transformed price series handed to the model.
// It is immutable once constructed: fields are unexported and accessors
// return copies, so sampling and summarization can share it freely.
type ObservationSeries struct {
	name   string
	dates  []time.Time
	values []float64 // log prices, parallel to dates
}

// NewObservationSeries validates the prepared series and freezes it.
// Dates must be strictly increasing and values finite (log of a positive
// price). Gap-filling is an upstream precondition, not re-checked here.
func NewObservationSeries(name string, dates []time.Time, values []float64) (*ObservationSeries, error) {
	if len(dates) == 0 {
		return nil, fmt.Errorf("series %q: no observations", name)
	}
	if len(dates) != len(values) {
		return nil, fmt.Errorf("series %q: %d dates but %d values", name, len(dates), len(values))
	}
	for i := range dates {
		if i > 0 && !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("series %q: dates not strictly increasing at row %d (%s <= %s)",
				name, i, dates[i].Format("2006-01-02"), dates[i-1].Format("2006-01-02"))
		}
		if math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			return nil, fmt.Errorf("series %q: non-finite value at row %d", name, i)
		}
	}

	s := &ObservationSeries{
		name:   name,
		dates:  make([]time.Time, len(dates)),
		values: make([]float64, len(values)),
	}
	copy(s.dates, dates)
	copy(s.values, values)
	return s, nil
}

// Name returns the series identifier (e.g. "brent").
func (s *ObservationSeries) Name() string { return s.name }

// Len returns the number of observations.
func (s *ObservationSeries) Len() int { return len(s.values) }

// Date returns the timestamp at index i.
func (s *ObservationSeries) Date(i int) time.Time { return s.dates[i] }

// Value returns the log price at index i.
func (s *ObservationSeries) Value(i int) float64 { return s.values[i] }

// Values returns a copy of the log-price values.
func (s *ObservationSeries) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// StartDate returns the first observation date.
func (s *ObservationSeries) StartDate() time.Time { return s.dates[0] }

// EndDate returns the last observation date.
func (s *ObservationSeries) EndDate() time.Time { return s.dates[len(s.dates)-1] }

// DateAtClamped maps an observation index to its date, clamping out-of-range
// indices to the series bounds.
func (s *ObservationSeries) DateAtClamped(i int) time.Time {
	if i < 0 {
		i = 0
	}
	if i >= len(s.dates) {
		i = len(s.dates) - 1
	}
	return s.dates[i]
}
