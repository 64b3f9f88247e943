// Package dataset down-samples the hourly year into representative days.
package dataset

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"

	"mes_planner/internal/model"
	"mes_planner/internal/store"
)

// HoursPerDay is the block length of a real day.
const HoursPerDay = 24

// DaySelectionError reports a request for more representative days than
// the data holds.
type DaySelectionError struct {
	Requested int
	Available int
}

func (e *DaySelectionError) Error() string {
	return fmt.Sprintf("requested %d representative days but the data only contains %d full days", e.Requested, e.Available)
}

// Dataset holds the selected hours, numDays*HoursPerDay rows, in day order.
type Dataset struct {
	Timestamps  []time.Time
	Values      map[model.Series][]float64
	Weights     []float64
	Days        []int // index of each selected day in the source year
	TotalDays   int
	HoursPerDay int
}

// NumDays returns the number of representative days.
func (d *Dataset) NumDays() int {
	return len(d.Weights)
}

// Rows returns the number of selected hours.
func (d *Dataset) Rows() int {
	return len(d.Timestamps)
}

// Series returns the selected values of one series.
func (d *Dataset) Series(s model.Series) []float64 {
	return d.Values[s]
}

// Day returns the representative day a row belongs to.
func (d *Dataset) Day(row int) int {
	return row / d.HoursPerDay
}

// Validate checks the shape invariants.
func (d *Dataset) Validate() error {
	if d.HoursPerDay < 1 {
		return fmt.Errorf("dataset: hours per day must be positive, got %d", d.HoursPerDay)
	}
	if len(d.Weights) == 0 {
		return fmt.Errorf("dataset: no representative days")
	}
	rows := len(d.Weights) * d.HoursPerDay
	if len(d.Timestamps) != rows {
		return fmt.Errorf("dataset: %d timestamps for %d days of %d hours", len(d.Timestamps), len(d.Weights), d.HoursPerDay)
	}
	for _, s := range model.RequiredSeries {
		v, ok := d.Values[s]
		if !ok {
			return fmt.Errorf("dataset: missing series %s", s)
		}
		if len(v) != rows {
			return fmt.Errorf("dataset: series %s has %d rows, want %d", s, len(v), rows)
		}
	}
	for i, w := range d.Weights {
		if w <= 0 {
			return fmt.Errorf("dataset: weight of day %d must be positive, got %v", i, w)
		}
	}
	return nil
}

// DayIndices picks numDays evenly spaced day indices in [0, total-1].
// The count is not checked against total.
func DayIndices(total, numDays int) []int {
	if numDays == 1 {
		return []int{0}
	}
	points := make([]float64, numDays)
	floats.Span(points, 0, float64(total-1))
	out := make([]int, numDays)
	for i, p := range points {
		out[i] = int(p)
	}
	return out
}

// SelectRepresentativeDays samples numDays evenly spaced real days and
// scales the gas price by gasPriceMultiplier.
func SelectRepresentativeDays(s *store.Store, numDays int, gasPriceMultiplier float64) (*Dataset, error) {
	return Select(s, numDays, HoursPerDay, gasPriceMultiplier)
}

// Select is SelectRepresentativeDays with a configurable day length.
func Select(s *store.Store, numDays, hoursPerDay int, gasPriceMultiplier float64) (*Dataset, error) {
	if hoursPerDay < 1 {
		return nil, fmt.Errorf("hours per day must be positive, got %d", hoursPerDay)
	}
	if numDays < 1 {
		return nil, fmt.Errorf("number of representative days must be at least 1, got %d", numDays)
	}
	total := s.Rows(model.RequiredSeries) / hoursPerDay
	if numDays > total {
		return nil, &DaySelectionError{Requested: numDays, Available: total}
	}

	days := DayIndices(total, numDays)
	weight := float64(total) / float64(numDays)

	ds := &Dataset{
		Values:      make(map[model.Series][]float64),
		Weights:     make([]float64, numDays),
		Days:        days,
		TotalDays:   total,
		HoursPerDay: hoursPerDay,
	}
	for i := range ds.Weights {
		ds.Weights[i] = weight
	}

	series := s.Series()
	for _, day := range days {
		from, to := day*hoursPerDay, (day+1)*hoursPerDay
		for _, id := range series {
			readings := s.Slice(id, from, to)
			if len(readings) != hoursPerDay {
				// Extra columns may be shorter than the required ones.
				continue
			}
			for _, r := range readings {
				ds.Values[id] = append(ds.Values[id], r.Value)
			}
		}
		for _, r := range s.Slice(model.SeriesElecLoad, from, to) {
			ds.Timestamps = append(ds.Timestamps, r.Timestamp)
		}
	}

	// Drop partial extra columns so every series has the same length.
	for id, v := range ds.Values {
		if len(v) != ds.Rows() {
			delete(ds.Values, id)
		}
	}

	if gas, ok := ds.Values[model.SeriesGasPrice]; ok {
		floats.Scale(gasPriceMultiplier, gas)
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}
