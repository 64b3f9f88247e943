package store

import (
	"sort"
	"sync"
	"time"

	"mes_planner/internal/model"
)

// Store holds hourly readings in memory, indexed by series.
type Store struct {
	mu       sync.RWMutex
	readings map[model.Series][]model.Reading // sorted by timestamp
}

func New() *Store {
	return &Store{
		readings: make(map[model.Series][]model.Reading),
	}
}

// AddReadings adds readings, then sorts each affected series by timestamp.
func (s *Store) AddReadings(readings []model.Reading) {
	if len(readings) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range readings {
		s.readings[r.Series] = append(s.readings[r.Series], r)
	}

	seen := make(map[model.Series]bool)
	for _, r := range readings {
		if !seen[r.Series] {
			seen[r.Series] = true
			rs := s.readings[r.Series]
			sort.SliceStable(rs, func(i, j int) bool {
				return rs[i].Timestamp.Before(rs[j].Timestamp)
			})
		}
	}
}

// Series returns the stored series names in sorted order.
func (s *Store) Series() []model.Series {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Series, 0, len(s.readings))
	for id := range s.readings {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Has reports whether any reading exists for the series.
func (s *Store) Has(series model.Series) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.readings[series]) > 0
}

// ReadingCount returns the number of readings for a series.
func (s *Store) ReadingCount(series model.Series) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.readings[series])
}

// Rows returns the number of complete rows across the given series, i.e.
// the shortest of their lengths.
func (s *Store) Rows(series []model.Series) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(series) == 0 {
		return 0
	}
	rows := -1
	for _, id := range series {
		n := len(s.readings[id])
		if rows < 0 || n < rows {
			rows = n
		}
	}
	return rows
}

// TimeRange returns the time range covered by a series.
func (s *Store) TimeRange(series model.Series) (model.TimeRange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	readings := s.readings[series]
	if len(readings) == 0 {
		return model.TimeRange{}, false
	}

	return model.TimeRange{
		Start: readings[0].Timestamp,
		End:   readings[len(readings)-1].Timestamp,
	}, true
}

// GlobalTimeRange returns the union of all series' time ranges.
func (s *Store) GlobalTimeRange() (model.TimeRange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var start, end time.Time
	first := true

	for _, readings := range s.readings {
		if len(readings) == 0 {
			continue
		}
		rStart := readings[0].Timestamp
		rEnd := readings[len(readings)-1].Timestamp

		if first || rStart.Before(start) {
			start = rStart
		}
		if first || rEnd.After(end) {
			end = rEnd
		}
		first = false
	}

	if first {
		return model.TimeRange{}, false
	}
	return model.TimeRange{Start: start, End: end}, true
}

// Slice returns readings [from, to) of a series by position. Out-of-range
// bounds are clamped.
func (s *Store) Slice(series model.Series, from, to int) []model.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.readings[series]
	if from < 0 {
		from = 0
	}
	if to > len(all) {
		to = len(all)
	}
	if from >= to {
		return nil
	}

	result := make([]model.Reading, to-from)
	copy(result, all[from:to])
	return result
}
