package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mes_planner/internal/model"
)

func makeReadings(series model.Series, values []float64, startTime time.Time, interval time.Duration) []model.Reading {
	readings := make([]model.Reading, len(values))
	for i, v := range values {
		readings[i] = model.Reading{
			Timestamp: startTime.Add(time.Duration(i) * interval),
			Series:    series,
			Value:     v,
			Unit:      "MW",
		}
	}
	return readings
}

var (
	startTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	hour      = time.Hour
)

func TestStore_AddAndCount(t *testing.T) {
	s := New()
	s.AddReadings(makeReadings(model.SeriesElecLoad, []float64{1, 2, 3, 4, 5}, startTime, hour))

	assert.Equal(t, 5, s.ReadingCount(model.SeriesElecLoad))
	assert.Equal(t, 0, s.ReadingCount(model.SeriesHeatLoad))
	assert.True(t, s.Has(model.SeriesElecLoad))
	assert.False(t, s.Has(model.SeriesHeatLoad))
}

func TestStore_Rows(t *testing.T) {
	s := New()
	s.AddReadings(makeReadings(model.SeriesElecLoad, []float64{1, 2, 3}, startTime, hour))
	s.AddReadings(makeReadings(model.SeriesHeatLoad, []float64{1, 2}, startTime, hour))

	assert.Equal(t, 2, s.Rows([]model.Series{model.SeriesElecLoad, model.SeriesHeatLoad}))
	assert.Equal(t, 0, s.Rows([]model.Series{model.SeriesElecLoad, model.SeriesCoolLoad}))
	assert.Equal(t, 0, s.Rows(nil))
}

func TestStore_TimeRange(t *testing.T) {
	s := New()
	s.AddReadings(makeReadings(model.SeriesElecLoad, []float64{1, 2, 3}, startTime, hour))

	tr, ok := s.TimeRange(model.SeriesElecLoad)
	require.True(t, ok)
	assert.Equal(t, startTime, tr.Start)
	assert.Equal(t, startTime.Add(2*hour), tr.End)

	_, ok = s.TimeRange(model.SeriesCoolLoad)
	assert.False(t, ok)
}

func TestStore_Slice(t *testing.T) {
	s := New()
	s.AddReadings(makeReadings(model.SeriesGasPrice, []float64{10, 20, 30, 40, 50}, startTime, hour))

	result := s.Slice(model.SeriesGasPrice, 1, 3)
	require.Len(t, result, 2)
	assert.InDelta(t, 20.0, result[0].Value, 0.001)
	assert.InDelta(t, 30.0, result[1].Value, 0.001)

	// Clamped bounds
	assert.Len(t, s.Slice(model.SeriesGasPrice, -2, 99), 5)
	assert.Empty(t, s.Slice(model.SeriesGasPrice, 4, 2))
	assert.Empty(t, s.Slice(model.SeriesCoolLoad, 0, 2))
}

func TestStore_SliceIsCopy(t *testing.T) {
	s := New()
	s.AddReadings(makeReadings(model.SeriesGasPrice, []float64{10, 20}, startTime, hour))

	result := s.Slice(model.SeriesGasPrice, 0, 2)
	result[0].Value = 999

	assert.InDelta(t, 10.0, s.Slice(model.SeriesGasPrice, 0, 1)[0].Value, 0.001)
}

func TestStore_GlobalTimeRange(t *testing.T) {
	s := New()

	_, ok := s.GlobalTimeRange()
	assert.False(t, ok)

	s.AddReadings(makeReadings(model.SeriesElecLoad, []float64{1, 2}, startTime, hour))
	s.AddReadings(makeReadings(model.SeriesHeatLoad, []float64{3, 4}, startTime.Add(-hour), 3*hour))

	tr, ok := s.GlobalTimeRange()
	require.True(t, ok)
	assert.Equal(t, startTime.Add(-hour), tr.Start)
	assert.Equal(t, startTime.Add(2*hour), tr.End)
}

func TestStore_AddReadingsUnsorted(t *testing.T) {
	s := New()

	readings := []model.Reading{
		{Timestamp: startTime.Add(2 * hour), Series: model.SeriesElecLoad, Value: 300},
		{Timestamp: startTime, Series: model.SeriesElecLoad, Value: 100},
		{Timestamp: startTime.Add(hour), Series: model.SeriesElecLoad, Value: 200},
	}
	s.AddReadings(readings)

	result := s.Slice(model.SeriesElecLoad, 0, 3)
	require.Len(t, result, 3)
	assert.InDelta(t, 100.0, result[0].Value, 0.001)
	assert.InDelta(t, 200.0, result[1].Value, 0.001)
	assert.InDelta(t, 300.0, result[2].Value, 0.001)
}

func TestStore_Series(t *testing.T) {
	s := New()
	s.AddReadings(makeReadings(model.SeriesHeatLoad, []float64{1}, startTime, hour))
	s.AddReadings(makeReadings(model.SeriesElecLoad, []float64{1}, startTime, hour))

	assert.Equal(t, []model.Series{model.SeriesElecLoad, model.SeriesHeatLoad}, s.Series())
}
