package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCarrierValid(t *testing.T) {
	for _, c := range Carriers {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, Carrier("steam").Valid())
}

func TestSeriesCatalogCoversRequired(t *testing.T) {
	for _, s := range RequiredSeries {
		info, ok := SeriesCatalog[s]
		assert.True(t, ok, s)
		assert.NotEmpty(t, info.Unit)
	}
}

func TestReading(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := Reading{
		Timestamp: ts,
		Series:    SeriesElecLoad,
		Value:     12.5,
		Unit:      "MW",
	}

	assert.Equal(t, ts, r.Timestamp)
	assert.Equal(t, SeriesElecLoad, r.Series)
	assert.InDelta(t, 12.5, r.Value, 0.001)
}
