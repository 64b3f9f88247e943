package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mes_planner/internal/model"
)

const header = ",elec_load(MW),heating_load(MW),cooling_load(MW),gas_price(HKD/m^3),elec_price(HKD/MWh)"

func TestTimeSeriesParser_Parse(t *testing.T) {
	input := header + `
2023-01-01 00:00:00,12.1,4.3,8.8,4.2,950
2023-01-01 01:00:00,11.0,4.0,8.1,4.2,900`

	readings, err := NewTimeSeriesParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, readings, 10)

	assert.Equal(t, model.SeriesElecLoad, readings[0].Series)
	assert.InDelta(t, 12.1, readings[0].Value, 0.001)
	assert.Equal(t, "MW", readings[0].Unit)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), readings[0].Timestamp)

	assert.Equal(t, model.SeriesElecPrice, readings[9].Series)
	assert.InDelta(t, 900, readings[9].Value, 0.001)
	assert.Equal(t, time.Date(2023, 1, 1, 1, 0, 0, 0, time.UTC), readings[9].Timestamp)
}

func TestTimeSeriesParser_TimestampFormats(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected time.Time
	}{
		{"rfc3339", "2023-01-01T05:00:00Z", time.Date(2023, 1, 1, 5, 0, 0, 0, time.UTC)},
		{"space seconds", "2023-01-01 05:00:00", time.Date(2023, 1, 1, 5, 0, 0, 0, time.UTC)},
		{"space minutes", "2023-01-01 05:00", time.Date(2023, 1, 1, 5, 0, 0, 0, time.UTC)},
		{"unix", "1672549200", time.Date(2023, 1, 1, 5, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := parseTimestamp(tt.raw)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(ts), "got %s", ts)
		})
	}

	_, err := parseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestTimeSeriesParser_MissingColumn(t *testing.T) {
	input := `,elec_load(MW),heating_load(MW)
2023-01-01 00:00:00,12.1,4.3`

	_, err := NewTimeSeriesParser().Parse(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cooling_load(MW)")
}

func TestTimeSeriesParser_MalformedRowFails(t *testing.T) {
	input := header + `
2023-01-01 00:00:00,12.1,4.3,8.8,4.2,950
2023-01-01 01:00:00,unavailable,4.0,8.1,4.2,900`

	_, err := NewTimeSeriesParser().Parse(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestTimeSeriesParser_ExtraColumnsKept(t *testing.T) {
	input := header + `,temp(C)
2023-01-01 00:00:00,12.1,4.3,8.8,4.2,950,21.5`

	readings, err := NewTimeSeriesParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, readings, 6)
	assert.Equal(t, model.Series("temp(C)"), readings[5].Series)
	assert.Empty(t, readings[5].Unit)
}

func TestTimeSeriesParser_DuplicateColumn(t *testing.T) {
	input := header + `,elec_load(MW)
2023-01-01 00:00:00,12.1,4.3,8.8,4.2,950,1`

	_, err := NewTimeSeriesParser().Parse(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	content := header + `
2023-01-01 00:00:00,12.1,4.3,8.8,4.2,950
2023-01-01 01:00:00,11.0,4.0,8.1,4.2,900
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := LoadFile(path, NewTimeSeriesParser())
	require.NoError(t, err)
	assert.Equal(t, 2, s.Rows(model.RequiredSeries))

	_, err = LoadFile(filepath.Join(dir, "missing.csv"), NewTimeSeriesParser())
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, []byte(header+"\n"), 0o644))
	_, err = LoadFile(empty, NewTimeSeriesParser())
	assert.Error(t, err)
}
