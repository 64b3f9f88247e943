package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mes_planner/internal/report"
)

func TestParseSweep(t *testing.T) {
	tests := []struct {
		flag    string
		days    bool
		gas     bool
		wantErr bool
	}{
		{"days", true, false, false},
		{"gas", false, true, false},
		{"all", true, true, false},
		{"", false, false, true},
		{"Days", false, false, true},
		{"both", false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			days, gas, err := parseSweep(tt.flag)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.days, days)
			assert.Equal(t, tt.gas, gas)
		})
	}
}

func TestWriteSweep_NothingSucceeded(t *testing.T) {
	path := filepath.Join(t.TempDir(), daysFile)
	called := false
	err := writeSweep(path, 0, func(io.Writer) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, errNothingSucceeded)
	assert.False(t, called)
	assert.NoFileExists(t, path)
}

func TestWriteSweep(t *testing.T) {
	path := filepath.Join(t.TempDir(), daysFile)
	rows := []report.DaysRow{{NumDays: 8, Metrics: report.Metrics{TotalCost: 1000}}}
	require.NoError(t, writeSweep(path, len(rows), func(w io.Writer) error {
		return report.WriteDaysSweep(w, rows)
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "num_days"))
	assert.True(t, strings.HasPrefix(lines[1], "1000,"))
}
