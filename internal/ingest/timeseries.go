package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"mes_planner/internal/model"
	"mes_planner/internal/store"
)

// TimeSeriesParser parses the hourly load/price table.
//
// Expected format (first column is the timestamp index, its header is free):
//
//	,elec_load(MW),heating_load(MW),cooling_load(MW),gas_price(HKD/m^3),elec_price(HKD/MWh)
//	2023-01-01 00:00:00,12.1,4.3,8.8,4.2,950
//
// Rows are never skipped: representative days are consecutive blocks of
// rows, so a malformed row fails the whole parse.
type TimeSeriesParser struct {
	// Required lists columns that must be present. Defaults to model.RequiredSeries.
	Required []model.Series
}

func NewTimeSeriesParser() *TimeSeriesParser {
	return &TimeSeriesParser{Required: model.RequiredSeries}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006/01/02 15:04",
	"1/2/2006 15:04",
}

func (p *TimeSeriesParser) Parse(r io.Reader) ([]model.Reading, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	columns, err := p.validateHeader(header)
	if err != nil {
		return nil, err
	}

	var readings []model.Reading
	lineNum := 1 // header was line 1

	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", lineNum, err)
		}

		row, err := parseRow(record, columns, lineNum)
		if err != nil {
			return nil, err
		}
		readings = append(readings, row...)
	}

	return readings, nil
}

func (p *TimeSeriesParser) validateHeader(header []string) ([]model.Series, error) {
	if len(header) < 2 {
		return nil, fmt.Errorf("expected a timestamp column and at least one series, got %d columns", len(header))
	}

	columns := make([]model.Series, len(header)-1)
	present := make(map[model.Series]bool, len(columns))
	for i, col := range header[1:] {
		s := model.Series(strings.TrimSpace(col))
		if s == "" {
			return nil, fmt.Errorf("column %d has an empty name", i+1)
		}
		if present[s] {
			return nil, fmt.Errorf("duplicate column %q", s)
		}
		present[s] = true
		columns[i] = s
	}

	required := p.Required
	if required == nil {
		required = model.RequiredSeries
	}
	for _, s := range required {
		if !present[s] {
			return nil, fmt.Errorf("missing required column %q", s)
		}
	}

	return columns, nil
}

func parseRow(record []string, columns []model.Series, lineNum int) ([]model.Reading, error) {
	if len(record) != len(columns)+1 {
		return nil, fmt.Errorf("line %d: expected %d fields, got %d", lineNum, len(columns)+1, len(record))
	}

	ts, err := parseTimestamp(strings.TrimSpace(record[0]))
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", lineNum, err)
	}

	row := make([]model.Reading, len(columns))
	for i, series := range columns {
		raw := strings.TrimSpace(record[i+1])
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing %s value %q: %w", lineNum, series, raw, err)
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, fmt.Errorf("line %d: %s value %q is not finite", lineNum, series, raw)
		}
		row[i] = model.Reading{
			Timestamp: ts,
			Series:    series,
			Value:     value,
			Unit:      model.SeriesCatalog[series].Unit,
		}
	}
	return row, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return parseUnixTimestamp(s)
}

// parseUnixTimestamp parses a Unix epoch float (seconds) into a time.Time.
func parseUnixTimestamp(s string) (time.Time, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: unrecognized format", s)
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}

// LoadFile parses the table at path into a fresh store.
func LoadFile(path string, p Parser) (*store.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	readings, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(readings) == 0 {
		return nil, fmt.Errorf("parsing %s: no data rows", path)
	}

	s := store.New()
	s.AddReadings(readings)
	return s, nil
}
