package ingest

import (
	"io"

	"mes_planner/internal/model"
)

// Parser reads series data from a source and returns readings.
type Parser interface {
	Parse(r io.Reader) ([]model.Reading, error)
}
