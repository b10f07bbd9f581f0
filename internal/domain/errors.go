package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRegions is returned by region aggregates when no region
	// polygons were loaded. Date and grid aggregates never return it.
	ErrMissingRegions = errors.New("no region polygons loaded")

	// ErrDuplicateRegion is returned when two regions share a name.
	ErrDuplicateRegion = errors.New("duplicate region name")
)

// Row rejection reasons, also used as metric labels.
const (
	ReasonMissingField     = "missing_field"
	ReasonInvalidNumber    = "invalid_number"
	ReasonOutOfRange       = "out_of_range"
	ReasonInvalidTimestamp = "invalid_timestamp"
	ReasonInvalidDayNight  = "invalid_daynight"
)

// RowParseError describes why a single source row was excluded.
type RowParseError struct {
	Line   int
	Field  string
	Reason string
	Err    error
}

func (e *RowParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("row %d: %s: %s: %v", e.Line, e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("row %d: %s: %s", e.Line, e.Field, e.Reason)
}

func (e *RowParseError) Unwrap() error { return e.Err }
