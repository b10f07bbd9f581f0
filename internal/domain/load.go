package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// LoadResult is the Point Loader output: valid detections in input order
// and the rows that were excluded.
type LoadResult struct {
	Detections []Detection
	Rejected   []*RowParseError
}

// LoadDetections validates every raw row. Invalid rows are collected in
// Rejected rather than failing the load, so
// len(Detections)+len(Rejected) always equals len(rows).
func LoadDetections(rows []RawRow) LoadResult {
	res := LoadResult{
		Detections: make([]Detection, 0, len(rows)),
	}
	for _, row := range rows {
		d, rowErr := parseRow(row)
		if rowErr != nil {
			res.Rejected = append(res.Rejected, rowErr)
			continue
		}
		res.Detections = append(res.Detections, d)
	}
	return res
}

// ParseRow converts a raw row into a Detection. Every field except the
// satellite id is required; no defaults are filled in. A non-nil error is
// always a *RowParseError.
func ParseRow(row RawRow) (Detection, error) {
	d, rowErr := parseRow(row)
	if rowErr != nil {
		return Detection{}, rowErr
	}
	return d, nil
}

func parseRow(row RawRow) (Detection, *RowParseError) {
	lat, err := parseCoordinate(row.Line, "latitude", row.Latitude, 90)
	if err != nil {
		return Detection{}, err
	}
	lon, err := parseCoordinate(row.Line, "longitude", row.Longitude, 180)
	if err != nil {
		return Detection{}, err
	}
	brightness, err := parseRequiredFloat(row.Line, "bright_ti4", row.BrightTI4)
	if err != nil {
		return Detection{}, err
	}
	frp, err := parseRequiredFloat(row.Line, "frp", row.FRP)
	if err != nil {
		return Detection{}, err
	}
	dayNight, err := parseDayNight(row.Line, row.DayNight)
	if err != nil {
		return Detection{}, err
	}

	if strings.TrimSpace(row.AcqDate) == "" {
		return Detection{}, &RowParseError{Line: row.Line, Field: "acq_date", Reason: ReasonMissingField}
	}
	if strings.TrimSpace(row.AcqTime) == "" {
		return Detection{}, &RowParseError{Line: row.Line, Field: "acq_time", Reason: ReasonMissingField}
	}
	date, dateErr := ParseDate(strings.TrimSpace(row.AcqDate))
	if dateErr != nil {
		return Detection{}, &RowParseError{Line: row.Line, Field: "acq_date", Reason: ReasonInvalidTimestamp, Err: dateErr}
	}
	acquired, timeErr := parseHHMM(date.Time(), row.AcqTime)
	if timeErr != nil {
		return Detection{}, &RowParseError{Line: row.Line, Field: "acq_time", Reason: ReasonInvalidTimestamp, Err: timeErr}
	}

	return Detection{
		Lat:        lat,
		Lon:        lon,
		Date:       date,
		AcquiredAt: acquired,
		Brightness: brightness,
		FRP:        frp,
		DayNight:   dayNight,
		Satellite:  strings.TrimSpace(row.Satellite),
	}, nil
}

func parseRequiredFloat(line int, field, s string) (float64, *RowParseError) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &RowParseError{Line: line, Field: field, Reason: ReasonMissingField}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &RowParseError{Line: line, Field: field, Reason: ReasonInvalidNumber, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &RowParseError{Line: line, Field: field, Reason: ReasonInvalidNumber}
	}
	return v, nil
}

func parseCoordinate(line int, field, s string, limit float64) (float64, *RowParseError) {
	v, err := parseRequiredFloat(line, field, s)
	if err != nil {
		return 0, err
	}
	if v < -limit || v > limit {
		return 0, &RowParseError{
			Line:   line,
			Field:  field,
			Reason: ReasonOutOfRange,
			Err:    fmt.Errorf("%g outside [-%g,%g]", v, limit, limit),
		}
	}
	return v, nil
}

func parseDayNight(line int, s string) (DayNight, *RowParseError) {
	switch DayNight(strings.TrimSpace(s)) {
	case DayNightDay:
		return DayNightDay, nil
	case DayNightNight:
		return DayNightNight, nil
	case "":
		return "", &RowParseError{Line: line, Field: "daynight", Reason: ReasonMissingField}
	default:
		return "", &RowParseError{Line: line, Field: "daynight", Reason: ReasonInvalidDayNight, Err: fmt.Errorf("unknown flag %q", s)}
	}
}

// parseHHMM combines a base date with an HHMM time string (e.g. "1330" → 13:30).
// Shorter values are left-padded with zeros: "930" → 09:30, "5" → 00:05.
func parseHHMM(baseDate time.Time, hhmm string) (time.Time, error) {
	hhmm = strings.TrimSpace(hhmm)
	if hhmm == "" || len(hhmm) > 4 || !isDigits(hhmm) {
		return time.Time{}, fmt.Errorf("invalid HHMM %q", hhmm)
	}
	hhmm = strings.Repeat("0", 4-len(hhmm)) + hhmm

	hour, _ := strconv.Atoi(hhmm[:2])
	mins, _ := strconv.Atoi(hhmm[2:])
	if hour > 23 || mins > 59 {
		return time.Time{}, fmt.Errorf("invalid HHMM %q", hhmm)
	}

	return time.Date(
		baseDate.Year(), baseDate.Month(), baseDate.Day(),
		hour, mins, 0, 0, time.UTC,
	), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
