package domain

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date in YYYY-MM-DD form. The fixed width keeps
// lexical and chronological order identical.
type Date string

// ParseDate validates s as a YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date(t.Format(dateLayout)), nil
}

// Time returns midnight UTC of the date, or the zero time if d is invalid.
func (d Date) Time() time.Time {
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// DayNight is the satellite pass flag.
type DayNight string

const (
	DayNightDay   DayNight = "D"
	DayNightNight DayNight = "N"
)

// RawRow is one detection row as read from the source table. All fields
// are kept as text so that validation happens in one place.
type RawRow struct {
	Line      int // 1-based source line, for diagnostics
	Latitude  string
	Longitude string
	AcqDate   string
	AcqTime   string
	BrightTI4 string
	FRP       string
	DayNight  string
	Satellite string
}

// Detection is a validated satellite thermal-anomaly observation.
type Detection struct {
	Lat        float64   `json:"latitude"`
	Lon        float64   `json:"longitude"`
	Date       Date      `json:"acq_date"`
	AcquiredAt time.Time `json:"timestamp"`
	Brightness float64   `json:"brightness"`
	FRP        float64   `json:"frp"`
	DayNight   DayNight  `json:"daynight"`
	Satellite  string    `json:"satellite,omitempty"`
}

// GridCell is the 0.5° bin a detection falls into.
type GridCell struct {
	LatBin float64 `json:"lat_bin"`
	LonBin float64 `json:"lon_bin"`
}

// ClassifiedDetection is a detection with its spatial assignments.
// Region is empty when the point lies outside every known region.
type ClassifiedDetection struct {
	Detection
	Region string   `json:"region_name,omitempty"`
	Cell   GridCell `json:"cell"`
}

// HasRegion reports whether the detection was placed in a region.
func (c ClassifiedDetection) HasRegion() bool {
	return c.Region != ""
}
