package domain

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// HotBrightness is the bright_ti4 level (Kelvin) above which a detection
// counts as hot.
const HotBrightness = 330.0

// Summary holds headline figures for a set of detections.
type Summary struct {
	Total         int     `json:"total_detections"`
	Classified    int     `json:"classified_detections"`
	Unclassified  int     `json:"unclassified_detections"`
	LatestDate    Date    `json:"latest_date,omitempty"`
	DayCount      int     `json:"day_detections"`
	NightCount    int     `json:"night_detections"`
	HotCount      int     `json:"hot_detections"`
	MinBrightness float64 `json:"min_brightness"`
	MaxBrightness float64 `json:"max_brightness"`
	MeanFRP       float64 `json:"mean_frp"`
}

// Summarize computes headline figures. Brightness and FRP statistics are
// zero for empty input.
func Summarize(dets []ClassifiedDetection) Summary {
	s := Summary{Total: len(dets)}
	if len(dets) == 0 {
		return s
	}

	brightness := make([]float64, len(dets))
	frp := make([]float64, len(dets))
	for i, d := range dets {
		brightness[i] = d.Brightness
		frp[i] = d.FRP

		if d.HasRegion() {
			s.Classified++
		}
		switch d.DayNight {
		case DayNightDay:
			s.DayCount++
		case DayNightNight:
			s.NightCount++
		}
		if d.Brightness > HotBrightness {
			s.HotCount++
		}
		if d.Date > s.LatestDate {
			s.LatestDate = d.Date
		}
	}
	s.Unclassified = s.Total - s.Classified
	s.MinBrightness = floats.Min(brightness)
	s.MaxBrightness = floats.Max(brightness)
	s.MeanFRP = stat.Mean(frp, nil)
	return s
}
