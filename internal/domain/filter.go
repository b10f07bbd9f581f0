package domain

// Filter narrows detections before aggregation. The zero value keeps
// everything.
type Filter struct {
	MinBrightness float64  // inclusive; 0 disables
	DayNight      DayNight // empty keeps both passes
}

// IsZero reports whether the filter keeps every detection.
func (f Filter) IsZero() bool {
	return f.MinBrightness == 0 && f.DayNight == ""
}

// Match reports whether a detection passes the filter.
func (f Filter) Match(d Detection) bool {
	if f.MinBrightness != 0 && d.Brightness < f.MinBrightness {
		return false
	}
	if f.DayNight != "" && d.DayNight != f.DayNight {
		return false
	}
	return true
}

// Apply returns the matching detections in their original order. The
// input slice is never modified.
func (f Filter) Apply(dets []ClassifiedDetection) []ClassifiedDetection {
	out := make([]ClassifiedDetection, 0, len(dets))
	for _, d := range dets {
		if f.Match(d.Detection) {
			out = append(out, d)
		}
	}
	return out
}
