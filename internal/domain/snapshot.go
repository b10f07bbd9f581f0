package domain

import "time"

// Snapshot is the immutable result of one pipeline run. Every aggregation
// reads from it without modifying it, so a snapshot can be shared across
// goroutines. A refresh builds a new snapshot instead of patching this one.
type Snapshot struct {
	source     string
	rowsRead   int
	detections []ClassifiedDetection
	rejected   []*RowParseError
	regions    *RegionSet
	builtAt    time.Time
}

// NewSnapshot takes ownership of detections and rejected; callers must not
// modify them afterwards. regions may be nil.
func NewSnapshot(source string, rowsRead int, detections []ClassifiedDetection, rejected []*RowParseError, regions *RegionSet) *Snapshot {
	return &Snapshot{
		source:     source,
		rowsRead:   rowsRead,
		detections: detections,
		rejected:   rejected,
		regions:    regions,
		builtAt:    clock.Now().UTC(),
	}
}

// Source names the detection input the snapshot was built from.
func (s *Snapshot) Source() string { return s.source }

// RowsRead is the number of data rows read, valid or not.
func (s *Snapshot) RowsRead() int { return s.rowsRead }

// BuiltAt is when the snapshot was built, in UTC.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Regions returns the region set used for classification, or nil.
func (s *Snapshot) Regions() *RegionSet { return s.regions }

// RejectedCount is the number of rows the loader excluded.
func (s *Snapshot) RejectedCount() int { return len(s.rejected) }

// DetectionCount is the number of valid detections.
func (s *Snapshot) DetectionCount() int { return len(s.detections) }

// UnclassifiedCount is the number of detections outside every region.
func (s *Snapshot) UnclassifiedCount() int {
	n := 0
	for _, d := range s.detections {
		if !d.HasRegion() {
			n++
		}
	}
	return n
}

// Rejected returns a copy of the rows excluded by the loader.
func (s *Snapshot) Rejected() []*RowParseError {
	out := make([]*RowParseError, len(s.rejected))
	copy(out, s.rejected)
	return out
}

// Detections returns the detections matching f as a new slice.
func (s *Snapshot) Detections(f Filter) []ClassifiedDetection {
	return f.Apply(s.detections)
}

// ByDate counts matching detections per date.
func (s *Snapshot) ByDate(f Filter) []DateCount {
	return ByDate(s.view(f))
}

// ByDateGrid counts matching detections per date and grid cell.
func (s *Snapshot) ByDateGrid(f Filter) []GridCount {
	return ByDateGrid(s.view(f))
}

// ByRegion counts matching detections per region.
func (s *Snapshot) ByRegion(f Filter) ([]RegionCount, error) {
	return ByRegion(s.view(f), s.regions)
}

// Summary computes headline figures over matching detections.
func (s *Snapshot) Summary(f Filter) Summary {
	return Summarize(s.view(f))
}

// view avoids copying when no filter is set. Callers only read the result.
func (s *Snapshot) view(f Filter) []ClassifiedDetection {
	if f.IsZero() {
		return s.detections
	}
	return f.Apply(s.detections)
}
