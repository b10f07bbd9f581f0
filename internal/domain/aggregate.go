package domain

import "sort"

// DateCount is the number of detections acquired on one date.
type DateCount struct {
	Date          Date    `json:"acq_date"`
	Count         int     `json:"fire_count"`
	MinBrightness float64 `json:"min_brightness"`
	MaxBrightness float64 `json:"max_brightness"`
}

// GridCount is the number of detections in one grid cell on one date.
type GridCount struct {
	Date          Date    `json:"acq_date"`
	LatBin        float64 `json:"lat_bin"`
	LonBin        float64 `json:"lon_bin"`
	Count         int     `json:"fire_count"`
	MinBrightness float64 `json:"min_brightness"`
	MaxBrightness float64 `json:"max_brightness"`
}

// RegionCount is the number of detections inside one region.
type RegionCount struct {
	Region        string  `json:"region_name"`
	Count         int     `json:"fire_count"`
	MinBrightness float64 `json:"min_brightness"`
	MaxBrightness float64 `json:"max_brightness"`
}

type tally struct {
	count    int
	min, max float64
}

func (t *tally) add(brightness float64) {
	if t.count == 0 || brightness < t.min {
		t.min = brightness
	}
	if t.count == 0 || brightness > t.max {
		t.max = brightness
	}
	t.count++
}

// ByDate counts detections per acquisition date, ascending by date.
func ByDate(dets []ClassifiedDetection) []DateCount {
	tallies := make(map[Date]*tally)
	for _, d := range dets {
		t, ok := tallies[d.Date]
		if !ok {
			t = &tally{}
			tallies[d.Date] = t
		}
		t.add(d.Brightness)
	}

	out := make([]DateCount, 0, len(tallies))
	for date, t := range tallies {
		out = append(out, DateCount{Date: date, Count: t.count, MinBrightness: t.min, MaxBrightness: t.max})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

type dateCell struct {
	date Date
	cell GridCell
}

// ByDateGrid counts detections per (date, lat_bin, lon_bin), ordered by
// date, then lat_bin, then lon_bin.
func ByDateGrid(dets []ClassifiedDetection) []GridCount {
	tallies := make(map[dateCell]*tally)
	for _, d := range dets {
		k := dateCell{date: d.Date, cell: d.Cell}
		t, ok := tallies[k]
		if !ok {
			t = &tally{}
			tallies[k] = t
		}
		t.add(d.Brightness)
	}

	out := make([]GridCount, 0, len(tallies))
	for k, t := range tallies {
		out = append(out, GridCount{
			Date:          k.date,
			LatBin:        k.cell.LatBin,
			LonBin:        k.cell.LonBin,
			Count:         t.count,
			MinBrightness: t.min,
			MaxBrightness: t.max,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.LatBin != b.LatBin {
			return a.LatBin < b.LatBin
		}
		return a.LonBin < b.LonBin
	})
	return out
}

// ByRegion counts classified detections per region, descending by count
// with ties broken by name. Detections without a region are skipped and
// regions without detections are omitted. It fails with ErrMissingRegions
// when regions is nil or empty.
func ByRegion(dets []ClassifiedDetection, regions *RegionSet) ([]RegionCount, error) {
	if regions.Len() == 0 {
		return nil, ErrMissingRegions
	}

	tallies := make(map[string]*tally)
	for _, d := range dets {
		if !d.HasRegion() {
			continue
		}
		t, ok := tallies[d.Region]
		if !ok {
			t = &tally{}
			tallies[d.Region] = t
		}
		t.add(d.Brightness)
	}

	out := make([]RegionCount, 0, len(tallies))
	for name, t := range tallies {
		out = append(out, RegionCount{Region: name, Count: t.count, MinBrightness: t.min, MaxBrightness: t.max})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Region < out[j].Region
	})
	return out, nil
}

// TopRegions returns the first n entries of an already sorted region table.
func TopRegions(counts []RegionCount, n int) []RegionCount {
	if n < 0 {
		n = 0
	}
	if n > len(counts) {
		n = len(counts)
	}
	out := make([]RegionCount, n)
	copy(out, counts[:n])
	return out
}
