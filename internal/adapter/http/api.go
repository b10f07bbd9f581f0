package http

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Grouping labels for the aggregation request counter.
const (
	groupingDetections = "detections"
	groupingDate       = "date"
	groupingGrid       = "grid"
	groupingRegion     = "region"
	groupingSummary    = "summary"
)

const topRegionCount = 5

type detectionView struct {
	Lat        float64         `json:"latitude"`
	Lon        float64         `json:"longitude"`
	Date       domain.Date     `json:"acq_date"`
	AcquiredAt time.Time       `json:"timestamp"`
	Brightness float64         `json:"brightness"`
	FRP        float64         `json:"frp"`
	DayNight   domain.DayNight `json:"daynight"`
	Satellite  string          `json:"satellite,omitempty"`
	Region     *string         `json:"region_name"`
	LatBin     float64         `json:"lat_bin"`
	LonBin     float64         `json:"lon_bin"`
}

func newDetectionView(d domain.ClassifiedDetection) detectionView {
	v := detectionView{
		Lat:        d.Lat,
		Lon:        d.Lon,
		Date:       d.Date,
		AcquiredAt: d.AcquiredAt,
		Brightness: d.Brightness,
		FRP:        d.FRP,
		DayNight:   d.DayNight,
		Satellite:  d.Satellite,
		LatBin:     d.Cell.LatBin,
		LonBin:     d.Cell.LonBin,
	}
	if d.HasRegion() {
		region := d.Region
		v.Region = &region
	}
	return v
}

type regionRow struct {
	Region        string  `json:"region_name"`
	PostalCode    string  `json:"postal_code,omitempty"`
	Count         int     `json:"fire_count"`
	MinBrightness float64 `json:"min_brightness"`
	MaxBrightness float64 `json:"max_brightness"`
}

type summaryResponse struct {
	Source     string               `json:"source"`
	BuiltAt    time.Time            `json:"built_at"`
	RowsRead   int                  `json:"rows_read"`
	Rejected   int                  `json:"rows_rejected"`
	Summary    domain.Summary       `json:"summary"`
	TopRegions []domain.RegionCount `json:"top_regions"`
}

func (s *Server) handleDetections(w http.ResponseWriter, r *http.Request, snap *domain.Snapshot) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dets := snap.Detections(f)
	out := make([]detectionView, len(dets))
	for i, d := range dets {
		out[i] = newDetectionView(d)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleByDate(w http.ResponseWriter, r *http.Request, snap *domain.Snapshot) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap.ByDate(f))
}

func (s *Server) handleByGrid(w http.ResponseWriter, r *http.Request, snap *domain.Snapshot) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap.ByDateGrid(f))
}

func (s *Server) handleByRegion(w http.ResponseWriter, r *http.Request, snap *domain.Snapshot) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fillZero, err := parseBool(r, "fill_zero")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	exclude := parseList(r, "exclude")

	counts, err := snap.ByRegion(f)
	if err != nil {
		if errors.Is(err, domain.ErrMissingRegions) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.Error("region aggregate failed", "error", err)
		writeError(w, http.StatusInternalServerError, "region aggregate failed")
		return
	}
	writeJSON(w, http.StatusOK, regionTable(counts, snap.Regions().Regions(), fillZero, exclude))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, snap *domain.Snapshot) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := summaryResponse{
		Source:     snap.Source(),
		BuiltAt:    snap.BuiltAt(),
		RowsRead:   snap.RowsRead(),
		Rejected:   snap.RejectedCount(),
		TopRegions: []domain.RegionCount{},
	}

	var g errgroup.Group
	g.Go(func() error {
		resp.Summary = snap.Summary(f)
		return nil
	})
	g.Go(func() error {
		counts, err := snap.ByRegion(f)
		if errors.Is(err, domain.ErrMissingRegions) {
			return nil
		}
		if err != nil {
			return err
		}
		resp.TopRegions = domain.TopRegions(counts, topRegionCount)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("summary failed", "error", err)
		writeError(w, http.StatusInternalServerError, "summary failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// regionTable left-joins counts onto the full region list when fillZero is
// set, so that every region appears with a zero count. Regions whose postal
// code is listed in exclude are dropped either way.
func regionTable(counts []domain.RegionCount, regions []domain.Region, fillZero bool, exclude map[string]bool) []regionRow {
	postal := make(map[string]string, len(regions))
	for _, reg := range regions {
		postal[reg.Name] = reg.PostalCode
	}

	rows := make([]regionRow, 0, len(regions))
	seen := make(map[string]bool, len(counts))
	for _, c := range counts {
		seen[c.Region] = true
		if exclude[strings.ToUpper(postal[c.Region])] {
			continue
		}
		rows = append(rows, regionRow{
			Region:        c.Region,
			PostalCode:    postal[c.Region],
			Count:         c.Count,
			MinBrightness: c.MinBrightness,
			MaxBrightness: c.MaxBrightness,
		})
	}
	if !fillZero {
		return rows
	}

	var zero []regionRow
	for _, reg := range regions {
		if seen[reg.Name] || exclude[strings.ToUpper(reg.PostalCode)] {
			continue
		}
		zero = append(zero, regionRow{Region: reg.Name, PostalCode: reg.PostalCode})
	}
	sort.Slice(zero, func(i, j int) bool { return zero[i].Region < zero[j].Region })
	return append(rows, zero...)
}

func parseFilter(r *http.Request) (domain.Filter, error) {
	var f domain.Filter
	q := r.URL.Query()

	if v := q.Get("min_brightness"); v != "" {
		b, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(b) || math.IsInf(b, 0) || b < 0 {
			return f, fmt.Errorf("invalid min_brightness %q", v)
		}
		f.MinBrightness = b
	}

	switch v := strings.ToUpper(strings.TrimSpace(q.Get("daynight"))); v {
	case "":
	case string(domain.DayNightDay), string(domain.DayNightNight):
		f.DayNight = domain.DayNight(v)
	default:
		return f, fmt.Errorf("invalid daynight %q: want D or N", q.Get("daynight"))
	}
	return f, nil
}

func parseBool(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", key, v)
	}
	return b, nil
}

// parseList reads a comma-separated parameter into an upper-cased set.
func parseList(r *http.Request, key string) map[string]bool {
	set := make(map[string]bool)
	for _, part := range strings.Split(r.URL.Query().Get(key), ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			set[part] = true
		}
	}
	return set
}
