// Package parquet exports snapshot tables as Parquet files.
package parquet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"github.com/parquet-go/parquet-go"
)

// Output file names inside the export directory.
const (
	DetectionsFile = "detections.parquet"
	ByDateFile     = "by_date.parquet"
	ByGridFile     = "by_grid.parquet"
	ByRegionFile   = "by_region.parquet"
)

// DetectionRow is one classified detection. Timestamp is Unix seconds;
// RegionName is empty for detections outside every region.
type DetectionRow struct {
	Latitude   float64 `parquet:"latitude"`
	Longitude  float64 `parquet:"longitude"`
	AcqDate    string  `parquet:"acq_date"`
	Timestamp  int64   `parquet:"timestamp"`
	Brightness float64 `parquet:"brightness"`
	FRP        float64 `parquet:"frp"`
	DayNight   string  `parquet:"daynight"`
	Satellite  string  `parquet:"satellite"`
	RegionName string  `parquet:"region_name"`
	LatBin     float64 `parquet:"lat_bin"`
	LonBin     float64 `parquet:"lon_bin"`
}

// DateRow is one line of the by_date table.
type DateRow struct {
	AcqDate       string  `parquet:"acq_date"`
	FireCount     int64   `parquet:"fire_count"`
	MinBrightness float64 `parquet:"min_brightness"`
	MaxBrightness float64 `parquet:"max_brightness"`
}

// GridRow is one line of the by_date_grid table.
type GridRow struct {
	AcqDate       string  `parquet:"acq_date"`
	LatBin        float64 `parquet:"lat_bin"`
	LonBin        float64 `parquet:"lon_bin"`
	FireCount     int64   `parquet:"fire_count"`
	MinBrightness float64 `parquet:"min_brightness"`
	MaxBrightness float64 `parquet:"max_brightness"`
}

// RegionRow is one line of the by_region table.
type RegionRow struct {
	RegionName    string  `parquet:"region_name"`
	FireCount     int64   `parquet:"fire_count"`
	MinBrightness float64 `parquet:"min_brightness"`
	MaxBrightness float64 `parquet:"max_brightness"`
}

// Exporter writes the unfiltered tables of each snapshot into a directory.
// It implements pipeline.SnapshotSink. Existing files are replaced.
type Exporter struct {
	dir    string
	logger *slog.Logger
}

// NewExporter creates an exporter that writes into dir.
func NewExporter(dir string, logger *slog.Logger) *Exporter {
	return &Exporter{dir: dir, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (e *Exporter) Name() string { return "parquet" }

// Publish writes all four tables. by_region.parquet is removed rather than
// written when the snapshot has no regions.
func (e *Exporter) Publish(ctx context.Context, snap *domain.Snapshot) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	var all domain.Filter
	if err := writeTable(e.path(DetectionsFile), detectionRows(snap.Detections(all))); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeTable(e.path(ByDateFile), dateRows(snap.ByDate(all))); err != nil {
		return err
	}
	if err := writeTable(e.path(ByGridFile), gridRows(snap.ByDateGrid(all))); err != nil {
		return err
	}

	byRegion, err := snap.ByRegion(all)
	switch {
	case errors.Is(err, domain.ErrMissingRegions):
		if err := os.Remove(e.path(ByRegionFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove stale region table: %w", err)
		}
	case err != nil:
		return fmt.Errorf("region aggregate: %w", err)
	default:
		if err := writeTable(e.path(ByRegionFile), regionRows(byRegion)); err != nil {
			return err
		}
	}

	e.logger.Info("parquet export written", "dir", e.dir, "detections", snap.DetectionCount())
	return nil
}

func (e *Exporter) path(name string) string {
	return filepath.Join(e.dir, name)
}

// writeTable writes to a temporary file and renames it so that readers
// never see a partial table.
func writeTable[T any](path string, rows []T) error {
	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, rows); err != nil {
		os.Remove(tmp) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func detectionRows(dets []domain.ClassifiedDetection) []DetectionRow {
	rows := make([]DetectionRow, len(dets))
	for i, d := range dets {
		rows[i] = DetectionRow{
			Latitude:   d.Lat,
			Longitude:  d.Lon,
			AcqDate:    string(d.Date),
			Timestamp:  d.AcquiredAt.Unix(),
			Brightness: d.Brightness,
			FRP:        d.FRP,
			DayNight:   string(d.DayNight),
			Satellite:  d.Satellite,
			RegionName: d.Region,
			LatBin:     d.Cell.LatBin,
			LonBin:     d.Cell.LonBin,
		}
	}
	return rows
}

func dateRows(counts []domain.DateCount) []DateRow {
	rows := make([]DateRow, len(counts))
	for i, c := range counts {
		rows[i] = DateRow{
			AcqDate:       string(c.Date),
			FireCount:     int64(c.Count),
			MinBrightness: c.MinBrightness,
			MaxBrightness: c.MaxBrightness,
		}
	}
	return rows
}

func gridRows(counts []domain.GridCount) []GridRow {
	rows := make([]GridRow, len(counts))
	for i, c := range counts {
		rows[i] = GridRow{
			AcqDate:       string(c.Date),
			LatBin:        c.LatBin,
			LonBin:        c.LonBin,
			FireCount:     int64(c.Count),
			MinBrightness: c.MinBrightness,
			MaxBrightness: c.MaxBrightness,
		}
	}
	return rows
}

func regionRows(counts []domain.RegionCount) []RegionRow {
	rows := make([]RegionRow, len(counts))
	for i, c := range counts {
		rows[i] = RegionRow{
			RegionName:    c.Region,
			FireCount:     int64(c.Count),
			MinBrightness: c.MinBrightness,
			MaxBrightness: c.MaxBrightness,
		}
	}
	return rows
}
