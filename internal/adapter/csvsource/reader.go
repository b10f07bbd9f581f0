// Package csvsource reads NASA FIRMS active fire CSV exports.
package csvsource

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"github.com/klauspost/pgzip"
)

// FIRMS columns read by the loader. satellite is optional; other columns
// (scan, track, confidence, ...) are ignored.
const (
	colLatitude  = "latitude"
	colLongitude = "longitude"
	colAcqDate   = "acq_date"
	colAcqTime   = "acq_time"
	colBrightTI4 = "bright_ti4"
	colFRP       = "frp"
	colDayNight  = "daynight"
	colSatellite = "satellite"
)

// maxLineBytes bounds a single CSV line.
const maxLineBytes = 1 << 20

var requiredColumns = []string{colLatitude, colLongitude, colAcqDate, colAcqTime, colBrightTI4, colFRP, colDayNight}

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Reader loads detection rows from a CSV file on disk. Files ending in
// ".gz" are decompressed transparently.
// It implements pipeline.DetectionSource.
type Reader struct {
	path   string
	logger *slog.Logger
}

// NewReader creates a reader for the given path.
func NewReader(path string, logger *slog.Logger) *Reader {
	return &Reader{path: path, logger: logger}
}

// Name identifies the source in snapshots and logs.
func (r *Reader) Name() string { return r.path }

// ReadRows opens the file and returns every data row.
func (r *Reader) ReadRows(ctx context.Context) ([]domain.RawRow, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open detections: %w", err)
	}
	defer f.Close()

	var src io.Reader = f
	if strings.HasSuffix(strings.ToLower(r.path), ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip detections: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	rows, err := ParseRows(ctx, src, r.logger)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	r.logger.Info("detection rows read", "path", r.path, "rows", len(rows))
	return rows, nil
}

// ParseRows reads a FIRMS CSV stream. Columns are located by header name.
// Each physical line is split on its own, so a malformed line, including one
// with an unbalanced quote, becomes a single blank row that the loader
// rejects and counts. Quoted fields may not span lines.
func ParseRows(ctx context.Context, src io.Reader, logger *slog.Logger) ([]domain.RawRow, error) {
	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		index  map[string]int
		rows   []domain.RawRow
		lineNo int
	)
	for sc.Scan() {
		lineNo++
		if lineNo%4096 == 1 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		record, err := splitLine(text)
		if index == nil {
			if err != nil {
				return nil, fmt.Errorf("read header: %w", err)
			}
			if index, err = columnIndex(record); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			logger.Warn("unparsable csv line", "line", lineNo, "error", err)
			rows = append(rows, domain.RawRow{Line: lineNo})
			continue
		}

		rows = append(rows, domain.RawRow{
			Line:      lineNo,
			Latitude:  field(record, index, colLatitude),
			Longitude: field(record, index, colLongitude),
			AcqDate:   field(record, index, colAcqDate),
			AcqTime:   field(record, index, colAcqTime),
			BrightTI4: field(record, index, colBrightTI4),
			FRP:       field(record, index, colFRP),
			DayNight:  field(record, index, colDayNight),
			Satellite: field(record, index, colSatellite),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan line %d: %w", lineNo+1, err)
	}
	if index == nil {
		return nil, errors.New("empty file: no header row")
	}
	return rows, nil
}

// splitLine parses one physical line as a CSV record.
func splitLine(text string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	record, err := cr.Read()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, perr.Err
		}
		return nil, err
	}
	return record, nil
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return index, nil
}

// field returns the named column, or "" when the record is short or the
// column is absent.
func field(record []string, index map[string]int, name string) string {
	i, ok := index[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}
