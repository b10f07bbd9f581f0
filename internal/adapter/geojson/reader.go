// Package geojson loads region boundaries from a GeoJSON FeatureCollection.
package geojson

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Property keys used by the Census state boundary files.
const (
	propName       = "NAME"
	propPostalCode = "STUSPS"
)

// Reader loads regions from a GeoJSON file on disk.
// It implements pipeline.RegionSource.
type Reader struct {
	path   string
	logger *slog.Logger
}

// NewReader creates a reader for the given path.
func NewReader(path string, logger *slog.Logger) *Reader {
	return &Reader{path: path, logger: logger}
}

// Name identifies the source in logs.
func (r *Reader) Name() string { return r.path }

// ReadRegions decodes every Polygon or MultiPolygon feature. Features with
// other geometry types or without a NAME property are skipped with a warning.
func (r *Reader) ReadRegions(ctx context.Context) ([]domain.Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("open regions: %w", err)
	}

	regions, err := ParseRegions(data, r.logger)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	r.logger.Info("regions read", "path", r.path, "regions", len(regions))
	return regions, nil
}

// ParseRegions decodes a FeatureCollection into regions in file order.
func ParseRegions(data []byte, logger *slog.Logger) ([]domain.Region, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}

	regions := make([]domain.Region, 0, len(fc.Features))
	for i, f := range fc.Features {
		name := strings.TrimSpace(f.Properties.MustString(propName, ""))
		if name == "" {
			logger.Warn("skipping region feature without name", "feature", i)
			continue
		}
		geom, ok := toMultiPolygon(f.Geometry)
		if !ok {
			logger.Warn("skipping region feature with unsupported geometry",
				"feature", i, "name", name, "type", geometryType(f.Geometry))
			continue
		}
		regions = append(regions, domain.Region{
			Name:       name,
			PostalCode: strings.TrimSpace(f.Properties.MustString(propPostalCode, "")),
			Geometry:   geom,
		})
	}
	return regions, nil
}

func toMultiPolygon(g orb.Geometry) (orb.MultiPolygon, bool) {
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) == 0 {
			return nil, false
		}
		return orb.MultiPolygon{v}, true
	case orb.MultiPolygon:
		if len(v) == 0 {
			return nil, false
		}
		return v, true
	default:
		return nil, false
	}
}

func geometryType(g orb.Geometry) string {
	if g == nil {
		return "null"
	}
	return g.GeoJSONType()
}
