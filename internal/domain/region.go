package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Region is a named state boundary in WGS84. PostalCode (STUSPS) is only
// used by presentation code.
type Region struct {
	Name       string
	PostalCode string
	Geometry   orb.MultiPolygon
}

// RegionSet is an immutable, name-ordered collection of regions with
// precomputed bounding boxes. It is safe for concurrent use.
type RegionSet struct {
	regions []Region
	bounds  []orb.Bound
}

// NewRegionSet validates the regions and builds a lookup set. Names must be
// non-empty and unique, and every region needs at least one polygon.
func NewRegionSet(regions []Region) (*RegionSet, error) {
	sorted := make([]Region, len(regions))
	copy(sorted, regions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	set := &RegionSet{
		regions: sorted,
		bounds:  make([]orb.Bound, len(sorted)),
	}
	for i, r := range sorted {
		if strings.TrimSpace(r.Name) == "" {
			return nil, errors.New("region with empty name")
		}
		if i > 0 && sorted[i-1].Name == r.Name {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateRegion, r.Name)
		}
		if len(r.Geometry) == 0 {
			return nil, fmt.Errorf("region %q has no polygons", r.Name)
		}
		set.bounds[i] = r.Geometry.Bound()
	}
	return set, nil
}

// Len returns the number of regions. A nil set has length zero.
func (s *RegionSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.regions)
}

// Regions returns a copy of the regions in name order.
func (s *RegionSet) Regions() []Region {
	if s == nil {
		return nil
	}
	out := make([]Region, len(s.regions))
	copy(out, s.regions)
	return out
}

// Locate returns the name of the region containing the point. The bounding
// box check runs first; exact containment is only tested on candidates.
// Regions are tried in name order and the first match wins.
func (s *RegionSet) Locate(lat, lon float64) (string, bool) {
	if s == nil {
		return "", false
	}
	p := orb.Point{lon, lat}
	for i := range s.regions {
		if !s.bounds[i].Contains(p) {
			continue
		}
		if planar.MultiPolygonContains(s.regions[i].Geometry, p) {
			return s.regions[i].Name, true
		}
	}
	return "", false
}
