package domain

import "math"

// GridResolution is the grid cell size in degrees.
const GridResolution = 0.5

// Bin snaps v to the nearest multiple of GridResolution: round(v*2)/2 with
// halves rounded away from zero, so -118.25 bins to -118.5. The FIRMS
// notebooks round half to even and would put it in -118.0. Bin is
// idempotent.
func Bin(v float64) float64 {
	b := math.Round(v/GridResolution) * GridResolution
	if b == 0 {
		return 0 // drop negative zero
	}
	return b
}

// CellFor returns the grid cell containing the given coordinate.
func CellFor(lat, lon float64) GridCell {
	return GridCell{LatBin: Bin(lat), LonBin: Bin(lon)}
}
