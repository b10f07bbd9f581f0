// Package domain models NASA FIRMS satellite fire detections and the
// aggregation of those detections by date, grid cell and US state.
//
// # Data Source
//
// Detections come from the FIRMS "SUOMI VIIRS C2" active fire CSV exports,
// available at https://firms.modaps.eosdis.nasa.gov/. Each row is a thermal
// anomaly observed in VIIRS band I4. Region polygons are US state
// boundaries (Census cartographic boundary files, converted to GeoJSON).
//
// # FIRMS Data Conventions
//
// Coordinates:
//
//	WGS84 decimal degrees. Rows outside [-90,90] latitude or [-180,180]
//	longitude are rejected.
//
// Time format:
//
//	acq_date is "YYYY-MM-DD"; acq_time is HHMM in UTC with leading zeros
//	dropped by most spreadsheet tooling: "5" = 00:05, "930" = 09:30.
//	Values are left-padded to four digits before parsing.
//
// Brightness:
//
//	bright_ti4 is the I4 channel brightness temperature in Kelvin. Values
//	above 330 K are treated as "hot" detections in summaries.
//
// Day/night flag:
//
//	"D" for a daytime pass, "N" for a nighttime pass.
//
// # Grid Binning
//
// Grid cells snap each coordinate to the nearest 0.5° multiple with
// round(v*2)/2, rounding halves away from zero (math.Round). For example
// 34.05 → 34.0 and -118.25 → -118.5. See [Bin].
//
// # Region Assignment
//
// A detection belongs to at most one region. Regions are tested in name
// order and the first containing polygon wins, so a point lying exactly on
// a shared border is assigned to the alphabetically first state. Points
// outside every polygon have no region and are left out of region tables.
package domain
