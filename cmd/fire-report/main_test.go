package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/wildfire-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const firesCSV = `latitude,longitude,bright_ti4,acq_date,acq_time,satellite,frp,daynight
39.0,-117.5,331.2,2024-06-01,1330,N,4.5,D
39.1,-117.4,318.0,2024-06-01,1331,N,2.5,N
33.4,-112.0,345.0,2024-06-02,0905,N,12.8,D
not-a-number,-112.0,320.0,2024-06-02,1005,N,1.0,N
`

const regionsGeoJSON = `{"type": "FeatureCollection", "features": [
  {"type": "Feature", "properties": {"NAME": "Nevada", "STUSPS": "NV"},
   "geometry": {"type": "Polygon", "coordinates": [[[-120, 35], [-115, 35], [-115, 42], [-120, 42], [-120, 35]]]}}
]}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_PrintsTables(t *testing.T) {
	dir := t.TempDir()
	opts := options{
		firesPath:   writeFile(t, dir, "fires.csv", firesCSV),
		regionsPath: writeFile(t, dir, "regions.geojson", regionsGeoJSON),
		parquetDir:  filepath.Join(dir, "out"),
		top:         5,
		workers:     1,
		logLevel:    "error",
	}

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), opts, observability.NewMetricsForTesting(), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "rows read: 4, rejected: 1, detections: 3")
	assert.Contains(t, out, "2024-06-01  2")
	assert.Contains(t, out, "--- Top 5 regions ---")
	assert.Contains(t, out, "Nevada")
	assert.FileExists(t, filepath.Join(dir, "out", "by_date.parquet"))
}

func TestRun_FilterAndNoRegions(t *testing.T) {
	dir := t.TempDir()
	opts := options{
		firesPath:     writeFile(t, dir, "fires.csv", firesCSV),
		minBrightness: 330,
		dayNight:      "d",
		top:           5,
		workers:       1,
		logLevel:      "error",
	}

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run(context.Background(), opts, observability.NewMetricsForTesting(), &stdout, &stderr))
	assert.Contains(t, stdout.String(), "detections: 2")
	assert.Contains(t, stdout.String(), "(no region boundaries loaded)")
}

func TestRun_InvalidDayNight(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), options{firesPath: "x.csv", dayNight: "dusk"}, observability.NewMetricsForTesting(), &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "invalid -daynight")
}

func TestRun_MissingFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), options{firesPath: filepath.Join(t.TempDir(), "none.csv"), workers: 1, logLevel: "error"}, observability.NewMetricsForTesting(), &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "FATAL")
}
