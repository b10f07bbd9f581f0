package geojson

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReader_ReadRegions(t *testing.T) {
	r := NewReader("testdata/regions.geojson", discardLogger())
	regions, err := r.ReadRegions(context.Background())
	require.NoError(t, err)
	require.Len(t, regions, 2)

	assert.Equal(t, "Nevada", regions[0].Name)
	assert.Equal(t, "NV", regions[0].PostalCode)
	assert.Len(t, regions[0].Geometry, 1)

	assert.Equal(t, "Hawaii", regions[1].Name)
	assert.Equal(t, "HI", regions[1].PostalCode)
	assert.Len(t, regions[1].Geometry, 2)
}

func TestReader_RegionsLocateDetections(t *testing.T) {
	regions, err := NewReader("testdata/regions.geojson", discardLogger()).ReadRegions(context.Background())
	require.NoError(t, err)

	set, err := domain.NewRegionSet(regions)
	require.NoError(t, err)

	name, ok := set.Locate(39.0, -117.5)
	assert.True(t, ok)
	assert.Equal(t, "Nevada", name)

	name, ok = set.Locate(21.5, -158.0)
	assert.True(t, ok)
	assert.Equal(t, "Hawaii", name)

	_, ok = set.Locate(45.0, -100.0)
	assert.False(t, ok)
}

func TestReader_MissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "none.geojson"), discardLogger()).ReadRegions(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReader_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewReader("testdata/regions.geojson", discardLogger()).ReadRegions(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseRegions_Invalid(t *testing.T) {
	_, err := ParseRegions([]byte(`{"type": "FeatureCollection", "features": [`), discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode feature collection")
}

func TestParseRegions_Empty(t *testing.T) {
	regions, err := ParseRegions([]byte(`{"type": "FeatureCollection", "features": []}`), discardLogger())
	require.NoError(t, err)
	assert.Empty(t, regions)
}
