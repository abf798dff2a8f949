package loader

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/forcinggate/internal/testutil"
)

func staticFile(t *testing.T) string {
	t.Helper()
	dims := []string{"Y", "X"}
	vars := []testutil.NCVar{
		{Name: "terrain", Dims: dims, Data: []float32{100, 200, 300, 400, 500, 600}},
		{Name: "longitude", Dims: dims, Data: []float32{13, 13.5, 14, 13, 13.5, 14}},
		{Name: "latitude", Dims: dims, Data: []float32{43, 43, 43, 43.5, 43.5, 43.5}},
	}
	return testutil.WriteNetCDF(t, filepath.Join(t.TempDir(), "static.nc"), dims, []int{2, 3}, vars, map[string]any{"title": "marche static"})
}

func TestStaticCache_LoadsOnce(t *testing.T) {
	// --- Arrange ---
	cache := NewStaticCache(staticFile(t), DefaultStaticNames())

	// --- Act ---
	first, err := cache.Get(context.Background())
	require.NoError(t, err)
	second, err := cache.Get(context.Background())
	require.NoError(t, err)

	// --- Assert ---
	assert.Same(t, first, second)
	assert.Equal(t, 600.0, first.Terrain.Get(1, 2))
	assert.Equal(t, "marche static", first.Header["title"])

	box := first.Box
	assert.Equal(t, []float64{13, 43, 14, 43.5}, box.BBox())
	assert.Equal(t, 2, box.Rows)
	assert.Equal(t, 3, box.Cols)
	assert.InDelta(t, 0.5, box.CellSize, 1e-9)
	assert.InDelta(t, 12.75, box.XLLCorner, 1e-9)
	assert.Equal(t, "33T", box.UTMZone)
}

func TestStaticCache_MissingLayer(t *testing.T) {
	names := DefaultStaticNames()
	names.Terrain = "dem"

	_, err := NewStaticCache(staticFile(t), names).Get(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), `"dem"`)
}

func TestNewGeoBox_RejectsMismatchedLayers(t *testing.T) {
	_, err := NewGeoBox(sparse.ZerosDense(2, 2), sparse.ZerosDense(2, 3))
	assert.Error(t, err)
}
