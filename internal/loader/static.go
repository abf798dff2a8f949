package loader

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/ctessum/sparse"
	"github.com/im7mortal/UTM"
	"github.com/vk/forcinggate/internal/ctxlog"
)

// StaticNames are the variable names of the companion layers in the static
// dataset.
type StaticNames struct {
	Terrain   string
	Longitude string
	Latitude  string
}

// DefaultStaticNames returns the conventional layer names.
func DefaultStaticNames() StaticNames {
	return StaticNames{Terrain: "terrain", Longitude: "longitude", Latitude: "latitude"}
}

// GeoBox is the georeference of a regular lon/lat grid.
type GeoBox struct {
	MinLon, MinLat float64
	MaxLon, MaxLat float64
	// XLLCorner and YLLCorner are the lower-left cell corner.
	XLLCorner, YLLCorner float64
	CellSize             float64
	Rows, Cols           int
	// UTMZone is the zone of the grid centre, e.g. "33T".
	UTMZone string
}

// BBox returns the box as [minLon, minLat, maxLon, maxLat].
func (b GeoBox) BBox() []float64 {
	return []float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat}
}

// Static holds the companion layers written next to every combined file.
type Static struct {
	Terrain   *sparse.DenseArray
	Longitude *sparse.DenseArray
	Latitude  *sparse.DenseArray
	Box       GeoBox
	// Header holds the static file's global attributes.
	Header map[string]any
}

// StaticCache loads the static dataset once per run.
type StaticCache struct {
	path  string
	names StaticNames

	once   sync.Once
	static *Static
	err    error
}

// NewStaticCache creates a cache for the static dataset at path.
func NewStaticCache(path string, names StaticNames) *StaticCache {
	return &StaticCache{path: path, names: names}
}

// Get returns the static layers, reading them on first use. A failed first
// read is remembered; the static dataset does not change during a run.
func (c *StaticCache) Get(ctx context.Context) (*Static, error) {
	c.once.Do(func() {
		c.static, c.err = c.load()
		if c.err == nil {
			ctxlog.FromContext(ctx).Debug("Static layers cached.", "path", c.path, "rows", c.static.Box.Rows, "cols", c.static.Box.Cols)
		}
	})
	return c.static, c.err
}

func (c *StaticCache) load() (*Static, error) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read static dataset: %w", err)
	}
	h, err := openNetCDF(c.path, raw)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	layer := func(name string) (*sparse.DenseArray, error) {
		rec, err := h.ReadVariable(context.Background(), Request{Variable: name, Source: c.path})
		if err != nil {
			return nil, fmt.Errorf("static layer %q: %w", name, err)
		}
		return rec.Data, nil
	}

	s := &Static{Header: h.attributes("")}
	if s.Terrain, err = layer(c.names.Terrain); err != nil {
		return nil, err
	}
	if s.Longitude, err = layer(c.names.Longitude); err != nil {
		return nil, err
	}
	if s.Latitude, err = layer(c.names.Latitude); err != nil {
		return nil, err
	}

	s.Box, err = NewGeoBox(s.Longitude, s.Latitude)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewGeoBox derives the georeference of a regular grid from its 2-D
// longitude and latitude layers.
func NewGeoBox(lon, lat *sparse.DenseArray) (GeoBox, error) {
	if len(lon.Shape) != 2 || len(lat.Shape) != 2 || lon.Shape[0] != lat.Shape[0] || lon.Shape[1] != lat.Shape[1] {
		return GeoBox{}, fmt.Errorf("longitude %v and latitude %v layers must be 2-D and congruent", lon.Shape, lat.Shape)
	}
	rows, cols := lon.Shape[0], lon.Shape[1]

	box := GeoBox{
		MinLon: math.Inf(1), MinLat: math.Inf(1),
		MaxLon: math.Inf(-1), MaxLat: math.Inf(-1),
		Rows: rows, Cols: cols,
	}
	for i := range lon.Elements {
		box.MinLon = math.Min(box.MinLon, lon.Elements[i])
		box.MaxLon = math.Max(box.MaxLon, lon.Elements[i])
		box.MinLat = math.Min(box.MinLat, lat.Elements[i])
		box.MaxLat = math.Max(box.MaxLat, lat.Elements[i])
	}

	if cols > 1 {
		box.CellSize = math.Abs(lon.Get(0, 1) - lon.Get(0, 0))
	} else if rows > 1 {
		box.CellSize = math.Abs(lat.Get(1, 0) - lat.Get(0, 0))
	}
	box.XLLCorner = box.MinLon - box.CellSize/2
	box.YLLCorner = box.MinLat - box.CellSize/2

	centreLat := (box.MinLat + box.MaxLat) / 2
	centreLon := (box.MinLon + box.MaxLon) / 2
	if _, _, zone, letter, err := UTM.FromLatLon(centreLat, centreLon, centreLat >= 0); err == nil {
		box.UTMZone = fmt.Sprintf("%d%s", zone, letter)
	}
	return box, nil
}
