package merge

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/vk/forcinggate/internal/fsutil"
	"github.com/vk/forcinggate/internal/loader"
)

// Metadata fills the metadata block of a combined container.
type Metadata struct {
	Title      string
	RunName    string
	Domain     string
	Mode       string
	Ensemble   int
	Step       time.Time
	Resolution time.Duration
	Created    time.Time
}

const timeUnits = "seconds since 1970-01-01 00:00:00"

// WriteContainer assembles records into a netCDF file with dimensions X, Y,
// time, nsim, nens and ntime (plus npoint for point records), compresses it
// next to path and removes the uncompressed file. It returns the path of
// the compressed file.
func WriteContainer(path string, ids []string, recs []*loader.Record, static *loader.Static, meta Metadata) (string, error) {
	if len(ids) != len(recs) || len(recs) == 0 {
		return "", fmt.Errorf("container %s: need one id per record (got %d ids, %d records)", path, len(ids), len(recs))
	}

	layout, err := planLayout(recs, static)
	if err != nil {
		return "", fmt.Errorf("container %s: %w", path, err)
	}

	h := cdf.NewHeader(layout.dims, layout.lengths)
	h.AddVariable("time", []string{"time"}, []float64{0})
	h.AddAttribute("time", "units", timeUnits)
	h.AddAttribute("time", "bounds", "time_bounds")
	h.AddVariable("time_bounds", []string{"time", "ntime"}, []float64{0})

	for i, rec := range recs {
		h.AddVariable(ids[i], layout.varDims(rec), []float32{0})
		h.AddAttribute(ids[i], "source_file", rec.SourceFile)
		h.AddAttribute(ids[i], "source_variable", rec.SourceVar)
		if units, ok := rec.Attrs["units"].(string); ok && units != "" {
			h.AddAttribute(ids[i], "units", units)
		}
	}
	if layout.static {
		for _, name := range staticNames {
			h.AddVariable(name, []string{"Y", "X"}, []float32{0})
		}
	}
	addMetadata(h, recs, meta)
	if static != nil {
		addGeoreference(h, static.Box)
	}
	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		return "", fmt.Errorf("container %s: invalid header: %v", path, errs[0])
	}

	plain := fsutil.Uncompressed(path)
	if err := os.MkdirAll(filepath.Dir(plain), 0o755); err != nil {
		return "", err
	}
	if err := writeData(plain, h, ids, recs, static, layout, meta); err != nil {
		os.Remove(plain)
		return "", fmt.Errorf("container %s: %w", plain, err)
	}

	zipped := fsutil.Compressed(plain)
	if err := fsutil.Compress(plain, zipped); err != nil {
		os.Remove(plain)
		return "", fmt.Errorf("compress %s: %w", plain, err)
	}
	if err := os.Remove(plain); err != nil {
		return "", err
	}
	return zipped, nil
}

var staticNames = []string{"terrain", "longitude", "latitude"}

// layout is the dimension plan of a container.
type layout struct {
	dims    []string
	lengths []int
	static  bool
}

func (l layout) varDims(rec *loader.Record) []string {
	if len(rec.Data.Shape) == 1 {
		return []string{"time", "npoint"}
	}
	return []string{"time", "Y", "X"}
}

func planLayout(recs []*loader.Record, static *loader.Static) (layout, error) {
	ny, nx, npoint := 0, 0, 0
	for _, rec := range recs {
		if rec == nil || rec.Data == nil {
			return layout{}, fmt.Errorf("incomplete record")
		}
		switch shape := rec.Data.Shape; len(shape) {
		case 1:
			if npoint != 0 && npoint != shape[0] {
				return layout{}, fmt.Errorf("point records disagree on size (%d vs %d)", npoint, shape[0])
			}
			npoint = shape[0]
		case 2:
			if ny != 0 && (ny != shape[0] || nx != shape[1]) {
				return layout{}, fmt.Errorf("gridded records disagree on shape (%dx%d vs %v)", ny, nx, shape)
			}
			ny, nx = shape[0], shape[1]
		default:
			return layout{}, fmt.Errorf("record of %s has rank %d", rec.SourceVar, len(shape))
		}
	}

	l := layout{}
	if static != nil && static.Terrain != nil {
		sy, sx := static.Terrain.Shape[0], static.Terrain.Shape[1]
		if ny == 0 {
			ny, nx = sy, sx
		}
		l.static = sy == ny && sx == nx
	}
	ny, nx = max(ny, 1), max(nx, 1)

	l.dims = []string{"X", "Y", "time", "nsim", "nens", "ntime"}
	l.lengths = []int{nx, ny, 1, 1, 1, 2}
	if npoint > 0 {
		l.dims = append(l.dims, "npoint")
		l.lengths = append(l.lengths, npoint)
	}
	return l, nil
}

func addMetadata(h *cdf.Header, recs []*loader.Record, meta Metadata) {
	title := meta.Title
	if title == "" {
		title = "forcing data"
	}
	created := meta.Created
	if created.IsZero() {
		created = time.Now()
	}
	var sources []string
	for _, rec := range recs {
		sources = append(sources, rec.SourceFile)
	}

	h.AddAttribute("", "title", title)
	h.AddAttribute("", "run_name", meta.RunName)
	h.AddAttribute("", "run_domain", meta.Domain)
	h.AddAttribute("", "run_mode", meta.Mode)
	h.AddAttribute("", "ensemble", []int32{int32(max(meta.Ensemble, 1))})
	h.AddAttribute("", "time_step", meta.Step.UTC().Format("200601021504"))
	h.AddAttribute("", "created", created.UTC().Format(time.RFC3339))
	h.AddAttribute("", "source_files", strings.Join(sources, ";"))
}

func addGeoreference(h *cdf.Header, box loader.GeoBox) {
	h.AddAttribute("", "bbox", box.BBox())
	h.AddAttribute("", "xllcorner", []float64{box.XLLCorner})
	h.AddAttribute("", "yllcorner", []float64{box.YLLCorner})
	h.AddAttribute("", "cellsize", []float64{box.CellSize})
	h.AddAttribute("", "nrows", []int32{int32(box.Rows)})
	h.AddAttribute("", "ncols", []int32{int32(box.Cols)})
	if box.UTMZone != "" {
		h.AddAttribute("", "utm_zone", box.UTMZone)
	}
}

func writeData(path string, h *cdf.Header, ids []string, recs []*loader.Record, static *loader.Static, l layout, meta Metadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cf, err := cdf.Create(f, h)
	if err != nil {
		return err
	}

	end := float64(meta.Step.Unix())
	start := end - meta.Resolution.Seconds()
	if err := write(cf, "time", []float64{end}); err != nil {
		return err
	}
	if err := write(cf, "time_bounds", []float64{start, end}); err != nil {
		return err
	}
	for i, rec := range recs {
		if err := write(cf, ids[i], float32s(rec.Data)); err != nil {
			return err
		}
	}
	if l.static {
		for i, layer := range []*sparse.DenseArray{static.Terrain, static.Longitude, static.Latitude} {
			if err := write(cf, staticNames[i], float32s(layer)); err != nil {
				return err
			}
		}
	}
	return f.Sync()
}

func write(cf *cdf.File, name string, data any) error {
	if _, err := cf.Writer(name, nil, nil).Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func float32s(a *sparse.DenseArray) []float32 {
	out := make([]float32, len(a.Elements))
	for i, v := range a.Elements {
		if math.IsNaN(v) {
			out[i] = float32(math.NaN())
			continue
		}
		out[i] = float32(v)
	}
	return out
}
