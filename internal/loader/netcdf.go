package loader

import (
	"context"
	"fmt"
	"math"
	"os"
	"slices"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/vk/forcinggate/internal/failure"
)

// NetCDFDriver reads classic netCDF files.
type NetCDFDriver struct{}

// Open reads the file into memory and parses its header.
func (NetCDFDriver) Open(_ context.Context, path string) (Handle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return openNetCDF(path, raw)
}

func openNetCDF(path string, raw []byte) (*netcdfHandle, error) {
	mf := &memFile{b: raw}
	f, err := cdf.Open(mf)
	if err != nil {
		return nil, fmt.Errorf("parse netCDF header of %s: %w", path, err)
	}
	return &netcdfHandle{path: path, mem: mf, f: f}, nil
}

type netcdfHandle struct {
	path string
	mem  *memFile
	f    *cdf.File
}

func (h *netcdfHandle) has(name string) bool {
	return slices.Contains(h.f.Header.Variables(), name)
}

// ReadVariable reads a rank-2 variable whole or one time slice of a rank-3
// variable.
func (h *netcdfHandle) ReadVariable(_ context.Context, req Request) (*Record, error) {
	name := req.Variable
	if !h.has(name) {
		return nil, fmt.Errorf("%w: %q not in %s", failure.ErrVariableMissing, name, h.path)
	}

	lengths := h.f.Header.Lengths(name)
	var begin, end []int
	var ny, nx int
	at := req.Time

	switch len(lengths) {
	case 2:
		ny, nx = lengths[0], lengths[1]
	case 3:
		idx, err := h.timeIndex(req, lengths[0])
		if err != nil {
			return nil, err
		}
		ny, nx = lengths[1], lengths[2]
		begin = []int{idx, 0, 0}
		end = []int{idx + 1, ny, nx}
	default:
		return nil, failure.Loadf("%s: variable %q has rank %d, want 2 or 3", h.path, name, len(lengths))
	}

	values, err := h.read(name, begin, end)
	if err != nil {
		return nil, err
	}
	if len(values) != ny*nx {
		return nil, failure.Loadf("%s: variable %q: read %d values, want %d", h.path, name, len(values), ny*nx)
	}
	h.unpack(name, values)

	data := sparse.ZerosDense(ny, nx)
	copy(data.Elements, values)

	return &Record{
		Data:       data,
		SourceFile: req.Source,
		SourceVar:  name,
		Time:       at,
		Attrs:      h.attributes(name),
	}, nil
}

// timeIndex maps req.Time onto a slice of the leading dimension.
//
// With a time coordinate the match must be exact. Without one the index is
// synthesized as floor((Time-Arrival)/Resolution) and clipped to the
// declared step count. The synthesized index assumes regular upstream
// slices and picks the wrong one silently when they are not.
func (h *netcdfHandle) timeIndex(req Request, dimLen int) (int, error) {
	axis, err := h.ReadTimeAxis(req.timeVariable())
	if err != nil {
		return 0, err
	}

	if axis != nil {
		want := stamp(req.Time)
		for i, t := range axis {
			if stamp(t) == want {
				return i, nil
			}
		}
		return 0, &failure.IndexError{
			Kind:     failure.ResolutionMismatch,
			Variable: req.Variable,
			Detail:   fmt.Sprintf("no slice at %s in %s", want, h.path),
		}
	}

	if req.Resolution <= 0 {
		return 0, failure.Loadf("%s: no time coordinate and no time resolution configured", h.path)
	}
	steps := dimLen
	if req.StepCount > 0 && req.StepCount < steps {
		steps = req.StepCount
	}
	if steps <= 0 {
		return 0, failure.Loadf("%s: variable %q has an empty time dimension", h.path, req.Variable)
	}

	idx := SynthesizedIndex(req.Time, req.Arrival, req.Resolution)
	if idx < 0 {
		return 0, &failure.IndexError{
			Kind:     failure.NotYetProduced,
			Variable: req.Variable,
			Detail:   fmt.Sprintf("%s precedes production at %s", stamp(req.Time), stamp(req.Arrival)),
		}
	}
	return min(idx, steps-1), nil
}

// SynthesizedIndex returns floor((requested-arrival)/resolution), before
// any clipping.
func SynthesizedIndex(requested, arrival time.Time, resolution time.Duration) int {
	return int(math.Floor(float64(requested.Sub(arrival)) / float64(resolution)))
}

// ReadTimeAxis decodes the named coordinate variable.
func (h *netcdfHandle) ReadTimeAxis(name string) ([]time.Time, error) {
	if !h.has(name) {
		return nil, nil
	}
	values, err := h.read(name, nil, nil)
	if err != nil {
		return nil, err
	}
	units, _ := h.f.Header.GetAttribute(name, "units").(string)
	axis, err := decodeTimes(values, units)
	if err != nil {
		return nil, failure.Loadf("%s: time coordinate %q: %v", h.path, name, err)
	}
	return axis, nil
}

func (h *netcdfHandle) read(name string, begin, end []int) ([]float64, error) {
	r := h.f.Reader(name, begin, end)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, failure.Loadf("%s: read %q: %v", h.path, name, err)
	}
	values, ok := toFloat64(buf)
	if !ok {
		return nil, failure.Loadf("%s: variable %q has unsupported type %T", h.path, name, buf)
	}
	return values, nil
}

// unpack applies _FillValue, scale_factor and add_offset in place.
func (h *netcdfHandle) unpack(name string, values []float64) {
	fill, hasFill := attrFloat(h.f.Header.GetAttribute(name, "_FillValue"))
	scale, hasScale := attrFloat(h.f.Header.GetAttribute(name, "scale_factor"))
	offset, hasOffset := attrFloat(h.f.Header.GetAttribute(name, "add_offset"))
	if !hasFill && !hasScale && !hasOffset {
		return
	}
	if !hasScale {
		scale = 1
	}
	for i, v := range values {
		if hasFill && v == fill {
			values[i] = math.NaN()
			continue
		}
		values[i] = v*scale + offset
	}
}

func (h *netcdfHandle) attributes(name string) map[string]any {
	attrs := make(map[string]any)
	for _, a := range h.f.Header.Attributes(name) {
		attrs[a] = h.f.Header.GetAttribute(name, a)
	}
	return attrs
}

func (h *netcdfHandle) Close() error {
	h.f = nil
	h.mem = nil
	return nil
}

func toFloat64(buf any) ([]float64, bool) {
	switch v := buf.(type) {
	case []float64:
		return slices.Clone(v), true
	case []float32:
		return convert(v), true
	case []int32:
		return convert(v), true
	case []int16:
		return convert(v), true
	case []int8:
		return convert(v), true
	case []uint8:
		return convert(v), true
	default:
		return nil, false
	}
}

func convert[T float32 | int32 | int16 | int8 | uint8](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// attrFloat extracts the first numeric value of an attribute.
func attrFloat(v any) (float64, bool) {
	values, ok := toFloat64(v)
	if !ok || len(values) == 0 {
		return 0, false
	}
	return values[0], true
}
