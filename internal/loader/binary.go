package loader

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"time"

	"github.com/ctessum/sparse"
	"github.com/vk/forcinggate/internal/failure"
)

// BinaryDriver reads fixed-layout int32 grids.
type BinaryDriver struct{}

// Open reads the file into memory. The layout is only known per request.
func (BinaryDriver) Open(_ context.Context, path string) (Handle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &binaryHandle{path: path, raw: raw}, nil
}

type binaryHandle struct {
	path string
	raw  []byte
}

// ReadVariable decodes the grid declared by req.Grid. Stored values are
// little-endian int32 in column-major order; dividing by Scale gives
// physical units.
func (h *binaryHandle) ReadVariable(_ context.Context, req Request) (*Record, error) {
	g := req.Grid
	if g.Rows <= 0 || g.Cols <= 0 {
		return nil, failure.Loadf("%s: grid rows and cols must be positive (got %dx%d)", h.path, g.Rows, g.Cols)
	}
	if g.Scale <= 0 {
		return nil, failure.Loadf("%s: scale factor must be a positive integer (got %d)", h.path, g.Scale)
	}
	n := g.Rows * g.Cols
	if len(h.raw) != n*4 {
		return nil, failure.Loadf("%s: expected %d bytes for a %dx%d grid, found %d", h.path, n*4, g.Rows, g.Cols, len(h.raw))
	}

	stored := make([]int32, n)
	if err := binary.Read(bytes.NewReader(h.raw), binary.LittleEndian, stored); err != nil {
		return nil, failure.Loadf("%s: %v", h.path, err)
	}

	scale := float64(g.Scale)
	data := sparse.ZerosDense(g.Rows, g.Cols)
	for c := 0; c < g.Cols; c++ {
		for r := 0; r < g.Rows; r++ {
			data.Set(float64(stored[c*g.Rows+r])/scale, r, c)
		}
	}

	return &Record{
		Data:       data,
		SourceFile: req.Source,
		SourceVar:  req.Variable,
		Time:       req.Time,
		Attrs:      map[string]any{"scale_factor": g.Scale},
	}, nil
}

func (h *binaryHandle) ReadTimeAxis(string) ([]time.Time, error) { return nil, nil }

func (h *binaryHandle) Close() error {
	h.raw = nil
	return nil
}
