package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/stretchr/testify/require"
)

// NCVar is a variable of a fixture netCDF file. Data must be a []float32,
// []float64 or []int32 laid out in row-major order.
type NCVar struct {
	Name  string
	Dims  []string
	Data  any
	Attrs map[string]any
}

// WriteNetCDF creates a classic netCDF file at path, creating parent
// directories as needed, and returns path.
func WriteNetCDF(t *testing.T, path string, dims []string, lengths []int, vars []NCVar, globals map[string]any) string {
	t.Helper()

	h := cdf.NewHeader(dims, lengths)
	for _, v := range vars {
		switch v.Data.(type) {
		case []float32:
			h.AddVariable(v.Name, v.Dims, []float32{0})
		case []float64:
			h.AddVariable(v.Name, v.Dims, []float64{0})
		case []int32:
			h.AddVariable(v.Name, v.Dims, []int32{0})
		default:
			t.Fatalf("unsupported fixture type %T", v.Data)
		}
		for k, a := range v.Attrs {
			h.AddAttribute(v.Name, k, a)
		}
	}
	for k, a := range globals {
		h.AddAttribute("", k, a)
	}
	h.Define()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	cf, err := cdf.Create(f, h)
	require.NoError(t, err)
	for _, v := range vars {
		_, err := cf.Writer(v.Name, nil, nil).Write(v.Data)
		require.NoError(t, err)
	}
	return path
}

// Seq returns n float32 values start, start+1, ...
func Seq(start float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = start + float32(i)
	}
	return out
}

// Fill returns n copies of v.
func Fill(v float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}
