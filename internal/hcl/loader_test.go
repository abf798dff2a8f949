package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/forcinggate/internal/ledger"
	"github.com/vk/forcinggate/internal/loader"
)

const runHCL = `
run {
  name              = "hmc"
  domain            = upper(env.DOMAIN)
  reference         = "202001011200"
  resolution        = "1h"
  obs_steps         = 3
  for_steps         = 2
  corrivation_hours = 1
  destination       = format("%s/run", env.DATA_ROOT)
}

thresholds {
  gridded = 90
  point   = 50
}

staging {
  timeout = "5s"
}
`

const datasetsHCL = `
dataset "rain" {
  category    = "forcing_gridded"
  class       = "obs"
  format      = "netcdf"
  source      = "/src/$yyyy/$mm/$dd/rain_$yyyy$mm$dd$HH$MM.nc"
  destination = "forcing/rain_$yyyy$mm$dd$HH$MM.nc"
  operations  = ["merge"]

  arrival {
    days    = 1
    hours   = ["00", "12"]
    latency = "3h"
  }

  variable "rain" {
    source    = "precip"
    transform = "value * 1000"
  }
}

dataset "dem" {
  category    = "forcing_point"
  format      = "binary"
  source      = "/src/dem.bin"
  destination = "dem.bin"

  variable "dem" {
    rows  = 2
    cols  = 3
    scale = 10
  }
}
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newTestLoader() *Loader {
	return &Loader{environ: func() []string {
		return []string{"DOMAIN=marche", "DATA_ROOT=/data", "NOT-AN-IDENT=x"}
	}}
}

func TestLoader_Load_MergesFiles(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	writeFile(t, dir, "run.hcl", runHCL)
	writeFile(t, dir, "sources/datasets.hcl", datasetsHCL)
	writeFile(t, dir, "README.md", "ignored")

	// --- Act ---
	m, err := newTestLoader().Load(context.Background(), dir)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "MARCHE", m.Run.Domain)
	assert.Equal(t, "/data/run", m.Run.Destination)
	assert.Equal(t, time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC), m.Run.Reference)
	assert.Equal(t, 5*time.Second, m.Staging.Timeout)
	require.NotNil(t, m.Thresholds.Point)
	assert.Equal(t, 90.0, m.Thresholds.Gridded)
	assert.Equal(t, 50.0, *m.Thresholds.Point)

	require.Len(t, m.Datasets, 2)
	rain, ok := m.Dataset("rain")
	require.True(t, ok)
	assert.Equal(t, ledger.ForcingGridded, rain.Category)
	assert.Equal(t, []string{"merge"}, rain.Operations)
	assert.Equal(t, []int{0, 12}, rain.Arrival.Hours)
	assert.Equal(t, "/data/run/forcing/rain_$yyyy$mm$dd$HH$MM.nc", rain.Destination)
	assert.Equal(t, "value * 1000", rain.Variables[0].Transform)

	dem, ok := m.Dataset("dem")
	require.True(t, ok)
	assert.Equal(t, loader.Binary, dem.Format)
	assert.Equal(t, loader.Grid{Rows: 2, Cols: 3, Scale: 10}, dem.Variables[0].Grid)
}

func TestLoader_Load_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "no files",
			files:   map[string]string{"notes.txt": "x"},
			wantErr: "no .hcl files found",
		},
		{
			name:    "syntax error",
			files:   map[string]string{"bad.hcl": "run {"},
			wantErr: "failed to parse HCL file",
		},
		{
			name:    "unknown block",
			files:   map[string]string{"run.hcl": runHCL + "\nrunner \"x\" {}\n"},
			wantErr: "failed to decode HCL file",
		},
		{
			name:    "missing run block",
			files:   map[string]string{"datasets.hcl": datasetsHCL},
			wantErr: "no run block",
		},
		{
			name:    "duplicate run block",
			files:   map[string]string{"a.hcl": runHCL, "b.hcl": runHCL + datasetsHCL},
			wantErr: "duplicate run block",
		},
		{
			name:    "invalid model",
			files:   map[string]string{"run.hcl": runHCL},
			wantErr: "at least one dataset",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			dir := t.TempDir()
			for name, body := range tc.files {
				writeFile(t, dir, name, body)
			}

			// --- Act ---
			_, err := newTestLoader().Load(context.Background(), dir)

			// --- Assert ---
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoader_Load_SkipsMissingPaths(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	file := writeFile(t, dir, "all.hcl", runHCL+datasetsHCL)

	// --- Act ---
	m, err := newTestLoader().Load(context.Background(), filepath.Join(dir, "absent"), file, file)

	// --- Assert ---
	require.NoError(t, err)
	assert.Len(t, m.Datasets, 2, "a path listed twice is loaded once")
}
