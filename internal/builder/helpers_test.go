package builder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/forcinggate/internal/config"
	"github.com/vk/forcinggate/internal/ledger"
	"github.com/vk/forcinggate/internal/stager"
	"github.com/vk/forcinggate/internal/testutil"
)

var reference = time.Date(2020, 1, 1, 6, 0, 0, 0, time.UTC)

func stamp(t time.Time) string { return t.Format(config.TimeLayout) }

// writeGrid writes a netCDF file holding 2x3 float32 variables. Each entry
// of vars maps a variable name to its first value; values increase by one.
func writeGrid(t *testing.T, path string, vars map[string]float32) {
	t.Helper()
	var ncVars []testutil.NCVar
	for name, start := range vars {
		ncVars = append(ncVars, testutil.NCVar{Name: name, Dims: []string{"Y", "X"}, Data: testutil.Seq(start, 6)})
	}
	testutil.WriteNetCDF(t, path, []string{"Y", "X"}, []int{2, 3}, ncVars, nil)
}

// writeForecast writes a (time, Y, X) variable "rain" with n hourly slices
// and no time coordinate. Slice k holds the value 10*k everywhere.
func writeForecast(t *testing.T, path string, n int) {
	t.Helper()
	data := make([]float32, 0, n*6)
	for k := 0; k < n; k++ {
		data = append(data, testutil.Fill(float32(10*k), 6)...)
	}
	rain := testutil.NCVar{Name: "rain", Dims: []string{"time", "Y", "X"}, Data: data}
	testutil.WriteNetCDF(t, path, []string{"time", "Y", "X"}, []int{n, 2, 3}, []testutil.NCVar{rain}, nil)
}

func writeStations(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	body := "code,value,longitude,latitude\nA1,1.5,13.1,43.2\nB2,2.5,13.4,43.6\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func fastStager(t *testing.T) *stager.Stager {
	return stager.New(stager.Options{
		TempRoot:       t.TempDir(),
		Timeout:        time.Second,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
	})
}

// recorder is a Reporter that counts ticks per stage.
type recorder struct {
	started  map[string]int
	ticks    map[string]int
	finished []string
}

func newRecorder() *recorder {
	return &recorder{started: map[string]int{}, ticks: map[string]int{}}
}

func (r *recorder) StageStarted(stage ledger.Stage, steps int) { r.started[stage.String()] = steps }
func (r *recorder) StepDone(stage ledger.Stage)                { r.ticks[stage.String()]++ }
func (r *recorder) StageFinished(stage ledger.Stage)           { r.finished = append(r.finished, stage.String()) }
