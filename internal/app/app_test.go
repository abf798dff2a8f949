package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/forcinggate/internal/arrival"
	"github.com/vk/forcinggate/internal/config"
	"github.com/vk/forcinggate/internal/gate"
	"github.com/vk/forcinggate/internal/ledger"
	"github.com/vk/forcinggate/internal/loader"
)

var reference = time.Date(2020, 1, 1, 6, 0, 0, 0, time.UTC)

// modelLoader is a config.Loader returning a fixed model.
type modelLoader struct {
	model *config.Model
	err   error
	paths []string
}

func (l *modelLoader) Load(_ context.Context, paths ...string) (*config.Model, error) {
	l.paths = paths
	return l.model, l.err
}

func testModel(src, out string) *config.Model {
	return &config.Model{
		Run: config.Run{
			Name:       "hmc",
			Reference:  reference,
			Resolution: time.Hour,
			ObsSteps:   2,
		},
		Thresholds: config.Thresholds{Gridded: 50},
		Staging:    config.Staging{TempRoot: out, Timeout: time.Second},
		Datasets: []*config.Dataset{{
			Name:        "points",
			Category:    ledger.ForcingGridded,
			Format:      loader.ASCII,
			Source:      filepath.Join(src, "p_$yyyy$mm$dd$HH$MM.csv"),
			Destination: filepath.Join(out, "p_$yyyy$mm$dd$HH$MM.csv"),
			Arrival:     arrival.Exact,
			Variables:   []*config.Variable{{ID: "rain", Source: "rain"}},
		}},
	}
}

func writePoints(t *testing.T, dir string, at time.Time) {
	t.Helper()
	name := filepath.Join(dir, "p_"+at.Format(config.TimeLayout)+".csv")
	require.NoError(t, os.WriteFile(name, []byte("code,value\nA,1\n"), 0o644))
}

func TestApp_Run_Allowed(t *testing.T) {
	// --- Arrange ---
	src, out := t.TempDir(), t.TempDir()
	writePoints(t, src, reference)
	writePoints(t, src, reference.Add(-time.Hour))
	snapshotPath := filepath.Join(out, "summary.csv")
	cfg := &Config{ConfigPath: "forcing.hcl", LogFormat: "text", SnapshotPath: snapshotPath}
	ld := &modelLoader{model: testModel(src, out)}
	a, logs := SetupAppTest(t, cfg, ld)

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"forcing.hcl"}, ld.paths)
	assert.Contains(t, logs.String(), "Run allowed")
	raw, err := os.ReadFile(snapshotPath)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(raw)), "\n"), 3, "header plus one row per step")
}

func TestApp_Run_Blocked(t *testing.T) {
	// --- Arrange ---
	src, out := t.TempDir(), t.TempDir()
	writePoints(t, src, reference)
	writePoints(t, src, reference.Add(-2*time.Hour))
	m := testModel(src, out)
	m.Run.ObsSteps = 3
	m.Thresholds.Gridded = 80
	a, logs := SetupAppTest(t, &Config{ConfigPath: "x"}, &modelLoader{model: m})

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.Error(t, err)
	assert.True(t, errors.Is(err, gate.ErrBlocked))
	assert.Contains(t, err.Error(), "66.7%")
	assert.Contains(t, logs.String(), "Run blocked")
}

func TestNewApp_Overrides(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("FORCINGGATE_TEST_ROOT=/data\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("FORCINGGATE_TEST_ROOT") })
	override := time.Date(2021, 3, 4, 5, 0, 0, 0, time.UTC)

	// --- Act ---
	a, _ := SetupAppTest(t, &Config{
		ConfigPath:   "x",
		EnvFile:      envFile,
		Reference:    override,
		SnapshotPath: "out.csv",
	}, &modelLoader{model: testModel(dir, dir)})

	// --- Assert ---
	assert.Equal(t, "/data", os.Getenv("FORCINGGATE_TEST_ROOT"))
	assert.Equal(t, override, a.Model().Run.Reference)
	require.NotNil(t, a.Model().Snapshot)
	assert.Equal(t, "out.csv", a.Model().Snapshot.CSV)
}

func TestNewApp_PanicsOnLoadError(t *testing.T) {
	ld := &modelLoader{err: errors.New("bad file")}

	assert.PanicsWithError(t, "failed to load configuration: bad file", func() {
		NewApp(&SafeBuffer{}, &Config{ConfigPath: "x"}, ld)
	})
}

func TestNewConfig(t *testing.T) {
	_, err := NewConfig(Config{})
	assert.Error(t, err)

	cfg, err := NewConfig(Config{ConfigPath: "a.hcl"})
	require.NoError(t, err)
	assert.Equal(t, "a.hcl", cfg.ConfigPath)
}
