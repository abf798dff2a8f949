package stager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/forcinggate/internal/failure"
	"github.com/vk/forcinggate/internal/fsutil"
)

// fakeClock advances only when the stager sleeps.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func newTestStager(t *testing.T, opts Options) (*Stager, *fakeClock) {
	t.Helper()
	opts.TempRoot = t.TempDir()
	s := New(opts)
	clock := &fakeClock{now: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
	s.now = clock.Now
	s.sleep = clock.Sleep
	return s, clock
}

func TestStage_CompressedSourceMatchesReference(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	reference := []byte("precipitation grid bytes \x00\x01\x02")
	plain := filepath.Join(dir, "rain.nc")
	require.NoError(t, os.WriteFile(plain, reference, 0o600))
	zipped := fsutil.Compressed(plain)
	require.NoError(t, fsutil.Compress(plain, zipped))
	require.NoError(t, os.Remove(plain))

	s, _ := newTestStager(t, Options{})
	var got []byte
	var openedPath string

	// --- Act ---
	res, err := s.Stage(context.Background(), zipped, func(_ context.Context, path string) error {
		openedPath = path
		var err error
		got, err = os.ReadFile(path)
		return err
	})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, reference, got)
	assert.Equal(t, "rain.nc", filepath.Base(openedPath))
	assert.NoFileExists(t, openedPath, "temp artifacts are removed after open")
	assert.FileExists(t, zipped, "the source is never touched")

	entries, err := os.ReadDir(s.opts.TempRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStage_MissingSourceFailsFast(t *testing.T) {
	s, clock := newTestStager(t, Options{Timeout: time.Minute})
	calls := 0

	_, err := s.Stage(context.Background(), filepath.Join(t.TempDir(), "absent.nc"), func(context.Context, string) error {
		calls++
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrFileNotFound)
	assert.NotErrorIs(t, err, failure.ErrStagingTimeout)
	assert.Zero(t, calls)
	assert.Empty(t, clock.sleeps, "no waiting for a source that does not exist")
}

func TestStage_RetriesUntilOpenSucceeds(t *testing.T) {
	// --- Arrange ---
	src := filepath.Join(t.TempDir(), "obs.csv")
	require.NoError(t, os.WriteFile(src, []byte("code,value\n"), 0o600))
	s, clock := newTestStager(t, Options{Timeout: time.Minute, InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond})

	failures := 3
	// --- Act ---
	res, err := s.Stage(context.Background(), src, func(context.Context, string) error {
		if failures > 0 {
			failures--
			return errors.New("truncated file")
		}
		return nil
	})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 4, res.Attempts)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond}, clock.sleeps)
}

func TestStage_TimesOut(t *testing.T) {
	src := filepath.Join(t.TempDir(), "nwp.nc")
	require.NoError(t, os.WriteFile(src, []byte("partial"), 0o600))
	s, clock := newTestStager(t, Options{Timeout: time.Second, InitialBackoff: 400 * time.Millisecond, MaxBackoff: 400 * time.Millisecond})

	_, err := s.Stage(context.Background(), src, func(context.Context, string) error {
		return errors.New("not a netCDF file")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrStagingTimeout)
	assert.Contains(t, err.Error(), "not a netCDF file")
	assert.Equal(t, []time.Duration{400 * time.Millisecond, 400 * time.Millisecond, 200 * time.Millisecond}, clock.sleeps)
	assert.Equal(t, failure.Warn, failure.Classify(err, false))
}

func TestStage_HonoursCancellation(t *testing.T) {
	src := filepath.Join(t.TempDir(), "nwp.nc")
	require.NoError(t, os.WriteFile(src, []byte("partial"), 0o600))
	s := New(Options{TempRoot: t.TempDir(), Timeout: time.Hour, InitialBackoff: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	_, err := s.Stage(ctx, src, func(context.Context, string) error {
		cancel()
		return errors.New("busy")
	})

	assert.ErrorIs(t, err, context.Canceled)
}
