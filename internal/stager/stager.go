// Package stager produces private, decompressed copies of shared source
// files and opens them, retrying while a sibling process may still be
// writing or unzipping the same source.
//
// # Protocol
//
// Each attempt works in a fresh temp directory: the source is copied in,
// inflated when it carries the compressed suffix, and handed to the caller's
// OpenFunc. Whatever the attempt's outcome, the temp directory is removed
// before the next attempt or the return. OpenFunc implementations therefore
// must not keep the path open past their return; the loader drivers read the
// file into memory.
//
// The source tree is only ever read. No locks are taken: a reader racing a
// writer gets a truncated copy, fails to open it, and tries again after a
// backoff, until the staging deadline passes.
package stager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vk/forcinggate/internal/ctxlog"
	"github.com/vk/forcinggate/internal/failure"
	"github.com/vk/forcinggate/internal/fsutil"
)

// OpenFunc opens a staged, uncompressed file.
type OpenFunc func(ctx context.Context, path string) error

// Options tune the retry loop.
type Options struct {
	// TempRoot is where private staging directories are created. Empty
	// means os.TempDir().
	TempRoot string
	// Timeout bounds the whole Stage call.
	Timeout time.Duration
	// InitialBackoff is the wait after the first failed attempt.
	InitialBackoff time.Duration
	// MaxBackoff caps the exponential backoff.
	MaxBackoff time.Duration
}

// DefaultOptions returns the stager defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:        30 * time.Second,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	}
}

// Result describes a successful stage.
type Result struct {
	Source   string
	Attempts int
	Elapsed  time.Duration
}

// Stager copies, decompresses and opens source files.
type Stager struct {
	opts  Options
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Stager. Zero option fields fall back to DefaultOptions.
func New(opts Options) *Stager {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = def.InitialBackoff
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		opts.MaxBackoff = max(def.MaxBackoff, opts.InitialBackoff)
	}
	return &Stager{opts: opts, now: time.Now, sleep: sleepCtx}
}

// Stage runs attempts until open succeeds, the timeout elapses, or ctx is
// done. A source that does not exist fails immediately with
// failure.ErrFileNotFound; running out of time returns
// failure.ErrStagingTimeout wrapping the last attempt's error.
func (s *Stager) Stage(ctx context.Context, src string, open OpenFunc) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	if _, err := os.Stat(src); err != nil {
		if fsutil.IsNotExist(err) {
			return nil, fmt.Errorf("stage %s: %w", src, failure.ErrFileNotFound)
		}
		return nil, fmt.Errorf("stage %s: %w", src, err)
	}

	start := s.now()
	deadline := start.Add(s.opts.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	backoff := s.opts.InitialBackoff
	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = s.attempt(ctx, src, open)
		if lastErr == nil {
			elapsed := s.now().Sub(start)
			logger.Debug("Source staged.", "source", src, "attempts", attempt, "elapsed", elapsed)
			return &Result{Source: src, Attempts: attempt, Elapsed: elapsed}, nil
		}
		if errors.Is(lastErr, failure.ErrFileNotFound) {
			return nil, fmt.Errorf("stage %s: %w", src, lastErr)
		}

		remaining := deadline.Sub(s.now())
		if remaining <= 0 {
			return nil, fmt.Errorf("stage %s after %d attempts: %w: %w", src, attempt, failure.ErrStagingTimeout, lastErr)
		}
		wait := min(backoff, remaining)
		logger.Debug("Staging attempt failed, retrying.", "source", src, "attempt", attempt, "wait", wait, "error", lastErr)

		if err := s.sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("stage %s: %w", src, err)
		}
		backoff = min(backoff*2, s.opts.MaxBackoff)
	}
}

// attempt performs one copy/inflate/open cycle in a private directory.
func (s *Stager) attempt(ctx context.Context, src string, open OpenFunc) error {
	dir, err := os.MkdirTemp(s.opts.TempRoot, "stage-*")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(dir)

	local := filepath.Join(dir, filepath.Base(src))
	if err := fsutil.CopyFile(src, local); err != nil {
		if fsutil.IsNotExist(err) {
			return failure.ErrFileNotFound
		}
		return fmt.Errorf("copy: %w", err)
	}

	if fsutil.IsCompressed(local) {
		plain := fsutil.Uncompressed(local)
		if err := fsutil.Decompress(local, plain); err != nil {
			return fmt.Errorf("decompress: %w", err)
		}
		local = plain
	}

	if err := open(ctx, local); err != nil {
		return fmt.Errorf("open: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
