// Package locator resolves a filename template against a list of arrival
// candidates and returns the most recent file that exists on disk.
package locator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vk/forcinggate/internal/ctxlog"
	"github.com/vk/forcinggate/internal/failure"
	"github.com/vk/forcinggate/internal/fsutil"
	"github.com/vk/forcinggate/internal/tags"
)

// Miss records why a single candidate did not resolve.
type Miss struct {
	Candidate time.Time
	Path      string
	Reason    string
}

// Result is a successful lookup.
type Result struct {
	Path      string
	Candidate time.Time
	// Fallback is true when the winner is not the most recent candidate.
	Fallback bool
	// Misses lists the candidates tried before the winner.
	Misses []Miss
}

// NotFoundError is returned when every candidate misses. It wraps
// failure.ErrFileNotFound.
type NotFoundError struct {
	Template string
	Misses   []Miss
}

func (e *NotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: no candidate for %q (%d tried)", failure.ErrFileNotFound, e.Template, len(e.Misses))
	for _, m := range e.Misses {
		fmt.Fprintf(&b, "; %s %s: %s", m.Candidate.Format("200601021504"), m.Path, m.Reason)
	}
	return b.String()
}

func (e *NotFoundError) Unwrap() error { return failure.ErrFileNotFound }

// Prefetcher is given the chance to supply a missing file before the
// locator gives up on a candidate. It returns the path of its own copy, or
// "" when it has none. localPath itself must not be created.
type Prefetcher interface {
	Prefetch(ctx context.Context, candidate time.Time, localPath string) (string, error)
}

// Locator finds source files.
type Locator struct {
	exists     func(string) bool
	prefetcher Prefetcher
}

// Option configures a Locator.
type Option func(*Locator)

// WithPrefetcher installs a Prefetcher consulted for each missing candidate.
func WithPrefetcher(p Prefetcher) Option {
	return func(l *Locator) { l.prefetcher = p }
}

// New creates a Locator that checks the local file system.
func New(opts ...Option) *Locator {
	l := &Locator{exists: fsutil.Exists}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Locate renders template once per candidate and returns the first that
// exists. Candidates must be ordered most recent first. base is extended
// with the date tokens of each candidate.
func (l *Locator) Locate(ctx context.Context, template string, base tags.Map, candidates []time.Time) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	var misses []Miss

	for i, c := range candidates {
		path, err := tags.Render(template, base.With(tags.Time(c)))
		switch {
		case err != nil:
			misses = append(misses, Miss{Candidate: c, Reason: err.Error()})
			continue
		case strings.TrimSpace(path) == "":
			misses = append(misses, Miss{Candidate: c, Reason: "empty file name"})
			continue
		}

		if found, ok := l.lookup(ctx, c, path); ok {
			logger.Debug("Source file located.", "path", found, "candidate", c, "fallback", i > 0)
			return &Result{Path: found, Candidate: c, Fallback: i > 0, Misses: misses}, nil
		}
		misses = append(misses, Miss{Candidate: c, Path: path, Reason: "does not exist"})
	}

	return nil, &NotFoundError{Template: template, Misses: misses}
}

// lookup checks path, then its compressed sibling, then asks the
// prefetcher, whose copy becomes the winner.
func (l *Locator) lookup(ctx context.Context, c time.Time, path string) (string, bool) {
	if found, ok := l.onDisk(path); ok {
		return found, true
	}
	if l.prefetcher == nil {
		return "", false
	}

	fetched, err := l.prefetcher.Prefetch(ctx, c, path)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Prefetch failed.", "path", path, "error", err)
		return "", false
	}
	if fetched == "" || !l.exists(fetched) {
		return "", false
	}
	return fetched, true
}

func (l *Locator) onDisk(path string) (string, bool) {
	if l.exists(path) {
		return path, true
	}
	if zipped := fsutil.Compressed(path); zipped != path && l.exists(zipped) {
		return zipped, true
	}
	return "", false
}
