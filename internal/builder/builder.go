package builder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/vk/forcinggate/internal/config"
	"github.com/vk/forcinggate/internal/ctxlog"
	"github.com/vk/forcinggate/internal/gate"
	"github.com/vk/forcinggate/internal/ledger"
	"github.com/vk/forcinggate/internal/loader"
	"github.com/vk/forcinggate/internal/locator"
	"github.com/vk/forcinggate/internal/mirror"
	"github.com/vk/forcinggate/internal/stager"
	"github.com/vk/forcinggate/internal/tags"
	"github.com/vk/forcinggate/internal/transform"
)

// Builder runs the pipeline described by a config.Model.
type Builder struct {
	model    *config.Model
	registry *loader.Registry
	stager   *stager.Stager
	reporter Reporter
	client   *http.Client
	now      func() time.Time

	datasets []*dataset
	static   *loader.StaticCache
	// mirrorDir is the private download cache of remote datasets without
	// a configured cache. Run removes it.
	mirrorDir string
}

// Option configures a Builder.
type Option func(*Builder)

// WithRegistry replaces the default loader driver registry.
func WithRegistry(r *loader.Registry) Option {
	return func(b *Builder) { b.registry = r }
}

// WithStager replaces the stager built from the model's staging options.
func WithStager(s *stager.Stager) Option {
	return func(b *Builder) { b.stager = s }
}

// WithReporter installs a progress reporter.
func WithReporter(r Reporter) Option {
	return func(b *Builder) { b.reporter = r }
}

// WithHTTPClient sets the client used by remote mirrors.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Builder) { b.client = c }
}

// WithClock overrides the wall clock used for the default reference time
// and container timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// New prepares a Builder: transforms are compiled and one locator is
// created per dataset.
func New(model *config.Model, opts ...Option) (*Builder, error) {
	b := &Builder{
		model:    model,
		registry: loader.NewRegistry(),
		reporter: nopReporter{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.stager == nil {
		b.stager = stager.New(stager.Options{
			TempRoot:       model.Staging.TempRoot,
			Timeout:        model.Staging.Timeout,
			InitialBackoff: model.Staging.InitialBackoff,
			MaxBackoff:     model.Staging.MaxBackoff,
		})
	}
	if s := model.Static; s != nil {
		b.static = loader.NewStaticCache(s.Path, loader.StaticNames{
			Terrain:   s.Terrain,
			Longitude: s.Longitude,
			Latitude:  s.Latitude,
		})
	}

	var errs []error
	for _, d := range model.Datasets {
		ds, err := b.prepare(d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		b.datasets = append(b.datasets, ds)
	}
	if err := errors.Join(errs...); err != nil {
		b.removeMirrorDir()
		return nil, err
	}
	return b, nil
}

// dataset is a config.Dataset with its compiled transforms and locator.
type dataset struct {
	*config.Dataset
	transforms []*transform.Expr
	locator    *locator.Locator
	driver     loader.Driver
}

func (b *Builder) prepare(d *config.Dataset) (*dataset, error) {
	driver, err := b.registry.Driver(d.Format)
	if err != nil {
		return nil, fmt.Errorf("dataset %q: %w", d.Name, err)
	}
	ds := &dataset{Dataset: d, driver: driver}
	for _, v := range d.Variables {
		expr, err := transform.Compile(v.Transform)
		if err != nil {
			return nil, fmt.Errorf("dataset %q variable %q: %w", d.Name, v.ID, err)
		}
		ds.transforms = append(ds.transforms, expr)
	}

	var opts []locator.Option
	if d.Remote != nil {
		cache := d.Remote.Cache
		if cache == "" {
			if cache, err = b.privateMirrorDir(); err != nil {
				return nil, fmt.Errorf("dataset %q: %w", d.Name, err)
			}
		}
		opts = append(opts, locator.WithPrefetcher(mirror.New(d.Remote.URL, b.runTags(d), cache, b.client)))
	}
	ds.locator = locator.New(opts...)
	return ds, nil
}

// privateMirrorDir creates, once, a download cache below the staging temp
// root. Remote files never land in the source tree.
func (b *Builder) privateMirrorDir() (string, error) {
	if b.mirrorDir != "" {
		return b.mirrorDir, nil
	}
	root := b.model.Staging.TempRoot
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return "", fmt.Errorf("create mirror cache root: %w", err)
		}
	}
	dir, err := os.MkdirTemp(root, "forcinggate-mirror-")
	if err != nil {
		return "", fmt.Errorf("create mirror cache: %w", err)
	}
	b.mirrorDir = dir
	return dir, nil
}

func (b *Builder) removeMirrorDir() {
	if b.mirrorDir != "" {
		os.RemoveAll(b.mirrorDir)
	}
}

// runTags returns the tokens that do not depend on time.
func (b *Builder) runTags(d *config.Dataset) tags.Map {
	r := b.model.Run
	m := tags.Map{
		"$RUN":     r.Name,
		"$DOMAIN":  r.Domain,
		"$MODE":    r.Mode,
		"$ENS":     fmt.Sprintf("%03d", r.Ensemble),
		"$DATASET": d.Name,
	}
	if len(d.Variables) == 1 {
		m["$VAR"] = d.Variables[0].Source
	}
	return m
}

// Summary is the outcome of a run.
type Summary struct {
	Reference time.Time
	Table     *ledger.Table
	Span      ledger.Span
	Gridded   float64
	Point     float64
	Decision  gate.Decision
	Slots     []SlotReport
}

// SlotReport records what happened to one (step, dataset) pair.
type SlotReport struct {
	Step     time.Time
	Dataset  string
	Category ledger.Category
	State    ledger.State
	History  []ledger.State
	// Source is the located file, Destination the file written.
	Source      string
	Destination string
	Err         error
}

// StageError is returned when a hard error aborts a stage.
type StageError struct {
	Stage   ledger.Stage
	Step    time.Time
	Dataset string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage aborted at %s (dataset %q): %v", e.Stage, e.Step.Format(config.TimeLayout), e.Dataset, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Reference returns the effective reference time of the run.
func (b *Builder) Reference() time.Time {
	r := b.model.Run
	if !r.Reference.IsZero() {
		return r.Reference.UTC()
	}
	return b.now().UTC().Truncate(r.Resolution)
}

// Run executes the restart, forcing and updating stages and evaluates the
// gate. On a hard error it returns the partial summary and a *StageError.
// A Builder runs once: the private mirror cache is removed on return.
func (b *Builder) Run(ctx context.Context) (*Summary, error) {
	logger := ctxlog.FromContext(ctx)
	defer b.removeMirrorDir()

	window := b.model.Run.Window()
	window.Reference = b.Reference()
	table, err := ledger.NewTable(window)
	if err != nil {
		return nil, fmt.Errorf("build time summary: %w", err)
	}
	sum := &Summary{Reference: window.Reference, Table: table}
	logger.Info("🚀 Forcing pipeline started.",
		"reference", window.Reference.Format(config.TimeLayout),
		"steps", table.Len(),
		"datasets", len(b.datasets),
	)

	var static *loader.Static
	if b.static != nil {
		static, err = b.static.Get(ctx)
		if err != nil {
			return sum, fmt.Errorf("load static data: %w", err)
		}
	}

	for _, stage := range ledger.Stages {
		if err := b.runStage(ctx, stage, static, sum); err != nil {
			return sum, err
		}
	}

	sum.Span = table.Reindex()
	sum.Gridded = table.Percent(ledger.ForcingGridded, sum.Span)
	sum.Point = table.Percent(ledger.ForcingPoint, sum.Span)
	sum.Decision = gate.Evaluate(sum.Gridded, sum.Point, gate.Thresholds{
		Gridded: b.model.Thresholds.Gridded,
		Point:   b.model.Thresholds.Point,
	})

	logger.Info("🏁 Forcing pipeline finished.",
		"span_length", sum.Span.Length,
		"simulated", sum.Span.Simulated,
		"gridded_pct", strconv.FormatFloat(sum.Gridded, 'f', 1, 64),
		"point_pct", strconv.FormatFloat(sum.Point, 'f', 1, 64),
		"decision", sum.Decision.Outcome,
	)
	return sum, nil
}
