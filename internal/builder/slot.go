package builder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/forcinggate/internal/config"
	"github.com/vk/forcinggate/internal/ctxlog"
	"github.com/vk/forcinggate/internal/failure"
	"github.com/vk/forcinggate/internal/ledger"
	"github.com/vk/forcinggate/internal/loader"
	"github.com/vk/forcinggate/internal/merge"
	"github.com/vk/forcinggate/internal/tags"
)

// slotRun carries the state of one (step, dataset) pair.
type slotRun struct {
	ds     *dataset
	step   time.Time
	slot   ledger.Slot
	report SlotReport
}

func (r *slotRun) advance(next ledger.State) error {
	if err := r.slot.Advance(next); err != nil {
		return fmt.Errorf("dataset %q: %w", r.ds.Name, err)
	}
	return nil
}

// fail records err on the slot. Skip and Warn move the slot to failed and
// then Skipped and return nil; Hard leaves the slot where it is and returns
// err, so failed is irrelevant for errors that can only be hard.
func (r *slotRun) fail(ctx context.Context, failed ledger.State, err error) error {
	logger := ctxlog.FromContext(ctx)
	r.report.Err = err

	switch failure.Classify(err, r.ds.Mandatory) {
	case failure.Hard:
		logger.Error("⛔ Hard error, aborting stage.", "error", err)
		return err
	case failure.Warn:
		logger.Warn("Slot left empty.", "state", failed, "error", err)
	default:
		logger.Debug("Slot skipped.", "state", failed, "error", err)
	}

	if advErr := r.advance(failed); advErr != nil {
		return advErr
	}
	return r.advance(ledger.Skipped)
}

func (r *slotRun) finish() SlotReport {
	r.report.State = r.slot.State()
	r.report.History = r.slot.History()
	return r.report
}

// processSlot runs one dataset for one step. The returned error is set only
// for hard failures.
func (b *Builder) processSlot(ctx context.Context, ds *dataset, step, reference time.Time, ws *loader.Workspace) (SlotReport, error) {
	ctx = ctxlog.With(ctx, "dataset", ds.Name, "step", step.Format(config.TimeLayout))
	logger := ctxlog.FromContext(ctx)

	r := &slotRun{
		ds:     ds,
		step:   step,
		report: SlotReport{Step: step, Dataset: ds.Name, Category: ds.Category},
	}
	err := b.resolve(ctx, r, reference, ws)
	rep := r.finish()
	if err == nil && rep.State == ledger.Committed {
		logger.Debug("Slot committed.", "destination", rep.Destination)
	}
	return rep, err
}

func (b *Builder) resolve(ctx context.Context, r *slotRun, reference time.Time, ws *loader.Workspace) error {
	ds := r.ds
	base := b.runTags(ds.Dataset).With(tags.StepTime(r.step))

	if err := r.advance(ledger.Searching); err != nil {
		return err
	}
	candidates := ds.Arrival.MostRecentFirst(arrivalReference(ds, r.step, reference))
	found, err := ds.locator.Locate(ctx, ds.Source, base, candidates)
	if err != nil {
		return r.fail(ctx, ledger.NotFound, err)
	}
	r.report.Source = found.Path
	if found.Fallback {
		ctxlog.FromContext(ctx).Info("Using older arrival.", "arrival", found.Candidate.Format(config.TimeLayout), "path", found.Path)
	}

	var handle loader.Handle
	_, err = b.stager.Stage(ctx, found.Path, func(ctx context.Context, path string) error {
		h, err := ds.driver.Open(ctx, path)
		if err != nil {
			return err
		}
		handle = h
		return nil
	})
	if err != nil {
		state := ledger.OpenTimeout
		if errors.Is(err, failure.ErrFileNotFound) {
			state = ledger.NotFound
		}
		return r.fail(ctx, state, err)
	}
	defer handle.Close()
	if err := r.advance(ledger.Staged); err != nil {
		return err
	}

	ids, recs, err := b.loadVariables(ctx, r, handle, found.Path, found.Candidate, ws)
	if err != nil {
		state := ledger.VarMissing
		if errors.Is(err, failure.ErrIndexUnavailable) {
			state = ledger.IndexUnavailable
		}
		return r.fail(ctx, state, err)
	}
	if err := r.advance(ledger.Loaded); err != nil {
		return err
	}

	dst, err := tags.Render(ds.Destination, base.With(tags.Time(r.step)))
	if err != nil {
		return r.fail(ctx, ledger.Committed, failure.Loadf("render destination: %v", err))
	}

	written, err := b.write(ctx, r, found.Path, dst, ids, recs, ws)
	if err != nil {
		return r.fail(ctx, ledger.Committed, err)
	}
	r.report.Destination = written
	return r.advance(ledger.Committed)
}

// loadVariables reads every declared variable in order. Records are kept in
// the workspace under the dataset name until the destination is written.
func (b *Builder) loadVariables(ctx context.Context, r *slotRun, h loader.Handle, src string, arrivalTime time.Time, ws *loader.Workspace) ([]string, []*loader.Record, error) {
	ds := r.ds
	ws.Drop(ds.Name)
	for i, v := range ds.Variables {
		rec, err := h.ReadVariable(ctx, loader.Request{
			Variable:     v.Source,
			Source:       src,
			Time:         r.step,
			Arrival:      arrivalTime,
			TimeVariable: ds.Time.Variable,
			Resolution:   ds.Time.Resolution,
			StepCount:    ds.Time.Steps,
			Grid:         v.Grid,
		})
		if err != nil {
			ws.Drop(ds.Name)
			return nil, nil, fmt.Errorf("variable %q: %w", v.ID, err)
		}
		if err := ds.transforms[i].Apply(rec, v.ID); err != nil {
			ws.Drop(ds.Name)
			return nil, nil, fmt.Errorf("variable %q: %w", v.ID, err)
		}
		if err := ws.Put(ds.Name, v.ID, rec); err != nil {
			ws.Drop(ds.Name)
			return nil, nil, failure.Loadf("variable %q: %v", v.ID, err)
		}
	}
	ids, recs := ws.Records(ds.Name)
	return ids, recs, nil
}

// write produces the destination file according to the merge decision.
func (b *Builder) write(ctx context.Context, r *slotRun, src, dst string, ids []string, recs []*loader.Record, ws *loader.Workspace) (string, error) {
	logger := ctxlog.FromContext(ctx)
	ds := r.ds
	defer ws.Drop(ds.Name)

	mode := merge.Decide(ds.Operations)
	logger.Debug("Merge decision.", "mode", mode, "destination", dst)

	switch mode {
	case merge.Passthrough:
		written, err := merge.CopySource(src, dst)
		if err != nil {
			return "", failure.Loadf("%v", err)
		}
		return written, nil
	default:
		run := b.model.Run
		written, err := merge.WriteContainer(dst, ids, recs, ws.Static(), merge.Metadata{
			Title:      ds.Name,
			RunName:    run.Name,
			Domain:     run.Domain,
			Mode:       run.Mode,
			Ensemble:   run.Ensemble,
			Step:       r.step,
			Resolution: run.Resolution,
			Created:    b.now().UTC(),
		})
		if err != nil {
			return "", failure.Loadf("%v", err)
		}
		return written, nil
	}
}
