package builder

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/vk/forcinggate/internal/config"
	"github.com/vk/forcinggate/internal/ctxlog"
	"github.com/vk/forcinggate/internal/ledger"
	"github.com/vk/forcinggate/internal/loader"
)

// applies reports whether ds is scheduled at step i of the table.
func applies(ds *dataset, t *ledger.Table, i int) bool {
	if ds.Category.Stage() == ledger.StageRestart {
		return i == 0
	}
	switch ds.Class {
	case config.ClassObs:
		return t.DataType(i) == ledger.Obs
	case config.ClassFor:
		dt := t.DataType(i)
		return dt == ledger.For || dt == ledger.Corr
	default:
		return true
	}
}

// arrivalReference is the time arrival candidates are computed from.
func arrivalReference(ds *dataset, step, reference time.Time) time.Time {
	if ds.Class == config.ClassFor {
		return reference
	}
	return step
}

func (b *Builder) runStage(ctx context.Context, stage ledger.Stage, static *loader.Static, sum *Summary) error {
	logger := ctxlog.FromContext(ctx).With("stage", stage.String())
	ctx = ctxlog.WithLogger(ctx, logger)

	var members []*dataset
	for _, ds := range b.datasets {
		if ds.Category.Stage() == stage {
			members = append(members, ds)
		}
	}

	steps := sum.Table.Steps()
	if stage == ledger.StageRestart && len(steps) > 0 {
		steps = steps[:1]
	}
	if len(members) == 0 {
		logger.Debug("No datasets in stage.")
		b.reporter.StageStarted(stage, 0)
		b.reporter.StageFinished(stage)
		return nil
	}

	logger.Info("Stage started.", "datasets", len(members), "steps", len(steps))
	b.reporter.StageStarted(stage, len(steps))
	defer b.reporter.StageFinished(stage)

	ws := loader.NewWorkspace()
	if static != nil {
		ws.SetStatic(static)
	}

	for i, step := range steps {
		// A category is available at a step only when every dataset
		// scheduled for it committed.
		scheduled := make(map[ledger.Category]bool)
		first := len(sum.Slots)
		for _, ds := range members {
			if !applies(ds, sum.Table, i) {
				continue
			}
			report, err := b.processSlot(ctx, ds, step, sum.Reference, ws)
			sum.Slots = append(sum.Slots, report)
			if err != nil {
				discardStep(ctx, sum.Slots[first:])
				return &StageError{Stage: stage, Step: step, Dataset: ds.Name, Err: err}
			}

			ok := report.State == ledger.Committed
			if prev, seen := scheduled[ds.Category]; seen {
				ok = ok && prev
			}
			scheduled[ds.Category] = ok
		}

		for _, c := range ledger.Categories {
			ok, seen := scheduled[c]
			if !seen {
				continue
			}
			if err := sum.Table.Put(step, c, ok); err != nil {
				discardStep(ctx, sum.Slots[first:])
				return &StageError{Stage: stage, Step: step, Err: err}
			}
		}
		b.reporter.StepDone(stage)
	}

	logger.Info("✅ Stage finished.")
	return nil
}

// discardStep removes the destinations already written for a step that is
// being aborted, so nothing of it reaches the model. The reports keep their
// state but lose the destination.
func discardStep(ctx context.Context, reports []SlotReport) {
	logger := ctxlog.FromContext(ctx)
	for i := range reports {
		dst := reports[i].Destination
		if dst == "" {
			continue
		}
		if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Failed to remove destination of aborted step.", "path", dst, "error", err)
			continue
		}
		logger.Debug("Destination of aborted step removed.", "path", dst)
		reports[i].Destination = ""
	}
}
