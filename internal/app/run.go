package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/forcinggate/internal/builder"
	"github.com/vk/forcinggate/internal/ctxlog"
	"github.com/vk/forcinggate/internal/gate"
	"github.com/vk/forcinggate/internal/snapshot"
)

// Run executes the forcing pipeline and the run gate. It returns an error
// wrapping gate.ErrBlocked when the simulation must not start.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	var opts []builder.Option
	if a.config.Progress {
		progress := newProgressReporter(a.outW)
		progress.Start()
		defer progress.Stop()
		opts = append(opts, builder.WithReporter(progress))
	}

	b, err := builder.New(a.model, opts...)
	if err != nil {
		return fmt.Errorf("failed to prepare pipeline: %w", err)
	}

	sum, runErr := b.Run(ctx)
	if sum != nil && sum.Table != nil {
		if err := a.writeSnapshot(ctx, sum); err != nil {
			a.logger.Warn("Time summary snapshot failed.", "error", err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}

	d := sum.Decision
	switch d.Outcome {
	case gate.Block:
		a.logger.Error("⛔ Run blocked.",
			"gridded_pct", d.Gridded,
			"point_pct", d.Point,
			"threshold", d.Threshold,
		)
	case gate.RunWithWarning:
		a.logger.Warn("Run allowed with warning.", "warning", d.Warning)
	default:
		a.logger.Info("✅ Run allowed.", "gridded_pct", d.Gridded, "point_pct", d.Point, "threshold", d.Threshold)
	}

	a.logger.Debug("App.Run method finished.")
	return d.Err()
}

func (a *App) writeSnapshot(ctx context.Context, sum *builder.Summary) error {
	cfg := a.model.Snapshot
	if cfg == nil {
		return nil
	}
	rows := snapshot.Rows(sum.Table)

	var errs []error
	if cfg.CSV != "" {
		if err := snapshot.WriteCSV(cfg.CSV, rows); err != nil {
			errs = append(errs, err)
		} else {
			a.logger.Info("Time summary written.", "path", cfg.CSV, "rows", len(rows))
		}
	}
	if cfg.MySQL != nil {
		if err := a.storeSnapshot(ctx, rows); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) storeSnapshot(ctx context.Context, rows []snapshot.Row) error {
	cfg := a.model.Snapshot.MySQL
	db, err := snapshot.OpenMySQL(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sink, err := snapshot.NewMySQLSink(db, cfg.Table)
	if err != nil {
		return err
	}
	return sink.Write(ctx, a.model.Run.Name, rows)
}
