package app

import (
	"io"

	"github.com/gosuri/uiprogress"
	"github.com/vk/forcinggate/internal/ledger"
)

// progressReporter draws one bar per stage.
type progressReporter struct {
	p    *uiprogress.Progress
	bars map[ledger.Stage]*uiprogress.Bar
}

func newProgressReporter(w io.Writer) *progressReporter {
	p := uiprogress.New()
	p.SetOut(w)
	return &progressReporter{p: p, bars: make(map[ledger.Stage]*uiprogress.Bar)}
}

func (r *progressReporter) Start() { r.p.Start() }
func (r *progressReporter) Stop()  { r.p.Stop() }

func (r *progressReporter) StageStarted(stage ledger.Stage, steps int) {
	if steps == 0 {
		return
	}
	bar := r.p.AddBar(steps).AppendCompleted().PrependElapsed()
	name := stage.String()
	bar.PrependFunc(func(b *uiprogress.Bar) string {
		return name
	})
	r.bars[stage] = bar
}

func (r *progressReporter) StepDone(stage ledger.Stage) {
	if bar, ok := r.bars[stage]; ok {
		bar.Incr()
	}
}

func (r *progressReporter) StageFinished(ledger.Stage) {}
