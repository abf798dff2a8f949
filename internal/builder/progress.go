package builder

import "github.com/vk/forcinggate/internal/ledger"

// Reporter receives progress ticks. Implementations must tolerate stages
// that report zero steps.
type Reporter interface {
	StageStarted(stage ledger.Stage, steps int)
	StepDone(stage ledger.Stage)
	StageFinished(stage ledger.Stage)
}

type nopReporter struct{}

func (nopReporter) StageStarted(ledger.Stage, int) {}
func (nopReporter) StepDone(ledger.Stage)          {}
func (nopReporter) StageFinished(ledger.Stage)     {}
