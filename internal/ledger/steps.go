package ledger

import (
	"errors"
	"time"
)

// Window describes the simulation window around the run reference time.
type Window struct {
	// Reference is the last observed step.
	Reference  time.Time
	Resolution time.Duration
	// ObsSteps counts the steps up to and including Reference.
	ObsSteps int
	// ForSteps counts the forecast steps after Reference.
	ForSteps int
	// CorrivationHours extends the window past the forecast horizon.
	CorrivationHours int
}

// CorrSteps returns the number of steps added by the corrivation buffer,
// rounded up.
func (w Window) CorrSteps() int {
	if w.CorrivationHours <= 0 || w.Resolution <= 0 {
		return 0
	}
	buf := time.Duration(w.CorrivationHours) * time.Hour
	return int((buf + w.Resolution - 1) / w.Resolution)
}

// Steps returns every step of the window, ascending.
func (w Window) Steps() ([]time.Time, error) {
	if w.Resolution <= 0 {
		return nil, errors.New("time resolution must be positive")
	}
	if w.ObsSteps < 1 {
		return nil, errors.New("at least one observed step is required")
	}
	if w.ForSteps < 0 {
		return nil, errors.New("forecast steps must not be negative")
	}

	total := w.ObsSteps + w.ForSteps + w.CorrSteps()
	start := w.Reference.Add(-time.Duration(w.ObsSteps-1) * w.Resolution)
	steps := make([]time.Time, total)
	for i := range steps {
		steps[i] = start.Add(time.Duration(i) * w.Resolution)
	}
	return steps, nil
}
