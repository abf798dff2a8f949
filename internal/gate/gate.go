// Package gate decides whether the simulation may run, given the
// availability percentages derived from the time summary.
package gate

import (
	"errors"
	"fmt"
)

// ErrBlocked is returned by Decision.Err when the run must not start.
var ErrBlocked = errors.New("run blocked")

// Thresholds are the minimum availability percentages.
type Thresholds struct {
	Gridded float64
	// Point defaults to Gridded when nil. Zero disables the point warning.
	Point *float64
}

func (t Thresholds) point() float64 {
	if t.Point == nil {
		return t.Gridded
	}
	return *t.Point
}

// Outcome is the gate verdict.
type Outcome int

const (
	Run Outcome = iota
	RunWithWarning
	Block
)

func (o Outcome) String() string {
	switch o {
	case Run:
		return "run"
	case RunWithWarning:
		return "run with warning"
	case Block:
		return "block"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Decision is the only output handed to the execution stage.
type Decision struct {
	Outcome Outcome
	Gridded float64
	Point   float64
	// Threshold is the gridded threshold, PointThreshold the point one.
	Threshold      float64
	PointThreshold float64
	Warning        string
}

// Allowed reports whether the model may run.
func (d Decision) Allowed() bool { return d.Outcome != Block }

// Err returns nil when the run is allowed, otherwise ErrBlocked wrapped
// with both percentages and the threshold.
func (d Decision) Err() error {
	if d.Allowed() {
		return nil
	}
	return fmt.Errorf("%w: gridded forcing %.1f%% below threshold %.1f%% (point %.1f%%)", ErrBlocked, d.Gridded, d.Threshold, d.Point)
}

// Evaluate applies the gate rules. Gridded data is mandatory; point data
// below its threshold only produces a warning.
func Evaluate(gridded, point float64, th Thresholds) Decision {
	d := Decision{
		Gridded:        gridded,
		Point:          point,
		Threshold:      th.Gridded,
		PointThreshold: th.point(),
	}
	switch {
	case gridded < th.Gridded:
		d.Outcome = Block
	case point < th.point():
		d.Outcome = RunWithWarning
		d.Warning = fmt.Sprintf("point forcing %.1f%% below threshold %.1f%%", point, th.point())
	default:
		d.Outcome = Run
	}
	return d
}
