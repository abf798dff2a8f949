package ledger

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrUnknownStep is returned when a step is not part of the table.
var ErrUnknownStep = errors.New("step not in time summary")

// Table is the time summary ledger of one run.
type Table struct {
	steps []time.Time
	index map[int64]int

	dataType  []DataType
	dataCheck []bool
	dataExtra []bool
	slots     [numCategories][]bool
}

// NewTable creates a table for window. Steps up to the reference time are
// Obs, later steps For, and the corrivation tail Corr with DataExtra set.
func NewTable(w Window) (*Table, error) {
	steps, err := w.Steps()
	if err != nil {
		return nil, err
	}
	t, err := newTable(steps)
	if err != nil {
		return nil, err
	}

	corrFrom := w.ObsSteps + w.ForSteps
	for i, s := range steps {
		switch {
		case i >= corrFrom:
			t.dataType[i] = Corr
			t.dataExtra[i] = true
		case s.After(w.Reference):
			t.dataType[i] = For
		default:
			t.dataType[i] = Obs
		}
	}
	return t, nil
}

// newTable creates an all-false table over steps, which must be strictly
// ascending.
func newTable(steps []time.Time) (*Table, error) {
	if len(steps) == 0 {
		return nil, errors.New("time summary needs at least one step")
	}
	t := &Table{
		steps:     slices.Clone(steps),
		index:     make(map[int64]int, len(steps)),
		dataType:  make([]DataType, len(steps)),
		dataCheck: make([]bool, len(steps)),
		dataExtra: make([]bool, len(steps)),
	}
	for i, s := range steps {
		if i > 0 && !s.After(steps[i-1]) {
			return nil, fmt.Errorf("steps must be strictly ascending (index %d)", i)
		}
		t.index[s.UnixNano()] = i
	}
	for c := range t.slots {
		t.slots[c] = make([]bool, len(steps))
	}
	return t, nil
}

// Len returns the number of steps.
func (t *Table) Len() int { return len(t.steps) }

// Steps returns a copy of the step list.
func (t *Table) Steps() []time.Time { return slices.Clone(t.steps) }

// Index returns the position of step.
func (t *Table) Index(step time.Time) (int, error) {
	i, ok := t.index[step.UnixNano()]
	if !ok {
		return -1, fmt.Errorf("%w: %s", ErrUnknownStep, step.UTC().Format("200601021504"))
	}
	return i, nil
}

// Put records the availability of category at step, overwriting exactly
// that slot.
func (t *Table) Put(step time.Time, c Category, ok bool) error {
	if c < 0 || c >= numCategories {
		return fmt.Errorf("unknown category %d", int(c))
	}
	i, err := t.Index(step)
	if err != nil {
		return err
	}
	t.slots[c][i] = ok
	return nil
}

// Get returns the availability of category at step.
func (t *Table) Get(step time.Time, c Category) (bool, error) {
	i, err := t.Index(step)
	if err != nil {
		return false, err
	}
	return t.slots[c][i], nil
}

// Slots returns a copy of a category column.
func (t *Table) Slots(c Category) []bool { return slices.Clone(t.slots[c]) }

// DataType returns the classification of step i.
func (t *Table) DataType(i int) DataType { return t.dataType[i] }

// DataCheck returns whether step i is a simulated step with gridded data.
func (t *Table) DataCheck(i int) bool { return t.dataCheck[i] }

// DataExtra returns whether step i belongs to the trailing extra segment.
func (t *Table) DataExtra(i int) bool { return t.dataExtra[i] }

// Span is the simulation range derived from gridded forcing.
type Span struct {
	// First and Last are step indexes, both -1 when no gridded forcing
	// was found.
	First, Last int
	// Length is the number of steps from First to Last inclusive.
	Length int
	// Simulated is the number of true gridded slots inside the span.
	Simulated int
	// Extra is the number of steps after Last.
	Extra int
}

// Empty reports whether no step carried gridded forcing.
func (s Span) Empty() bool { return s.Length == 0 }

// Reindex derives the simulation span from the gridded forcing column and
// relabels the table: steps inside the span get DataCheck from the gridded
// slot, steps after the span become Corr with DataExtra set.
func (t *Table) Reindex() Span {
	grid := t.slots[ForcingGridded]
	first := slices.Index(grid, true)
	if first < 0 {
		for i := range t.dataCheck {
			t.dataCheck[i] = false
		}
		return Span{First: -1, Last: -1}
	}
	last := len(grid) - 1 - slices.Index(reversed(grid), true)

	span := Span{First: first, Last: last, Length: last - first + 1, Extra: len(grid) - 1 - last}
	for i := range grid {
		inSpan := i >= first && i <= last
		t.dataCheck[i] = inSpan && grid[i]
		if inSpan && grid[i] {
			span.Simulated++
		}
		if i > last {
			t.dataType[i] = Corr
			t.dataExtra[i] = true
		}
	}
	return span
}

// Percent returns the share of true slots of category inside span, in
// percent. An empty span yields 0.
func (t *Table) Percent(c Category, span Span) float64 {
	if span.Empty() {
		return 0
	}
	n := 0
	for _, ok := range t.slots[c][span.First : span.Last+1] {
		if ok {
			n++
		}
	}
	return float64(n*100) / float64(span.Length)
}

func reversed(in []bool) []bool {
	out := slices.Clone(in)
	slices.Reverse(out)
	return out
}
