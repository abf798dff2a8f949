package ledger

import "fmt"

// State is the progress of one (step, category) slot through the pipeline.
type State int

const (
	Unresolved State = iota
	Searching
	Staged
	Loaded
	Committed
	NotFound
	OpenTimeout
	VarMissing
	IndexUnavailable
	Skipped
)

var stateNames = map[State]string{
	Unresolved:       "unresolved",
	Searching:        "searching",
	Staged:           "staged",
	Loaded:           "loaded",
	Committed:        "committed",
	NotFound:         "not_found",
	OpenTimeout:      "open_timeout",
	VarMissing:       "var_missing",
	IndexUnavailable: "index_unavailable",
	Skipped:          "skipped",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == Committed || s == Skipped }

var transitions = map[State][]State{
	Unresolved:       {Searching},
	Searching:        {Staged, NotFound, OpenTimeout},
	Staged:           {Loaded, VarMissing, IndexUnavailable},
	Loaded:           {Committed},
	NotFound:         {Skipped},
	OpenTimeout:      {Skipped},
	VarMissing:       {Skipped},
	IndexUnavailable: {Skipped},
}

// Slot tracks the state of one (step, category) pair.
type Slot struct {
	state   State
	history []State
}

// State returns the current state.
func (s *Slot) State() State { return s.state }

// History returns every state the slot went through, starting with
// Unresolved.
func (s *Slot) History() []State {
	return append([]State{Unresolved}, s.history...)
}

// Advance moves the slot to next, rejecting illegal transitions.
func (s *Slot) Advance(next State) error {
	for _, allowed := range transitions[s.state] {
		if allowed == next {
			s.state = next
			s.history = append(s.history, next)
			return nil
		}
	}
	return fmt.Errorf("illegal slot transition %s -> %s", s.state, next)
}
