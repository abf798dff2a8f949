// Package failure defines the error taxonomy shared by the staging pipeline
// and the rules that turn an error into a pipeline reaction.
//
// Components return errors wrapping one of the sentinels below. The builder
// never inspects error strings; it calls Classify and reacts to the
// resulting Severity:
//
//   - Skip: the slot stays false and nothing is logged above debug.
//   - Warn: the slot stays false, a warning is logged, the run continues.
//   - Hard: the current stage aborts and nothing is committed for the slot.
package failure

import (
	"errors"
	"fmt"
)

var (
	// ErrFileNotFound is returned when no arrival candidate resolves to an
	// existing source file.
	ErrFileNotFound = errors.New("file not found")

	// ErrStagingTimeout is returned when a source could not be copied and
	// opened before the staging deadline. It is handled like ErrFileNotFound.
	ErrStagingTimeout = errors.New("staging timed out")

	// ErrVariableMissing is returned when an opened file lacks the requested
	// variable.
	ErrVariableMissing = errors.New("variable missing")

	// ErrIndexUnavailable is returned when the requested time cannot be
	// mapped onto a slice of the file. See IndexError for the reason.
	ErrIndexUnavailable = errors.New("time index unavailable")

	// ErrLoad is returned for any failure while materialising an array.
	ErrLoad = errors.New("load failed")
)

// IndexKind tells why a time index could not be resolved.
type IndexKind int

const (
	// NotYetProduced means the requested time lies before the first slice
	// the producer has written.
	NotYetProduced IndexKind = iota
	// ResolutionMismatch means the file has a time coordinate but none of
	// its values match the requested time.
	ResolutionMismatch
)

func (k IndexKind) String() string {
	switch k {
	case NotYetProduced:
		return "not yet produced"
	case ResolutionMismatch:
		return "resolution mismatch"
	default:
		return fmt.Sprintf("IndexKind(%d)", int(k))
	}
}

// IndexError carries the detail of an ErrIndexUnavailable failure.
type IndexError struct {
	Kind     IndexKind
	Variable string
	Detail   string
}

func (e *IndexError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("variable %q: %s: %s", e.Variable, ErrIndexUnavailable, e.Kind)
	}
	return fmt.Sprintf("variable %q: %s: %s (%s)", e.Variable, ErrIndexUnavailable, e.Kind, e.Detail)
}

// Unwrap lets errors.Is match ErrIndexUnavailable.
func (e *IndexError) Unwrap() error { return ErrIndexUnavailable }

// Loadf wraps a formatted message with ErrLoad.
func Loadf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrLoad, fmt.Sprintf(format, args...))
}

// Severity is the pipeline reaction to an error.
type Severity int

const (
	Skip Severity = iota
	Warn
	Hard
)

func (s Severity) String() string {
	switch s {
	case Skip:
		return "skip"
	case Warn:
		return "warn"
	case Hard:
		return "hard"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Classify maps an error to a Severity. mandatory marks sources whose
// absence must stop the stage.
func Classify(err error, mandatory bool) Severity {
	var idxErr *IndexError
	switch {
	case err == nil:
		return Skip
	case errors.Is(err, ErrLoad):
		return Hard
	case errors.Is(err, ErrFileNotFound), errors.Is(err, ErrStagingTimeout):
		if mandatory {
			return Hard
		}
		return Warn
	case errors.As(err, &idxErr):
		if idxErr.Kind == NotYetProduced {
			return Skip
		}
		return Warn
	case errors.Is(err, ErrIndexUnavailable), errors.Is(err, ErrVariableMissing):
		return Warn
	default:
		return Hard
	}
}
