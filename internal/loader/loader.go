package loader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ctessum/sparse"
)

// Kind is the on-disk format of a source file.
type Kind int

const (
	ASCII Kind = iota + 1
	Binary
	NetCDF
)

func (k Kind) String() string {
	switch k {
	case ASCII:
		return "ascii"
	case Binary:
		return "binary"
	case NetCDF:
		return "netcdf"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a configuration string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ascii", "csv", "txt":
		return ASCII, nil
	case "binary", "bin":
		return Binary, nil
	case "netcdf", "nc":
		return NetCDF, nil
	default:
		return 0, fmt.Errorf("unknown file format %q: must be 'ascii', 'binary' or 'netcdf'", s)
	}
}

// Grid describes the layout of a fixed binary file.
type Grid struct {
	Rows  int
	Cols  int
	Scale int
}

// Request selects what to read from an open Handle.
type Request struct {
	// Variable is the name inside the file.
	Variable string
	// Source is the original (unstaged) path, recorded for provenance.
	Source string
	// Time is the simulation step the data is wanted for.
	Time time.Time
	// Arrival is the production time of the file.
	Arrival time.Time

	// TimeVariable names the time coordinate. Empty means "time".
	TimeVariable string
	// Resolution is the spacing of the file's time slices, used when the
	// file has no time coordinate.
	Resolution time.Duration
	// StepCount is the declared number of slices. Zero means the length of
	// the time dimension.
	StepCount int

	Grid Grid
}

func (r Request) timeVariable() string {
	if r.TimeVariable == "" {
		return "time"
	}
	return r.TimeVariable
}

// Record is one loaded variable.
type Record struct {
	Data       *sparse.DenseArray
	SourceFile string
	SourceVar  string
	Time       time.Time
	Attrs      map[string]any
}

// Driver opens files of one Kind.
type Driver interface {
	Open(ctx context.Context, path string) (Handle, error)
}

// Handle is an open source file.
type Handle interface {
	// ReadVariable extracts the requested variable.
	ReadVariable(ctx context.Context, req Request) (*Record, error)
	// ReadTimeAxis decodes the named time coordinate. It returns nil and no
	// error when the file has no such coordinate.
	ReadTimeAxis(name string) ([]time.Time, error)
	Close() error
}
