package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/vk/forcinggate/internal/arrival"
	"github.com/vk/forcinggate/internal/ledger"
	"github.com/vk/forcinggate/internal/loader"
)

// TimeLayout is the layout of every timestamp in configuration and tags.
const TimeLayout = "200601021504"

// Model is the unified, format-agnostic representation of a run.
type Model struct {
	Run        Run
	Thresholds Thresholds
	Staging    Staging
	Static     *Static
	Datasets   []*Dataset
	Snapshot   *Snapshot
}

// Run describes the simulation window and its identity.
type Run struct {
	Name     string
	Domain   string
	Mode     string
	Ensemble int

	// Reference is the last observed step. Zero means "now", truncated to
	// the resolution.
	Reference  time.Time
	Resolution time.Duration

	ObsSteps         int
	ForSteps         int
	CorrivationHours int

	// Destination is the root every relative dataset destination is
	// joined to.
	Destination string
}

// Window returns the ledger window of the run.
func (r Run) Window() ledger.Window {
	return ledger.Window{
		Reference:        r.Reference,
		Resolution:       r.Resolution,
		ObsSteps:         r.ObsSteps,
		ForSteps:         r.ForSteps,
		CorrivationHours: r.CorrivationHours,
	}
}

// Thresholds are the availability percentages the gate compares against.
type Thresholds struct {
	Gridded float64
	// Point is nil when unset; the gate then reuses Gridded.
	Point *float64
}

// Staging tunes the stager.
type Staging struct {
	TempRoot       string
	Timeout        time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Static names the static dataset and its companion layers.
type Static struct {
	Path      string
	Terrain   string
	Longitude string
	Latitude  string
}

// Class is the provenance of a dataset.
type Class int

const (
	ClassObs Class = iota
	ClassFor
	ClassArchive
)

func (c Class) String() string {
	switch c {
	case ClassObs:
		return "obs"
	case ClassFor:
		return "for"
	case ClassArchive:
		return "archive"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// ParseClass maps "obs", "for" or "archive" to a Class.
func ParseClass(s string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "obs", "observed", "":
		return ClassObs, nil
	case "for", "forecast":
		return ClassFor, nil
	case "archive":
		return ClassArchive, nil
	default:
		return 0, fmt.Errorf("unknown dataset class %q: must be 'obs', 'for' or 'archive'", s)
	}
}

// Dataset is one external source feeding one ledger category.
type Dataset struct {
	Name     string
	Category ledger.Category
	Class    Class
	Format   loader.Kind

	// Source and Destination are filename templates.
	Source      string
	Destination string

	// Mandatory turns a missing source into a hard error.
	Mandatory  bool
	Operations []string

	Arrival   arrival.Window
	Time      TimeAxis
	Variables []*Variable
	Remote    *Remote
}

// TimeAxis describes the time slices of multi-step files.
type TimeAxis struct {
	Variable   string
	Resolution time.Duration
	Steps      int
}

// Variable is one variable of a dataset.
type Variable struct {
	// ID is the name in the destination.
	ID string
	// Source is the name in the source file.
	Source    string
	Transform string
	Grid      loader.Grid
}

// Remote is an HTTP directory mirrored before lookup.
type Remote struct {
	URL string
	// Cache is a persistent download directory. When empty the run uses a
	// private directory below the staging temp root, removed afterwards.
	Cache string
}

// Snapshot configures the debug export of the time summary.
type Snapshot struct {
	CSV   string
	MySQL *MySQL
}

// MySQL is the optional snapshot database.
type MySQL struct {
	Addr     string
	User     string
	Password string
	Database string
	Table    string
}
