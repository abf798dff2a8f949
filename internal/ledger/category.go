package ledger

import (
	"fmt"
	"strings"
)

// Category is a kind of input tracked per step.
type Category int

const (
	ForcingGridded Category = iota
	ForcingPoint
	ForcingTimeSeries
	UpdatingGridded
	UpdatingPoint
	RestartGridded
	RestartPoint

	numCategories
)

// Categories lists every category in table column order.
var Categories = []Category{
	ForcingGridded, ForcingPoint, ForcingTimeSeries,
	UpdatingGridded, UpdatingPoint,
	RestartGridded, RestartPoint,
}

var categoryNames = [numCategories]string{
	ForcingGridded:    "forcing_gridded",
	ForcingPoint:      "forcing_point",
	ForcingTimeSeries: "forcing_time_series",
	UpdatingGridded:   "updating_gridded",
	UpdatingPoint:     "updating_point",
	RestartGridded:    "restart_gridded",
	RestartPoint:      "restart_point",
}

func (c Category) String() string {
	if c < 0 || c >= numCategories {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// ParseCategory maps a configuration string such as "forcing_gridded" to a
// Category.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range categoryNames {
		if name == s {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

// Stage groups categories by the builder stage that fills them.
type Stage int

const (
	StageRestart Stage = iota
	StageForcing
	StageUpdating
)

// Stages lists the builder stages in execution order.
var Stages = []Stage{StageRestart, StageForcing, StageUpdating}

func (s Stage) String() string {
	switch s {
	case StageRestart:
		return "restart"
	case StageForcing:
		return "forcing"
	case StageUpdating:
		return "updating"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Stage returns the stage that fills c.
func (c Category) Stage() Stage {
	switch c {
	case RestartGridded, RestartPoint:
		return StageRestart
	case UpdatingGridded, UpdatingPoint:
		return StageUpdating
	default:
		return StageForcing
	}
}

// DataType classifies a step.
type DataType int

const (
	Unset DataType = iota
	Obs
	For
	Corr
)

func (d DataType) String() string {
	switch d {
	case Unset:
		return "unset"
	case Obs:
		return "obs"
	case For:
		return "for"
	case Corr:
		return "corr"
	default:
		return fmt.Sprintf("DataType(%d)", int(d))
	}
}
