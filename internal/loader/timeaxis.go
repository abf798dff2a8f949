package loader

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// stampLayout is the fixed-width form timestamps are compared in.
const stampLayout = "200601021504"

func stamp(t time.Time) string { return t.UTC().Format(stampLayout) }

var referenceLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// decodeTimes converts raw coordinate values into times. With CF-style
// units ("hours since 2020-01-01 00:00:00") values are offsets; without
// units they are numeric yyyyMMddHHmm (or yyyyMMddHH) stamps.
func decodeTimes(values []float64, units string) ([]time.Time, error) {
	units = strings.TrimSpace(units)
	if units == "" {
		return decodeStamps(values)
	}

	unit, since, ok := strings.Cut(units, " since ")
	if !ok {
		return nil, fmt.Errorf("unsupported time units %q", units)
	}
	step, err := unitDuration(strings.TrimSpace(unit))
	if err != nil {
		return nil, err
	}
	ref, err := parseReference(strings.TrimSpace(since))
	if err != nil {
		return nil, err
	}

	out := make([]time.Time, len(values))
	for i, v := range values {
		out[i] = ref.Add(time.Duration(math.Round(v * float64(step))))
	}
	return out, nil
}

func unitDuration(unit string) (time.Duration, error) {
	switch strings.ToLower(unit) {
	case "seconds", "second", "s":
		return time.Second, nil
	case "minutes", "minute", "min":
		return time.Minute, nil
	case "hours", "hour", "h":
		return time.Hour, nil
	case "days", "day", "d":
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported time unit %q", unit)
	}
}

func parseReference(s string) (time.Time, error) {
	for _, layout := range referenceLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable reference date %q", s)
}

func decodeStamps(values []float64) ([]time.Time, error) {
	out := make([]time.Time, len(values))
	for i, v := range values {
		s := strconv.FormatInt(int64(math.Round(v)), 10)
		var layout string
		switch len(s) {
		case 12:
			layout = stampLayout
		case 10:
			layout = "2006010215"
		default:
			return nil, fmt.Errorf("value %s is not a yyyyMMddHHmm stamp", s)
		}
		t, err := time.Parse(layout, s)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}
