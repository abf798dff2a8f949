// Package arrival computes the candidate production times of externally
// produced data files.
//
// A producer publishes at a fixed set of hours of the day, possibly with a
// delay. Given the time a file is needed for, Window.Candidates lists every
// publication time that could already hold it, oldest first. Callers walk
// the list backwards so the most recent production is tried first and older
// runs act as fallbacks.
package arrival

import (
	"fmt"
	"slices"
	"strconv"
	"time"
)

// Window describes when a producer publishes.
type Window struct {
	// Days is how many days before the reference time are searched.
	Days int
	// Hours is the hour-of-day allow-list. Empty means only the exact
	// clock time of the reference is a candidate.
	Hours []int
	// Latency is the publication delay. A candidate t is only considered
	// once t+Latency is not after the reference time.
	Latency time.Duration
}

// Exact is the window that only ever yields the reference time itself.
var Exact = Window{}

// Candidates returns the production times that are not later than
// ref-Latency, ascending and without duplicates.
func (w Window) Candidates(ref time.Time) []time.Time {
	limit := ref.Add(-w.Latency)
	days := w.Days
	if days < 0 {
		days = 0
	}

	var out []time.Time
	for d := days; d >= 0; d-- {
		day := ref.AddDate(0, 0, -d)
		if len(w.Hours) == 0 {
			if !day.After(limit) {
				out = append(out, day)
			}
			continue
		}
		y, m, dd := day.Date()
		for _, h := range w.Hours {
			c := time.Date(y, m, dd, h, 0, 0, 0, ref.Location())
			if !c.After(limit) {
				out = append(out, c)
			}
		}
	}

	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return slices.CompactFunc(out, func(a, b time.Time) bool { return a.Equal(b) })
}

// MostRecentFirst returns Candidates in the order consumers try them.
func (w Window) MostRecentFirst(ref time.Time) []time.Time {
	c := w.Candidates(ref)
	slices.Reverse(c)
	return c
}

// ParseHours converts an hour allow-list such as ["00", "12"] into ints.
func ParseHours(hours []string) ([]int, error) {
	if len(hours) == 0 {
		return nil, nil
	}
	out := make([]int, 0, len(hours))
	for _, h := range hours {
		v, err := strconv.Atoi(h)
		if err != nil || v < 0 || v > 23 {
			return nil, fmt.Errorf("invalid hour of day %q: must be 00-23", h)
		}
		out = append(out, v)
	}
	return out, nil
}
