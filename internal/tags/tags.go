// Package tags renders filename templates by plain substring replacement of
// `$Token` placeholders.
package tags

import (
	"fmt"
	"maps"
	"regexp"
	"sort"
	"strings"
	"time"
)

// unresolved matches any placeholder left after substitution.
var unresolved = regexp.MustCompile(`\$[A-Za-z_]+`)

// Map holds token -> value pairs. Keys carry the leading '$'.
type Map map[string]string

// Clone returns an independent copy of m.
func (m Map) Clone() Map {
	return maps.Clone(m)
}

// With returns a copy of m extended by other. Keys in other win.
func (m Map) With(other Map) Map {
	out := make(Map, len(m)+len(other))
	maps.Copy(out, m)
	maps.Copy(out, other)
	return out
}

// Time returns the date tokens of t: $yyyy, $mm, $dd, $HH, $MM.
func Time(t time.Time) Map {
	return prefixedTime("$", t)
}

// StepTime returns the date tokens of the requested step, prefixed with S
// ($Syyyy, $Smm, ...), so a template can mix run and step times.
func StepTime(t time.Time) Map {
	return prefixedTime("$S", t)
}

func prefixedTime(prefix string, t time.Time) Map {
	return Map{
		prefix + "yyyy": t.Format("2006"),
		prefix + "mm":   t.Format("01"),
		prefix + "dd":   t.Format("02"),
		prefix + "HH":   t.Format("15"),
		prefix + "MM":   t.Format("04"),
	}
}

// Render substitutes every token of m into template. Longer tokens are
// replaced first so `$SHH` is never eaten by `$HH`. A placeholder that
// survives substitution is an error; the rendered string is still returned
// for diagnostics.
func Render(template string, m Map) (string, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	out := template
	for _, k := range keys {
		out = strings.ReplaceAll(out, k, m[k])
	}

	if left := unresolved.FindAllString(out, -1); len(left) > 0 {
		return out, fmt.Errorf("template %q: unresolved tokens %v", template, left)
	}
	return out, nil
}
