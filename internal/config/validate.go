package config

import (
	"errors"
	"fmt"

	"github.com/vk/forcinggate/internal/loader"
)

// Validate checks the cross-field rules of the model.
func (m *Model) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if m.Run.Resolution <= 0 {
		fail("run.resolution must be a positive duration")
	}
	if m.Run.ObsSteps < 1 {
		fail("run.obs_steps must be at least 1")
	}
	if m.Run.ForSteps < 0 {
		fail("run.for_steps must not be negative")
	}
	if m.Run.CorrivationHours < 0 {
		fail("run.corrivation_hours must not be negative")
	}
	thresholds := map[string]float64{"gridded": m.Thresholds.Gridded}
	if m.Thresholds.Point != nil {
		thresholds["point"] = *m.Thresholds.Point
	}
	for name, v := range thresholds {
		if v < 0 || v > 100 {
			fail("thresholds.%s must be within 0-100, got %g", name, v)
		}
	}
	if m.Static != nil && m.Static.Path == "" {
		fail("static.path is required when a static block is present")
	}
	if len(m.Datasets) == 0 {
		fail("at least one dataset is required")
	}

	seen := make(map[string]struct{})
	for _, d := range m.Datasets {
		if d.Name == "" {
			fail("dataset name is required")
			continue
		}
		if _, dup := seen[d.Name]; dup {
			fail("dataset %q is declared twice", d.Name)
		}
		seen[d.Name] = struct{}{}

		if d.Source == "" {
			fail("dataset %q: source template is required", d.Name)
		}
		if d.Destination == "" {
			fail("dataset %q: destination template is required", d.Name)
		}
		if d.Arrival.Days < 0 {
			fail("dataset %q: arrival.days must not be negative", d.Name)
		}
		if len(d.Variables) == 0 {
			fail("dataset %q: at least one variable is required", d.Name)
		}
		if d.Remote != nil && d.Remote.URL == "" {
			fail("dataset %q: remote.url is required", d.Name)
		}

		ids := make(map[string]struct{})
		for _, v := range d.Variables {
			if v.ID == "" {
				fail("dataset %q: variable id is required", d.Name)
				continue
			}
			if _, dup := ids[v.ID]; dup {
				fail("dataset %q: variable %q is declared twice", d.Name, v.ID)
			}
			ids[v.ID] = struct{}{}
			if d.Format == loader.Binary && (v.Grid.Rows <= 0 || v.Grid.Cols <= 0 || v.Grid.Scale <= 0) {
				fail("dataset %q: binary variable %q needs positive rows, cols and scale", d.Name, v.ID)
			}
		}
	}

	if m.Snapshot != nil && m.Snapshot.MySQL != nil {
		my := m.Snapshot.MySQL
		if my.Addr == "" || my.Database == "" {
			fail("snapshot.mysql needs addr and database")
		}
	}

	return errors.Join(errs...)
}

// Dataset returns the dataset called name.
func (m *Model) Dataset(name string) (*Dataset, bool) {
	for _, d := range m.Datasets {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}
