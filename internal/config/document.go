package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/vk/forcinggate/internal/arrival"
	"github.com/vk/forcinggate/internal/ledger"
	"github.com/vk/forcinggate/internal/loader"
)

// Document mirrors a configuration file. Every field is in file form:
// timestamps and durations are strings, enums are names.
type Document struct {
	Run        RunDoc        `yaml:"run"`
	Thresholds ThresholdsDoc `yaml:"thresholds"`
	Staging    StagingDoc    `yaml:"staging"`
	Static     *StaticDoc    `yaml:"static"`
	Datasets   []DatasetDoc  `yaml:"datasets"`
	Snapshot   *SnapshotDoc  `yaml:"snapshot"`
}

type RunDoc struct {
	Name             string `yaml:"name"`
	Domain           string `yaml:"domain"`
	Mode             string `yaml:"mode"`
	Ensemble         int    `yaml:"ensemble"`
	Reference        string `yaml:"reference"`
	Resolution       string `yaml:"resolution"`
	ObsSteps         int    `yaml:"obs_steps"`
	ForSteps         int    `yaml:"for_steps"`
	CorrivationHours int    `yaml:"corrivation_hours"`
	Destination      string `yaml:"destination"`
}

type ThresholdsDoc struct {
	Gridded float64  `yaml:"gridded"`
	Point   *float64 `yaml:"point"`
}

type StagingDoc struct {
	TempRoot       string `yaml:"temp_root"`
	Timeout        string `yaml:"timeout"`
	InitialBackoff string `yaml:"initial_backoff"`
	MaxBackoff     string `yaml:"max_backoff"`
}

type StaticDoc struct {
	Path      string `yaml:"path"`
	Terrain   string `yaml:"terrain"`
	Longitude string `yaml:"longitude"`
	Latitude  string `yaml:"latitude"`
}

type DatasetDoc struct {
	Name        string        `yaml:"name"`
	Category    string        `yaml:"category"`
	Class       string        `yaml:"class"`
	Format      string        `yaml:"format"`
	Source      string        `yaml:"source"`
	Destination string        `yaml:"destination"`
	Mandatory   bool          `yaml:"mandatory"`
	Operations  []string      `yaml:"operations"`
	Arrival     ArrivalDoc    `yaml:"arrival"`
	Time        TimeDoc       `yaml:"time"`
	Variables   []VariableDoc `yaml:"variables"`
	Remote      *RemoteDoc    `yaml:"remote"`
}

type ArrivalDoc struct {
	Days    int      `yaml:"days"`
	Hours   []string `yaml:"hours"`
	Latency string   `yaml:"latency"`
}

type TimeDoc struct {
	Variable   string `yaml:"variable"`
	Resolution string `yaml:"resolution"`
	Steps      int    `yaml:"steps"`
}

type VariableDoc struct {
	ID        string `yaml:"id"`
	Source    string `yaml:"source"`
	Transform string `yaml:"transform"`
	Rows      int    `yaml:"rows"`
	Cols      int    `yaml:"cols"`
	Scale     int    `yaml:"scale"`
}

type RemoteDoc struct {
	URL   string `yaml:"url"`
	Cache string `yaml:"cache"`
}

type SnapshotDoc struct {
	CSV   string    `yaml:"csv"`
	MySQL *MySQLDoc `yaml:"mysql"`
}

type MySQLDoc struct {
	Addr     string `yaml:"addr"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
}

// Model parses and validates d. All problems are reported together.
func (d *Document) Model() (*Model, error) {
	p := &parser{}
	m := &Model{
		Run:        p.run(d.Run),
		Thresholds: Thresholds{Gridded: d.Thresholds.Gridded, Point: d.Thresholds.Point},
		Staging: Staging{
			TempRoot:       d.Staging.TempRoot,
			Timeout:        p.duration("staging.timeout", d.Staging.Timeout),
			InitialBackoff: p.duration("staging.initial_backoff", d.Staging.InitialBackoff),
			MaxBackoff:     p.duration("staging.max_backoff", d.Staging.MaxBackoff),
		},
	}

	if d.Static != nil {
		names := loader.DefaultStaticNames()
		m.Static = &Static{
			Path:      d.Static.Path,
			Terrain:   or(d.Static.Terrain, names.Terrain),
			Longitude: or(d.Static.Longitude, names.Longitude),
			Latitude:  or(d.Static.Latitude, names.Latitude),
		}
	}

	for i := range d.Datasets {
		m.Datasets = append(m.Datasets, p.dataset(&d.Datasets[i], m.Run.Destination))
	}

	if d.Snapshot != nil {
		m.Snapshot = &Snapshot{CSV: d.Snapshot.CSV}
		if my := d.Snapshot.MySQL; my != nil {
			m.Snapshot.MySQL = &MySQL{
				Addr:     my.Addr,
				User:     my.User,
				Password: my.Password,
				Database: my.Database,
				Table:    or(my.Table, "time_summary"),
			}
		}
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// parser collects conversion errors.
type parser struct {
	errs []error
}

func (p *parser) fail(format string, args ...any) {
	p.errs = append(p.errs, fmt.Errorf(format, args...))
}

func (p *parser) duration(field, s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		p.fail("%s: %v", field, err)
	}
	return d
}

func (p *parser) run(r RunDoc) Run {
	out := Run{
		Name:             r.Name,
		Domain:           r.Domain,
		Mode:             or(r.Mode, "deterministic"),
		Ensemble:         max(r.Ensemble, 1),
		Resolution:       p.duration("run.resolution", r.Resolution),
		ObsSteps:         r.ObsSteps,
		ForSteps:         r.ForSteps,
		CorrivationHours: r.CorrivationHours,
		Destination:      r.Destination,
	}
	if r.Reference != "" {
		t, err := time.Parse(TimeLayout, r.Reference)
		if err != nil {
			p.fail("run.reference: %q is not a yyyyMMddHHmm timestamp", r.Reference)
		}
		out.Reference = t
	}
	return out
}

func (p *parser) dataset(d *DatasetDoc, root string) *Dataset {
	field := func(name string) string { return fmt.Sprintf("dataset %q: %s", d.Name, name) }

	out := &Dataset{
		Name:        d.Name,
		Source:      d.Source,
		Destination: d.Destination,
		Mandatory:   d.Mandatory,
		Operations:  d.Operations,
		Time: TimeAxis{
			Variable:   or(d.Time.Variable, "time"),
			Resolution: p.duration(field("time.resolution"), d.Time.Resolution),
			Steps:      d.Time.Steps,
		},
	}
	if root != "" && out.Destination != "" && !filepath.IsAbs(out.Destination) {
		out.Destination = filepath.Join(root, out.Destination)
	}

	var err error
	if out.Category, err = ledger.ParseCategory(d.Category); err != nil {
		p.fail("%s: %v", field("category"), err)
	}
	if out.Class, err = ParseClass(d.Class); err != nil {
		p.fail("%s: %v", field("class"), err)
	}
	if out.Format, err = loader.ParseKind(or(d.Format, "netcdf")); err != nil {
		p.fail("%s: %v", field("format"), err)
	}

	hours, err := arrival.ParseHours(d.Arrival.Hours)
	if err != nil {
		p.fail("%s: %v", field("arrival.hours"), err)
	}
	out.Arrival = arrival.Window{
		Days:    d.Arrival.Days,
		Hours:   hours,
		Latency: p.duration(field("arrival.latency"), d.Arrival.Latency),
	}

	for _, v := range d.Variables {
		out.Variables = append(out.Variables, &Variable{
			ID:        v.ID,
			Source:    or(v.Source, v.ID),
			Transform: v.Transform,
			Grid:      loader.Grid{Rows: v.Rows, Cols: v.Cols, Scale: v.Scale},
		})
	}
	if d.Remote != nil {
		out.Remote = &Remote{URL: d.Remote.URL, Cache: d.Remote.Cache}
	}
	return out
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
