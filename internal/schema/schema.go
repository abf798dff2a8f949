// Package schema holds the HCL decoding targets for forcing configuration
// files. The structs mirror the block layout of a file and carry no logic;
// the hcl package translates them into the format-agnostic config model.
package schema

// File is the top-level structure of one configuration file. Every block is
// optional so that a configuration may be split across several files.
// Unknown blocks and attributes are decode errors.
type File struct {
	Run        *Run        `hcl:"run,block"`
	Thresholds *Thresholds `hcl:"thresholds,block"`
	Staging    *Staging    `hcl:"staging,block"`
	Static     *Static     `hcl:"static,block"`
	Datasets   []*Dataset  `hcl:"dataset,block"`
	Snapshot   *Snapshot   `hcl:"snapshot,block"`
}

// Run is the `run` block.
type Run struct {
	Name             string `hcl:"name,optional"`
	Domain           string `hcl:"domain,optional"`
	Mode             string `hcl:"mode,optional"`
	Ensemble         int    `hcl:"ensemble,optional"`
	Reference        string `hcl:"reference,optional"`
	Resolution       string `hcl:"resolution"`
	ObsSteps         int    `hcl:"obs_steps"`
	ForSteps         int    `hcl:"for_steps,optional"`
	CorrivationHours int    `hcl:"corrivation_hours,optional"`
	Destination      string `hcl:"destination,optional"`
}

// Thresholds is the `thresholds` block.
type Thresholds struct {
	Gridded float64  `hcl:"gridded"`
	Point   *float64 `hcl:"point,optional"`
}

// Staging is the `staging` block.
type Staging struct {
	TempRoot       string `hcl:"temp_root,optional"`
	Timeout        string `hcl:"timeout,optional"`
	InitialBackoff string `hcl:"initial_backoff,optional"`
	MaxBackoff     string `hcl:"max_backoff,optional"`
}

// Static is the `static` block.
type Static struct {
	Path      string `hcl:"path"`
	Terrain   string `hcl:"terrain,optional"`
	Longitude string `hcl:"longitude,optional"`
	Latitude  string `hcl:"latitude,optional"`
}

// Dataset is a `dataset "<name>"` block.
type Dataset struct {
	Name        string      `hcl:"name,label"`
	Category    string      `hcl:"category"`
	Class       string      `hcl:"class,optional"`
	Format      string      `hcl:"format,optional"`
	Source      string      `hcl:"source"`
	Destination string      `hcl:"destination"`
	Mandatory   bool        `hcl:"mandatory,optional"`
	Operations  []string    `hcl:"operations,optional"`
	Arrival     *Arrival    `hcl:"arrival,block"`
	Time        *Time       `hcl:"time,block"`
	Variables   []*Variable `hcl:"variable,block"`
	Remote      *Remote     `hcl:"remote,block"`
}

// Arrival is the `arrival` block of a dataset.
type Arrival struct {
	Days    int      `hcl:"days,optional"`
	Hours   []string `hcl:"hours,optional"`
	Latency string   `hcl:"latency,optional"`
}

// Time is the `time` block of a dataset.
type Time struct {
	Variable   string `hcl:"variable,optional"`
	Resolution string `hcl:"resolution,optional"`
	Steps      int    `hcl:"steps,optional"`
}

// Variable is a `variable "<id>"` block of a dataset.
type Variable struct {
	ID        string `hcl:"id,label"`
	Source    string `hcl:"source,optional"`
	Transform string `hcl:"transform,optional"`
	Rows      int    `hcl:"rows,optional"`
	Cols      int    `hcl:"cols,optional"`
	Scale     int    `hcl:"scale,optional"`
}

// Remote is the `remote` block of a dataset.
type Remote struct {
	URL   string `hcl:"url"`
	Cache string `hcl:"cache,optional"`
}

// Snapshot is the `snapshot` block.
type Snapshot struct {
	CSV   string `hcl:"csv,optional"`
	MySQL *MySQL `hcl:"mysql,block"`
}

// MySQL is the `mysql` block of a snapshot.
type MySQL struct {
	Addr     string `hcl:"addr"`
	User     string `hcl:"user,optional"`
	Password string `hcl:"password,optional"`
	Database string `hcl:"database"`
	Table    string `hcl:"table,optional"`
}
