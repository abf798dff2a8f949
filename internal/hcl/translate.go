package hcl

import (
	"github.com/vk/forcinggate/internal/config"
	"github.com/vk/forcinggate/internal/schema"
)

// translate converts the merged HCL schema into a config document.
func translate(f *schema.File) *config.Document {
	doc := &config.Document{}
	if r := f.Run; r != nil {
		doc.Run = config.RunDoc{
			Name:             r.Name,
			Domain:           r.Domain,
			Mode:             r.Mode,
			Ensemble:         r.Ensemble,
			Reference:        r.Reference,
			Resolution:       r.Resolution,
			ObsSteps:         r.ObsSteps,
			ForSteps:         r.ForSteps,
			CorrivationHours: r.CorrivationHours,
			Destination:      r.Destination,
		}
	}
	if t := f.Thresholds; t != nil {
		doc.Thresholds = config.ThresholdsDoc{Gridded: t.Gridded, Point: t.Point}
	}
	if s := f.Staging; s != nil {
		doc.Staging = config.StagingDoc{
			TempRoot:       s.TempRoot,
			Timeout:        s.Timeout,
			InitialBackoff: s.InitialBackoff,
			MaxBackoff:     s.MaxBackoff,
		}
	}
	if s := f.Static; s != nil {
		doc.Static = &config.StaticDoc{
			Path:      s.Path,
			Terrain:   s.Terrain,
			Longitude: s.Longitude,
			Latitude:  s.Latitude,
		}
	}
	for _, d := range f.Datasets {
		doc.Datasets = append(doc.Datasets, translateDataset(d))
	}
	if s := f.Snapshot; s != nil {
		doc.Snapshot = &config.SnapshotDoc{CSV: s.CSV}
		if my := s.MySQL; my != nil {
			doc.Snapshot.MySQL = &config.MySQLDoc{
				Addr:     my.Addr,
				User:     my.User,
				Password: my.Password,
				Database: my.Database,
				Table:    my.Table,
			}
		}
	}
	return doc
}

func translateDataset(d *schema.Dataset) config.DatasetDoc {
	out := config.DatasetDoc{
		Name:        d.Name,
		Category:    d.Category,
		Class:       d.Class,
		Format:      d.Format,
		Source:      d.Source,
		Destination: d.Destination,
		Mandatory:   d.Mandatory,
		Operations:  d.Operations,
	}
	if a := d.Arrival; a != nil {
		out.Arrival = config.ArrivalDoc{Days: a.Days, Hours: a.Hours, Latency: a.Latency}
	}
	if t := d.Time; t != nil {
		out.Time = config.TimeDoc{Variable: t.Variable, Resolution: t.Resolution, Steps: t.Steps}
	}
	for _, v := range d.Variables {
		out.Variables = append(out.Variables, config.VariableDoc{
			ID:        v.ID,
			Source:    v.Source,
			Transform: v.Transform,
			Rows:      v.Rows,
			Cols:      v.Cols,
			Scale:     v.Scale,
		})
	}
	if d.Remote != nil {
		out.Remote = &config.RemoteDoc{URL: d.Remote.URL, Cache: d.Remote.Cache}
	}
	return out
}
