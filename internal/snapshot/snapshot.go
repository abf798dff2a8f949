// Package snapshot exports the time summary table for inspection: as a CSV
// file next to the run outputs and, optionally, as rows of a MySQL table
// keyed by run and step.
package snapshot

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/vk/forcinggate/internal/fsutil"
	"github.com/vk/forcinggate/internal/ledger"
)

// Row is one step of the time summary.
type Row struct {
	Time      time.Time `csv:"-"`
	Step      string    `csv:"time"`
	DataType  string    `csv:"data_type"`
	DataCheck bool      `csv:"data_check"`
	DataExtra bool      `csv:"data_extra"`

	ForcingGridded    bool `csv:"forcing_gridded"`
	ForcingPoint      bool `csv:"forcing_point"`
	ForcingTimeSeries bool `csv:"forcing_time_series"`
	UpdatingGridded   bool `csv:"updating_gridded"`
	UpdatingPoint     bool `csv:"updating_point"`
	RestartGridded    bool `csv:"restart_gridded"`
	RestartPoint      bool `csv:"restart_point"`
}

// Rows flattens t into one Row per step.
func Rows(t *ledger.Table) []Row {
	slots := make(map[ledger.Category][]bool, len(ledger.Categories))
	for _, c := range ledger.Categories {
		slots[c] = t.Slots(c)
	}

	steps := t.Steps()
	rows := make([]Row, len(steps))
	for i, s := range steps {
		rows[i] = Row{
			Time:              s,
			Step:              s.Format("2006-01-02 15:04"),
			DataType:          t.DataType(i).String(),
			DataCheck:         t.DataCheck(i),
			DataExtra:         t.DataExtra(i),
			ForcingGridded:    slots[ledger.ForcingGridded][i],
			ForcingPoint:      slots[ledger.ForcingPoint][i],
			ForcingTimeSeries: slots[ledger.ForcingTimeSeries][i],
			UpdatingGridded:   slots[ledger.UpdatingGridded][i],
			UpdatingPoint:     slots[ledger.UpdatingPoint][i],
			RestartGridded:    slots[ledger.RestartGridded][i],
			RestartPoint:      slots[ledger.RestartPoint][i],
		}
	}
	return rows
}

// WriteCSV writes rows to path with a header line.
func WriteCSV(path string, rows []Row) error {
	b, err := csvutil.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode time summary: %w", err)
	}
	if err := fsutil.WriteFrom(path, bytes.NewReader(b)); err != nil {
		return fmt.Errorf("write time summary %s: %w", path, err)
	}
	return nil
}
