package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/ctessum/sparse"
	"github.com/jszwec/csvutil"
	"github.com/vk/forcinggate/internal/failure"
)

// pointRow is one line of an ASCII point table.
type pointRow struct {
	Code      string   `csv:"code"`
	Value     float64  `csv:"value"`
	Longitude *float64 `csv:"longitude,omitempty"`
	Latitude  *float64 `csv:"latitude,omitempty"`
}

// ASCIIDriver reads CSV point tables.
type ASCIIDriver struct{}

// Open reads and decodes the whole table.
func (ASCIIDriver) Open(_ context.Context, path string) (Handle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dec, err := csvutil.NewDecoder(csv.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	header := dec.Header()
	for _, col := range []string{"code", "value"} {
		if !slices.Contains(header, col) {
			return nil, fmt.Errorf("%s: missing column %q", path, col)
		}
	}

	var rows []pointRow
	if err := dec.Decode(&rows); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &asciiHandle{path: path, rows: rows}, nil
}

type asciiHandle struct {
	path string
	rows []pointRow
}

// ReadVariable returns the whole table as one record. The file holds a
// single variable, so the requested name is only recorded.
func (h *asciiHandle) ReadVariable(_ context.Context, req Request) (*Record, error) {
	if len(h.rows) == 0 {
		return nil, failure.Loadf("%s: no point records", h.path)
	}

	data := sparse.ZerosDense(len(h.rows))
	codes := make([]string, len(h.rows))
	var lons, lats []float64
	for i, r := range h.rows {
		data.Set(r.Value, i)
		codes[i] = r.Code
		if r.Longitude != nil && r.Latitude != nil {
			lons = append(lons, *r.Longitude)
			lats = append(lats, *r.Latitude)
		}
	}

	attrs := map[string]any{"codes": codes}
	if len(lons) == len(h.rows) {
		attrs["longitude"] = lons
		attrs["latitude"] = lats
	}

	return &Record{
		Data:       data,
		SourceFile: req.Source,
		SourceVar:  req.Variable,
		Time:       req.Time,
		Attrs:      attrs,
	}, nil
}

func (h *asciiHandle) ReadTimeAxis(string) ([]time.Time, error) { return nil, nil }

func (h *asciiHandle) Close() error {
	h.rows = nil
	return nil
}
