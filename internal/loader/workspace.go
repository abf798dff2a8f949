package loader

import (
	"errors"
	"fmt"
	"slices"
)

// Key addresses one variable of one category.
type Key struct {
	Category string
	ID       string
}

// Workspace collects the records destined for one output.
type Workspace struct {
	records map[Key]*Record
	order   []Key
	static  *Static
}

// NewWorkspace returns an empty workspace.
func NewWorkspace() *Workspace {
	return &Workspace{records: make(map[Key]*Record)}
}

// Put stores a complete record. Incomplete records are rejected so a slot
// is either fully populated or absent.
func (w *Workspace) Put(category, id string, rec *Record) error {
	if rec == nil || rec.Data == nil || len(rec.Data.Elements) == 0 {
		return errors.New("workspace: refusing incomplete record")
	}
	if category == "" || id == "" {
		return fmt.Errorf("workspace: empty key (%q, %q)", category, id)
	}
	k := Key{Category: category, ID: id}
	if _, ok := w.records[k]; !ok {
		w.order = append(w.order, k)
	}
	w.records[k] = rec
	return nil
}

// Get returns the record stored under (category, id).
func (w *Workspace) Get(category, id string) (*Record, bool) {
	rec, ok := w.records[Key{Category: category, ID: id}]
	return rec, ok
}

// Records returns the ids and records of category in insertion order.
func (w *Workspace) Records(category string) ([]string, []*Record) {
	var ids []string
	var recs []*Record
	for _, k := range w.order {
		if k.Category == category {
			ids = append(ids, k.ID)
			recs = append(recs, w.records[k])
		}
	}
	return ids, recs
}

// Drop removes every record of category.
func (w *Workspace) Drop(category string) {
	w.order = slices.DeleteFunc(w.order, func(k Key) bool {
		if k.Category == category {
			delete(w.records, k)
			return true
		}
		return false
	})
}

// SetStatic stores the static layers. Only the first call has an effect.
func (w *Workspace) SetStatic(s *Static) {
	if w.static == nil {
		w.static = s
	}
}

// Static returns the cached static layers, or nil.
func (w *Workspace) Static() *Static { return w.static }
