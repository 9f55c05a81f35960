// Package provenance keeps the append-only record of every accepted patch.
package provenance

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrLayoutMismatch means an existing table was written with different
// columns than the current run needs.
var ErrLayoutMismatch = errors.New("provenance table layout mismatch")

// Row is one accepted patch.
type Row struct {
	SubjectID      string
	SlidePatchPath string
	LabelPatchPath string
	Composition    string
}

// Layout selects the optional columns.
type Layout struct {
	SubjectID bool
	LabelMap  bool
}

// Header lists the column names for the layout.
func (l Layout) Header() []string {
	var h []string
	if l.SubjectID {
		h = append(h, "SubjectID")
	}
	h = append(h, "SlidePatchPath")
	if l.LabelMap {
		h = append(h, "LabelMapPatchPath", "PatchComposition")
	}
	return h
}

func (l Layout) record(r Row) []string {
	var rec []string
	if l.SubjectID {
		rec = append(rec, r.SubjectID)
	}
	rec = append(rec, r.SlidePatchPath)
	if l.LabelMap {
		rec = append(rec, r.LabelPatchPath, r.Composition)
	}
	return rec
}

func (l Layout) row(rec []string) Row {
	var r Row
	i := 0
	if l.SubjectID {
		r.SubjectID = rec[i]
		i++
	}
	r.SlidePatchPath = rec[i]
	i++
	if l.LabelMap {
		r.LabelPatchPath = rec[i]
		r.Composition = rec[i+1]
	}
	return r
}

// Table is an ordered, append-only collection of rows. Rows written by
// earlier runs are loaded on open and never rewritten.
type Table interface {
	Rows() []Row
	Append(rows ...Row) error
	Close() error
}

// Open selects the backend from the file extension: .db, .sqlite and
// .sqlite3 use SQLite, anything else is CSV.
func Open(path string, layout Layout) (Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return OpenSQLite(path, layout)
	default:
		return OpenCSV(path, layout)
	}
}
