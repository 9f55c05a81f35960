package provenance

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// CSVTable stores rows in a comma-separated file with a header line.
type CSVTable struct {
	layout Layout
	f      *os.File
	w      *csv.Writer
	rows   []Row
}

// OpenCSV loads any rows already in path and opens it for appending. The
// header is written only when the file is new or empty.
func OpenCSV(path string, layout Layout) (*CSVTable, error) {
	t := &CSVTable{layout: layout}

	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read provenance table: %w", err)
	}
	if len(existing) > 0 {
		if err := t.load(string(existing)); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open provenance table: %w", err)
	}
	t.f = f
	t.w = csv.NewWriter(f)

	switch {
	case len(existing) == 0:
		t.w.Write(layout.Header())
	case existing[len(existing)-1] != '\n':
		// a previous run was cut off mid-line
		if _, err := f.WriteString("\n"); err != nil {
			f.Close()
			return nil, err
		}
	}
	t.w.Flush()
	if err := t.w.Error(); err != nil {
		f.Close()
		return nil, err
	}
	return t, nil
}

func (t *CSVTable) load(data string) error {
	r := csv.NewReader(strings.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return err
	}
	if !slices.Equal(header, t.layout.Header()) {
		return fmt.Errorf("%w: have %v, want %v", ErrLayoutMismatch, header, t.layout.Header())
	}

	width := len(header)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(rec) != width {
			return fmt.Errorf("%w: row %d has %d fields, want %d", ErrLayoutMismatch, len(t.rows)+1, len(rec), width)
		}
		t.rows = append(t.rows, t.layout.row(rec))
	}
}

// Rows returns earlier and appended rows in order.
func (t *CSVTable) Rows() []Row {
	return slices.Clone(t.rows)
}

// Append writes rows and flushes them before returning.
func (t *CSVTable) Append(rows ...Row) error {
	for _, r := range rows {
		if err := t.w.Write(t.layout.record(r)); err != nil {
			return err
		}
	}
	t.w.Flush()
	if err := t.w.Error(); err != nil {
		return fmt.Errorf("append provenance rows: %w", err)
	}
	t.rows = append(t.rows, rows...)
	return nil
}

func (t *CSVTable) Close() error {
	t.w.Flush()
	if err := t.w.Error(); err != nil {
		t.f.Close()
		return err
	}
	return t.f.Close()
}
