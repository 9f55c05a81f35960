package provenance

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestHeader(t *testing.T) {
	tests := []struct {
		layout Layout
		want   string
	}{
		{Layout{}, "SlidePatchPath"},
		{Layout{SubjectID: true}, "SubjectID,SlidePatchPath"},
		{Layout{LabelMap: true}, "SlidePatchPath,LabelMapPatchPath,PatchComposition"},
		{Layout{SubjectID: true, LabelMap: true}, "SubjectID,SlidePatchPath,LabelMapPatchPath,PatchComposition"},
	}
	for _, tt := range tests {
		if got := strings.Join(tt.layout.Header(), ","); got != tt.want {
			t.Errorf("Header(%+v) = %q, want %q", tt.layout, got, tt.want)
		}
	}
}

func rowsN(prefix string, n int) []Row {
	out := make([]Row, n)
	for i := range out {
		out[i] = Row{
			SubjectID:      "S1",
			SlidePatchPath: prefix + string(rune('a'+i)) + ".png",
			LabelPatchPath: prefix + string(rune('a'+i)) + "_LM.png",
			Composition:    "{0: 1}",
		}
	}
	return out
}

func TestCSVAppendPreservesEarlierRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patches.csv")
	layout := Layout{SubjectID: true, LabelMap: true}

	first, err := Open(path, layout)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := first.Append(rowsN("run1_", 3)...); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	first.Close()

	second, err := Open(path, layout)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	if got := len(second.Rows()); got != 3 {
		t.Fatalf("Expected 3 loaded rows, got %d", got)
	}
	if err := second.Append(rowsN("run2_", 2)...); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	second.Close()

	want := append(rowsN("run1_", 3), rowsN("run2_", 2)...)
	if got := second.Rows(); !slices.Equal(got, want) {
		t.Errorf("Rows mismatch:\n got %v\nwant %v", got, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "SubjectID,SlidePatchPath"); n != 1 {
		t.Errorf("Header written %d times", n)
	}
	if lines := strings.Count(string(data), "\n"); lines != 6 {
		t.Errorf("Expected 6 lines, got %d", lines)
	}
}

func TestCSVQuotesCompositionSeparators(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patches.csv")
	layout := Layout{LabelMap: true}

	tbl, err := OpenCSV(path, layout)
	if err != nil {
		t.Fatal(err)
	}
	row := Row{SlidePatchPath: "a, b.png", LabelPatchPath: "a_LM.png", Composition: "{0: 0.5; 1: 0.5}"}
	if err := tbl.Append(row); err != nil {
		t.Fatal(err)
	}
	tbl.Close()

	again, err := OpenCSV(path, layout)
	if err != nil {
		t.Fatal(err)
	}
	defer again.Close()
	if got := again.Rows(); len(got) != 1 || got[0] != row {
		t.Errorf("Round trip lost data: %v", got)
	}
}

func TestCSVLayoutMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patches.csv")
	tbl, err := OpenCSV(path, Layout{})
	if err != nil {
		t.Fatal(err)
	}
	tbl.Close()

	if _, err := OpenCSV(path, Layout{LabelMap: true}); !errors.Is(err, ErrLayoutMismatch) {
		t.Errorf("Expected ErrLayoutMismatch, got %v", err)
	}
}

func TestCSVTruncatedLastLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patches.csv")
	if err := os.WriteFile(path, []byte("SlidePatchPath\nfirst.png"), 0644); err != nil {
		t.Fatal(err)
	}

	tbl, err := OpenCSV(path, Layout{})
	if err != nil {
		t.Fatal(err)
	}
	if err := tbl.Append(Row{SlidePatchPath: "second.png"}); err != nil {
		t.Fatal(err)
	}
	tbl.Close()

	data, _ := os.ReadFile(path)
	if string(data) != "SlidePatchPath\nfirst.png\nsecond.png\n" {
		t.Errorf("Unexpected file contents %q", data)
	}
}

func TestSQLiteInMemory(t *testing.T) {
	tbl, err := OpenSQLite(":memory:", Layout{LabelMap: true})
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer tbl.Close()

	if err := tbl.Append(rowsN("x_", 2)...); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	var count int
	if err := tbl.db.QueryRow("SELECT COUNT(*) FROM patches").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("Expected 2 stored rows, got %d", count)
	}
}

func TestSQLiteAppendPreservesEarlierRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patches.db")
	layout := Layout{SubjectID: true}

	first, err := Open(path, layout)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	in := []Row{{SubjectID: "S1", SlidePatchPath: "a.png"}, {SubjectID: "S1", SlidePatchPath: "b.png"}}
	if err := first.Append(in...); err != nil {
		t.Fatal(err)
	}
	first.Close()

	second, err := Open(path, layout)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	if err := second.Append(Row{SubjectID: "S2", SlidePatchPath: "c.png"}); err != nil {
		t.Fatal(err)
	}
	got := second.Rows()
	if len(got) != 3 || got[0] != in[0] || got[1] != in[1] || got[2].SlidePatchPath != "c.png" {
		t.Errorf("Unexpected rows %v", got)
	}
	second.Close()

	if _, err := Open(path, Layout{LabelMap: true}); !errors.Is(err, ErrLayoutMismatch) {
		t.Errorf("Expected ErrLayoutMismatch, got %v", err)
	}
}
