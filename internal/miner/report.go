package miner

import (
	"fmt"
	"image"

	"github.com/ivlev/patchminer/internal/system"
)

// BatchReport counts the outcomes of one batch.
type BatchReport struct {
	Index     int
	Attempted int
	Accepted  int
	Rejected  int // failed validation
	Failed    int // read or write errors
}

// Result describes a finished run.
type Result struct {
	Slide           string
	State           State
	Quota           int
	Batches         []BatchReport
	Attempted       int
	Accepted        int
	Coordinates     []image.Point // accepted, in acceptance order
	CoordinatesFile string
}

func (r *Result) add(b BatchReport) {
	r.Batches = append(r.Batches, b)
	r.Attempted += b.Attempted
	r.Accepted += b.Accepted
}

// Summary is the end-of-run report.
type Summary struct {
	Result
	PatchDir   string
	FolderSize int64
	Files      int
	PatchSize  image.Point
	Level      int
	DryRun     bool
	ReadType   string
	Overlap    float64
}

// Summarize collects the run parameters and the state of the patch folder.
func (c *Controller) Summarize(res Result) Summary {
	s := Summary{
		Result:    res,
		PatchDir:  c.extractor.Dir(),
		PatchSize: c.cfg.Size(),
		Level:     c.cfg.Level,
		DryRun:    c.cfg.DryRun(),
		ReadType:  c.cfg.ReadType,
		Overlap:   c.cfg.Overlap,
	}
	if !s.DryRun {
		size, files, err := system.FolderStats(s.PatchDir)
		if err != nil {
			fmt.Printf("[!] Could not measure %s: %v\n", s.PatchDir, err)
		}
		s.FolderSize, s.Files = size, files
	}
	return s
}

// Lines renders the summary as label/value pairs in display order.
func (s Summary) Lines() [][2]string {
	quota := "until exhaustion"
	if s.Quota > 0 {
		quota = fmt.Sprint(s.Quota)
	}
	return [][2]string{
		{"Slide", s.Slide},
		{"State", s.State.String()},
		{"Patches", fmt.Sprintf("%d accepted of %d attempted in %d batches", s.Accepted, s.Attempted, len(s.Batches))},
		{"Quota", quota},
		{"Patch size", fmt.Sprintf("%dx%d @ level %d", s.PatchSize.X, s.PatchSize.Y, s.Level)},
		{"Read type", s.ReadType},
		{"Overlap factor", fmt.Sprint(s.Overlap)},
		{"Dry run", fmt.Sprint(s.DryRun)},
		{"Patch folder", fmt.Sprintf("%s (%d files, %.2f MB)", s.PatchDir, s.Files, float64(s.FolderSize)/(1<<20))},
		{"Coordinates", s.CoordinatesFile},
	}
}
