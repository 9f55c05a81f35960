package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ivlev/patchminer/internal/config"
	"github.com/ivlev/patchminer/internal/patch"
	"github.com/ivlev/patchminer/internal/provenance"
	"github.com/ivlev/patchminer/internal/slide"
	"github.com/ivlev/patchminer/internal/system"
)

// slides are picked from here when no path is given
const defaultInputDir = "input"

func addRunFlags(fs *pflag.FlagSet) {
	d := config.Default()
	fs.StringP("config", "c", "", "YAML run config; flags override its values")
	fs.String("slide", "", "slide image or document (default: newest file in input/)")
	fs.String("mask", "", "eligibility mask image (non-zero = eligible)")
	fs.String("label-map", "", "label map with the same dimensions as the slide")
	fs.StringP("output", "o", d.OutputDir, "output directory")
	fs.String("table", "", "provenance table (.csv, or .db for SQLite); default <output>/<slide>.csv")
	fs.String("subject", "", "subject id recorded in the provenance table")
	fs.Int("dpi", d.DPI, "render resolution for document slides")
	fs.IntSlice("patch-size", d.PatchSize, "patch width,height")
	fs.Float64("overlap", d.Overlap, "tolerated overlap: 0 = none, 1 = unconstrained")
	fs.String("read-type", d.ReadType, "random or sequential")
	fs.IntP("workers", "w", 0, "extraction workers (0 = logical CPUs)")
	fs.IntP("num-patches", "n", d.Quota, "patch quota, -1 mines until exhaustion")
	fs.Bool("dry-run", false, "validate patches without saving them")
	fs.Float64("scale", d.Scale, "slide pixels per grid cell without a mask; 0 samples unconstrained")
	fs.Int("level", d.Level, "pyramid level patches are read at")
	fs.Int("batch-limit", d.BatchLimit, "maximum patches per batch (0 = no limit)")
	fs.Int64("seed", d.Seed, "random seed (0 = time based)")
	fs.StringSlice("predicates", d.Predicates, "validity checks in order: alpha, size, sharpness")
	fs.Float64("sharpness", d.SharpnessThreshold, "minimum gradient variance for the sharpness check")
}

// loadRun reads the config file, if any, and applies explicitly set flags.
func loadRun(cmd *cobra.Command) (config.Run, error) {
	fs := cmd.Flags()
	cfg := config.Default()
	if path, _ := fs.GetString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
		fmt.Printf("[*] Config: %s\n", path)
	}

	str := func(name string, dst *string) {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if fs.Changed(name) {
			*dst, _ = fs.GetInt(name)
		}
	}
	float := func(name string, dst *float64) {
		if fs.Changed(name) {
			*dst, _ = fs.GetFloat64(name)
		}
	}

	str("slide", &cfg.SlidePath)
	str("mask", &cfg.MaskPath)
	str("label-map", &cfg.LabelMapPath)
	str("output", &cfg.OutputDir)
	str("table", &cfg.TablePath)
	str("subject", &cfg.SubjectID)
	str("read-type", &cfg.ReadType)
	num("dpi", &cfg.DPI)
	num("workers", &cfg.Workers)
	num("num-patches", &cfg.Quota)
	num("level", &cfg.Level)
	num("batch-limit", &cfg.BatchLimit)
	float("overlap", &cfg.Overlap)
	float("scale", &cfg.Scale)
	float("sharpness", &cfg.SharpnessThreshold)

	if fs.Changed("patch-size") {
		cfg.PatchSize, _ = fs.GetIntSlice("patch-size")
	}
	if fs.Changed("predicates") {
		cfg.Predicates, _ = fs.GetStringSlice("predicates")
	}
	if fs.Changed("seed") {
		cfg.Seed, _ = fs.GetInt64("seed")
	}
	if fs.Changed("dry-run") {
		dry, _ := fs.GetBool("dry-run")
		cfg.SavePatches = !dry
	}

	if cfg.SlidePath == "" {
		latest, err := system.FindLatest(defaultInputDir, slide.Extensions()...)
		if err != nil {
			return cfg, fmt.Errorf("%w: no --slide given and %v", config.ErrInvalid, err)
		}
		cfg.SlidePath = latest
		fmt.Printf("[*] Selected slide: %s\n", cfg.SlidePath)
	}
	if cfg.Workers == 0 {
		cfg.Workers = system.DefaultWorkers()
	}
	return cfg, nil
}

// session holds the opened inputs of a run.
type session struct {
	slide  slide.Slide
	labels slide.Slide
	table  provenance.Table
}

func (s *session) Close() {
	if s.table != nil {
		if err := s.table.Close(); err != nil {
			fmt.Printf("[!] Closing provenance table: %v\n", err)
		}
	}
	if s.labels != nil {
		s.labels.Close()
	}
	if s.slide != nil {
		s.slide.Close()
	}
}

// openSession opens the slide, the optional label map and the provenance
// table. Close must be called even on error.
func openSession(cfg config.Run) (*session, error) {
	s := &session{}
	var err error

	if s.slide, err = slide.Open(cfg.SlidePath, cfg.DPI); err != nil {
		return s, fmt.Errorf("open slide: %w", err)
	}
	dims := s.slide.Dimensions()
	fmt.Printf("[*] Slide: %s | %dx%d\n", cfg.SlidePath, dims.X, dims.Y)
	if doc, ok := s.slide.(*slide.FitzSlide); ok && doc.Pages() > 1 {
		fmt.Printf("[!] %s has %d pages, only the first is mined\n", filepath.Base(cfg.SlidePath), doc.Pages())
	}

	if cfg.LabelMapPath != "" {
		if s.labels, err = slide.OpenLabels(cfg.LabelMapPath); err != nil {
			return s, fmt.Errorf("open label map: %w", err)
		}
		fmt.Printf("[*] Label map: %s\n", cfg.LabelMapPath)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return s, fmt.Errorf("create output directory: %w", err)
	}
	tablePath := cfg.TablePath
	if tablePath == "" {
		tablePath = filepath.Join(cfg.OutputDir, patch.BaseName(cfg.SlidePath)+".csv")
	}
	layout := provenance.Layout{SubjectID: cfg.SubjectID != "", LabelMap: cfg.LabelMapPath != ""}
	if s.table, err = provenance.Open(tablePath, layout); err != nil {
		return s, fmt.Errorf("open provenance table: %w", err)
	}
	if n := len(s.table.Rows()); n > 0 {
		fmt.Printf("[*] Provenance: %s (%d earlier rows)\n", tablePath, n)
	} else {
		fmt.Printf("[*] Provenance: %s\n", tablePath)
	}
	return s, nil
}

// runConfigPath is where the effective config of a run on slidePath is kept.
func runConfigPath(outputDir, slidePath string) string {
	return filepath.Join(outputDir, patch.BaseName(slidePath)+"_run.yaml")
}

// saveRunConfig stores the effective config next to the provenance table so
// a run can be repeated with -c.
func saveRunConfig(cfg config.Run) (string, error) {
	path := runConfigPath(cfg.OutputDir, cfg.SlidePath)
	if err := config.Write(cfg, path); err != nil {
		return "", fmt.Errorf("save run config: %w", err)
	}
	return path, nil
}
