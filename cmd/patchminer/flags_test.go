package main

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/ivlev/patchminer/internal/config"
)

func TestLoadRunAppliesChangedFlags(t *testing.T) {
	cmd := mineCmd()
	fs := cmd.Flags()
	for name, value := range map[string]string{
		"slide":       "slides/case-3.tiff",
		"num-patches": "12",
		"dry-run":     "true",
		"patch-size":  "64,32",
		"read-type":   "sequential",
	} {
		if err := fs.Set(name, value); err != nil {
			t.Fatalf("Set %s failed: %v", name, err)
		}
	}

	cfg, err := loadRun(cmd)
	if err != nil {
		t.Fatalf("loadRun failed: %v", err)
	}
	if cfg.SlidePath != "slides/case-3.tiff" || cfg.Quota != 12 || cfg.ReadType != "sequential" {
		t.Errorf("Flags not applied: %+v", cfg)
	}
	if cfg.SavePatches {
		t.Error("--dry-run should disable saving")
	}
	if !slices.Equal(cfg.PatchSize, []int{64, 32}) {
		t.Errorf("Expected patch size [64 32], got %v", cfg.PatchSize)
	}
	if cfg.Overlap != config.Default().Overlap || cfg.Workers <= 0 {
		t.Errorf("Unset flags should keep defaults: %+v", cfg)
	}
}

func TestSaveRunConfig(t *testing.T) {
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	cfg.SlidePath = "/data/case-3.tiff"
	cfg.Seed = 42
	cfg.Quota = 7

	path, err := saveRunConfig(cfg)
	if err != nil {
		t.Fatalf("saveRunConfig failed: %v", err)
	}
	if want := filepath.Join(cfg.OutputDir, "case-3_run.yaml"); path != want {
		t.Errorf("Expected %s, got %s", want, path)
	}

	loaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Seed != 42 || loaded.Quota != 7 || loaded.SlidePath != cfg.SlidePath {
		t.Errorf("Saved config differs: %+v", loaded)
	}
}
