// Package config holds the immutable parameters of one mining run.
package config

import (
	"errors"
	"fmt"
	"image"
	"maps"
	"math"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/patchminer/internal/sampler"
	"github.com/ivlev/patchminer/internal/slide"
)

// ErrInvalid marks configuration errors. They are fatal before any mining
// begins.
var ErrInvalid = errors.New("invalid configuration")

// Exhaustion as a quota mines until the slide saturates.
const Exhaustion = -1

// Run is the full parameter set of a mining run. It is passed by value;
// Clone must be used before handing the maps or slices to another owner.
type Run struct {
	SlidePath    string `yaml:"slide_path"`
	MaskPath     string `yaml:"mask_path"`
	LabelMapPath string `yaml:"label_map_path"`
	OutputDir    string `yaml:"output_dir"`
	TablePath    string `yaml:"table_path"` // default: <output_dir>/<slide>.csv
	SubjectID    string `yaml:"subject_id"`
	DPI          int    `yaml:"dpi"`

	PatchSize   []int   `yaml:"patch_size"`
	Overlap     float64 `yaml:"overlap_factor"`
	ReadType    string  `yaml:"read_type"`
	Workers     int     `yaml:"num_workers"`
	Quota       int     `yaml:"num_patches"`
	SavePatches bool    `yaml:"save_patches"`
	Scale       float64 `yaml:"scale"` // slide pixels per grid cell when no mask is given; 0 = unconstrained
	Level       int     `yaml:"level"`
	BatchLimit  int     `yaml:"batch_limit"` // 0 = no limit
	Seed        int64   `yaml:"seed"`        // 0 = time seeded

	ValueMap           map[uint32]uint32 `yaml:"value_map"`
	Predicates         []string          `yaml:"predicates"`
	SharpnessThreshold float64           `yaml:"sharpness_threshold"`
}

// Default returns the parameters used for keys a config file omits.
func Default() Run {
	return Run{
		OutputDir:   "output",
		DPI:         150,
		PatchSize:   []int{256, 256},
		ReadType:    string(sampler.Random),
		Quota:       Exhaustion,
		SavePatches: true,
		Scale:       8,
		Predicates:  []string{"alpha", "size"},
	}
}

// Load reads a YAML config file on top of Default.
func Load(path string) (Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Run{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Run{}, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	return cfg.Clone(), nil
}

// Write stores cfg as YAML.
func Write(cfg Run, path string) error {
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a copy that shares no maps or slices with r.
func (r Run) Clone() Run {
	r.PatchSize = slices.Clone(r.PatchSize)
	r.Predicates = slices.Clone(r.Predicates)
	if r.ValueMap != nil {
		r.ValueMap = maps.Clone(r.ValueMap)
	}
	return r
}

// Size is the patch size in pixels at the configured level.
func (r Run) Size() image.Point {
	if len(r.PatchSize) != 2 {
		return image.Point{}
	}
	return image.Pt(r.PatchSize[0], r.PatchSize[1])
}

// Footprint is the patch extent in level-0 slide pixels.
func (r Run) Footprint() image.Point {
	return r.Size().Mul(1 << r.Level)
}

// DryRun reports whether patches are validated without being written.
func (r Run) DryRun() bool { return !r.SavePatches }

// Unbounded reports whether the run mines until saturation.
func (r Run) Unbounded() bool { return r.Quota == Exhaustion }

// Unconstrained reports whether coordinates are drawn without any grid.
func (r Run) Unconstrained() bool { return r.MaskPath == "" && r.Scale == 0 }

// Policy returns the parsed read type.
func (r Run) Policy() sampler.Policy {
	p, _ := sampler.ParsePolicy(r.ReadType)
	return p
}

// Validate checks every mining parameter and reports all problems at once.
// Slide paths are checked by ValidatePaths, since predefined-coordinate
// runs need fewer of them.
func (r Run) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(r.PatchSize) != 2 {
		add("patch_size must be [width, height], got %v", r.PatchSize)
	} else if r.PatchSize[0] <= 0 || r.PatchSize[1] <= 0 {
		add("patch_size must be positive, got %v", r.PatchSize)
	}
	if math.IsNaN(r.Overlap) || r.Overlap < 0 || r.Overlap > 1 {
		add("overlap_factor must be in [0,1], got %v", r.Overlap)
	}
	if _, err := sampler.ParsePolicy(r.ReadType); err != nil {
		add("%v", err)
	}
	if r.Workers < 0 {
		add("num_workers must not be negative, got %d", r.Workers)
	}
	if r.Quota == 0 || r.Quota < Exhaustion {
		add("num_patches must be positive or -1, got %d", r.Quota)
	}
	if r.Scale < 0 || math.IsNaN(r.Scale) || math.IsInf(r.Scale, 0) {
		add("scale must be a positive number or 0, got %v", r.Scale)
	}
	if r.Level < 0 || r.Level > slide.MaxLevel {
		add("level must be in [0,%d], got %d", slide.MaxLevel, r.Level)
	}
	if r.BatchLimit < 0 {
		add("batch_limit must not be negative, got %d", r.BatchLimit)
	}
	if r.Unconstrained() && r.Unbounded() {
		add("num_patches -1 needs a mask or a scale: unconstrained sampling never saturates")
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}

// ValidatePaths checks that the slide and any optional inputs exist.
func (r Run) ValidatePaths() error {
	if r.SlidePath == "" {
		return fmt.Errorf("%w: slide_path is required", ErrInvalid)
	}
	for _, p := range []string{r.SlidePath, r.MaskPath, r.LabelMapPath} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	if r.OutputDir == "" {
		return fmt.Errorf("%w: output_dir is required", ErrInvalid)
	}
	return nil
}
