// Package miner drives a mining run: it samples a batch of coordinates,
// extracts it in parallel, couples label patches, records provenance and
// repeats until the quota is met or the slide is saturated.
package miner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/ivlev/patchminer/internal/config"
	"github.com/ivlev/patchminer/internal/coords"
	"github.com/ivlev/patchminer/internal/extractor"
	"github.com/ivlev/patchminer/internal/grid"
	"github.com/ivlev/patchminer/internal/labelmap"
	"github.com/ivlev/patchminer/internal/patch"
	"github.com/ivlev/patchminer/internal/provenance"
	"github.com/ivlev/patchminer/internal/sampler"
	"github.com/ivlev/patchminer/internal/slide"
	"github.com/ivlev/patchminer/internal/system"
	"github.com/ivlev/patchminer/internal/validity"
)

// Inputs are the collaborators of a run. Grid may be nil for unconstrained
// sampling and Labels may be nil when there is no label map.
type Inputs struct {
	Slide    slide.Slide
	Labels   slide.Slide
	Grid     *grid.Eligibility
	Table    provenance.Table
	Pipeline *validity.Pipeline
}

// Controller owns the grids of one run. It is not safe for concurrent use
// and must not be reused for a second run.
type Controller struct {
	cfg   config.Run
	slide slide.Slide

	eligible *grid.Eligibility
	visited  *grid.Visited
	selector *sampler.Selector
	excluder *sampler.Excluder

	extractor *extractor.Extractor
	coupler   *labelmap.Coupler
	table     provenance.Table

	state State
}

// New validates cfg and wires the sampling and extraction stages.
func New(cfg config.Run, in Inputs) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if in.Slide == nil || in.Table == nil {
		return nil, fmt.Errorf("%w: a slide and a provenance table are required", config.ErrInvalid)
	}
	if in.Grid == nil && cfg.Unbounded() {
		return nil, fmt.Errorf("%w: num_patches -1 needs an eligibility grid", config.ErrInvalid)
	}
	cfg = cfg.Clone()
	if cfg.Workers == 0 {
		cfg.Workers = system.DefaultWorkers()
	}

	c := &Controller{
		cfg:      cfg,
		slide:    in.Slide,
		eligible: in.Grid,
		table:    in.Table,
	}

	if in.Grid != nil {
		c.visited = grid.NewVisited(in.Grid.Geometry)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	var err error
	c.selector, err = sampler.NewSelector(in.Grid, cfg.Policy(), in.Slide.Dimensions(), rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	c.excluder, err = sampler.NewExcluder(in.Grid, c.visited, cfg.Footprint(), cfg.Overlap)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}

	c.extractor, err = extractor.New(in.Slide, c.extractOptions(in.Pipeline))
	if err != nil {
		return nil, err
	}
	if in.Labels != nil {
		c.coupler, err = labelmap.NewCoupler(in.Slide, in.Labels, c.extractOptions(nil), cfg.ValueMap)
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Controller) extractOptions(p *validity.Pipeline) extractor.Options {
	return extractor.Options{
		Workers:   c.cfg.Workers,
		OutputDir: c.cfg.OutputDir,
		DryRun:    c.cfg.DryRun(),
		Pipeline:  p,
	}
}

// State is the current step of the loop.
func (c *Controller) State() State { return c.state }

// Eligible is the eligibility grid, nil for unconstrained runs.
func (c *Controller) Eligible() *grid.Eligibility { return c.eligible }

// Visited is the visited grid, nil for unconstrained runs.
func (c *Controller) Visited() *grid.Visited { return c.visited }

// PatchDir is where slide patches are written.
func (c *Controller) PatchDir() string { return c.extractor.Dir() }

// Run mines until the quota is met or no placement is left. Per-candidate
// failures are counted as rejections; only provenance and setup errors
// abort the run. A cancelled ctx stops the loop after the current batch.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	res := Result{Slide: c.slide.Path(), Quota: c.cfg.Quota}

	for {
		c.state = Sampling
		batch, saturated := c.sample(res.Accepted)

		c.state = Extracting
		outcomes := c.extractor.Run(ctx, batch)
		var twins []patch.Outcome
		if c.coupler != nil {
			twins = c.coupler.Couple(ctx, outcomes)
		}

		c.state = Tallying
		if err := c.tally(&res, outcomes, twins); err != nil {
			return res, err
		}

		switch {
		case saturated:
			c.state = Saturated
		case !c.cfg.Unbounded() && res.Accepted >= c.cfg.Quota:
			c.state = QuotaMet
		}
		if c.state.Terminal() {
			break
		}
		if err := ctx.Err(); err != nil {
			res.State = c.state
			return res, err
		}
	}

	res.State = c.state
	if c.state == Saturated {
		fmt.Println("[!] Slide has reached saturation: no more non-overlapping patches to be found")
	}
	if err := c.exportCoordinates(&res); err != nil {
		return res, err
	}
	return res, nil
}

// sample builds the next batch, reserving every coordinate before the next
// one is drawn. saturated is true when selection failed before the batch
// was full.
func (c *Controller) sample(accepted int) (batch []patch.Candidate, saturated bool) {
	limit := -1
	if !c.cfg.Unbounded() {
		limit = c.cfg.Quota - accepted
	}
	if c.cfg.BatchLimit > 0 && (limit < 0 || c.cfg.BatchLimit < limit) {
		limit = c.cfg.BatchLimit
	}

	for limit < 0 || len(batch) < limit {
		p, err := c.selector.Next()
		if err == nil {
			err = c.excluder.Reserve(p)
		}
		if err != nil {
			if !errors.Is(err, sampler.ErrExhausted) {
				log.Printf("[!] Could not place patch: %v", err)
			}
			return batch, true
		}
		batch = append(batch, patch.Candidate{
			TopLeft: p.Point,
			Level:   c.cfg.Level,
			Size:    c.cfg.Size(),
			Source:  patch.SourceSlide,
		})
	}
	return batch, false
}

// tally records one provenance row per accepted slide outcome. twins holds
// the label outcomes of the accepted slide outcomes, in the same order.
func (c *Controller) tally(res *Result, outcomes, twins []patch.Outcome) error {
	var rows []provenance.Row
	report := BatchReport{Index: len(res.Batches) + 1, Attempted: len(outcomes)}

	for _, o := range outcomes {
		switch {
		case o.Accepted:
		case o.Err != nil:
			report.Failed++
			continue
		default:
			report.Rejected++
			continue
		}

		row := provenance.Row{SubjectID: c.cfg.SubjectID, SlidePatchPath: o.Path}
		if c.coupler != nil {
			tw := twins[len(rows)]
			if tw.Accepted {
				row.LabelPatchPath = tw.Path
				row.Composition = labelmap.Format(tw.Proportions)
			} else {
				log.Printf("[!] Label patch at %v failed: %v", tw.Candidate.TopLeft, tw.Err)
			}
		}
		rows = append(rows, row)
		res.Coordinates = append(res.Coordinates, o.Candidate.TopLeft)
	}

	if len(rows) > 0 {
		if err := c.table.Append(rows...); err != nil {
			return fmt.Errorf("record provenance: %w", err)
		}
	}

	report.Accepted = len(rows)
	res.add(report)
	fmt.Printf("[>] Batch %d: %d/%d valid patches (total %d)\n",
		report.Index, report.Accepted, report.Attempted, res.Accepted)
	return nil
}

// CoordinatesPath is where accepted coordinates of a slide are exported.
func CoordinatesPath(outputDir, slidePath string) string {
	return filepath.Join(outputDir, patch.BaseName(slidePath)+"XYPatchCoordinates.csv")
}

func (c *Controller) exportCoordinates(res *Result) error {
	if err := os.MkdirAll(c.cfg.OutputDir, 0755); err != nil {
		return err
	}
	res.CoordinatesFile = CoordinatesPath(c.cfg.OutputDir, c.slide.Path())
	if err := coords.Write(res.CoordinatesFile, res.Coordinates); err != nil {
		return fmt.Errorf("export coordinates: %w", err)
	}
	return nil
}
