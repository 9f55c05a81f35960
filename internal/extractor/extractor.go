// Package extractor reads, validates and stores batches of patches in
// parallel.
package extractor

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/patchminer/internal/patch"
	"github.com/ivlev/patchminer/internal/system"
	"github.com/ivlev/patchminer/internal/validity"
)

// Reader is the part of a slide the extractor needs.
type Reader interface {
	Path() string
	ReadRegion(topLeft image.Point, level int, size image.Point) (image.Image, error)
}

// Processor derives a summary from an accepted patch before its buffer is
// released.
type Processor func(img image.Image) patch.Proportions

// Options configures an Extractor.
type Options struct {
	Workers   int
	OutputDir string // patches go to OutputDir/<slide base name>/
	DryRun    bool
	Pipeline  *validity.Pipeline // nil disables validation
	Process   Processor
}

// Extractor runs one batch at a time over a bounded worker pool. Tasks
// share nothing but the read-only slide handle.
type Extractor struct {
	src     Reader
	opts    Options
	base    string
	dir     string
	encoder png.Encoder
}

// New prepares an extractor for src and creates its output directory
// unless this is a dry run.
func New(src Reader, opts Options) (*Extractor, error) {
	if src == nil {
		return nil, fmt.Errorf("nil slide")
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	base := patch.BaseName(src.Path())
	dir := filepath.Join(opts.OutputDir, base)
	if !opts.DryRun {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create patch directory: %w", err)
		}
	}

	return &Extractor{
		src:     src,
		opts:    opts,
		base:    base,
		dir:     dir,
		encoder: png.Encoder{CompressionLevel: png.BestSpeed},
	}, nil
}

// Dir is where accepted patches are written.
func (e *Extractor) Dir() string { return e.dir }

// PathFor is the file a candidate is persisted to.
func (e *Extractor) PathFor(c patch.Candidate) string {
	return filepath.Join(e.dir, patch.FileName(e.base, c))
}

// Run extracts every candidate and returns one outcome per candidate, in
// input order. It returns only after every task has finished. A failing
// candidate never stops its siblings; tasks not yet started when ctx is
// cancelled are reported as failed.
func (e *Extractor) Run(ctx context.Context, candidates []patch.Candidate) []patch.Outcome {
	outcomes := make([]patch.Outcome, len(candidates))

	var g errgroup.Group
	g.SetLimit(e.opts.Workers)

	for i, c := range candidates {
		g.Go(func() error {
			outcomes[i] = e.extract(ctx, c)
			return nil
		})
	}
	g.Wait()

	return outcomes
}

func (e *Extractor) extract(ctx context.Context, c patch.Candidate) patch.Outcome {
	out := patch.Outcome{Candidate: c, Path: e.PathFor(c)}
	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	img, err := e.src.ReadRegion(c.TopLeft, c.Level, c.Size)
	if err != nil {
		out.Err = fmt.Errorf("read %v: %w", c.TopLeft, err)
		return out
	}
	defer release(img)

	if ok, failed := e.opts.Pipeline.Validate(img); !ok {
		out.Rejected = failed
		return out
	}

	if !e.opts.DryRun {
		if err := e.write(out.Path, img); err != nil {
			log.Printf("[!] Could not save patch %s: %v", filepath.Base(out.Path), err)
			out.Err = err
			return out
		}
	}

	if e.opts.Process != nil {
		out.Proportions = e.opts.Process(img)
	}
	out.Accepted = true
	return out
}

func (e *Extractor) write(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := e.encoder.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

func release(img image.Image) {
	if rgba, ok := img.(*image.RGBA); ok {
		system.PutImage(rgba)
	}
}
