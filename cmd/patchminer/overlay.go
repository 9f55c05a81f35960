package main

import (
	"fmt"
	"image"

	"github.com/spf13/cobra"

	"github.com/ivlev/patchminer/internal/config"
	"github.com/ivlev/patchminer/internal/coords"
	"github.com/ivlev/patchminer/internal/grid"
	"github.com/ivlev/patchminer/internal/miner"
	"github.com/ivlev/patchminer/internal/overlay"
	"github.com/ivlev/patchminer/internal/patch"
	"github.com/ivlev/patchminer/internal/slide"
)

func overlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overlay",
		Short: "Draw the eligibility mask and mined patches over a thumbnail",
		Long: `Render a slide thumbnail with ineligible cells dimmed. With --coords the
footprints of the listed patches are tinted as mined.

Examples:
  patchminer overlay --slide slide.tiff --mask mask.png --out overlay.png
  patchminer overlay --slide slide.tiff --coords output/slideXYPatchCoordinates.csv`,
		Args: cobra.NoArgs,
		RunE: runOverlay,
	}
	cmd.Flags().StringP("config", "c", "", "YAML run config; flags override its values")
	cmd.Flags().String("slide", "", "slide image or document")
	cmd.Flags().String("mask", "", "eligibility mask image")
	cmd.Flags().Float64("scale", config.Default().Scale, "grid scale without a mask")
	cmd.Flags().IntSlice("patch-size", config.Default().PatchSize, "patch width,height")
	cmd.Flags().Int("level", 0, "pyramid level the patches were read at")
	cmd.Flags().Int("dpi", config.Default().DPI, "render resolution for document slides")
	cmd.Flags().String("coords", "", "coordinates of mined patches")
	cmd.Flags().String("out", "", "output PNG (default <slide>_overlay.png)")
	cmd.Flags().Int("max-side", overlaySide, "longest side of the overlay in pixels")
	return cmd
}

func runOverlay(cmd *cobra.Command, _ []string) error {
	cfg, err := loadRun(cmd)
	if err != nil {
		return err
	}
	if cfg.MaskPath == "" && cfg.Scale <= 0 {
		return fmt.Errorf("%w: overlay needs --mask or a positive --scale", config.ErrInvalid)
	}

	s, err := slide.Open(cfg.SlidePath, cfg.DPI)
	if err != nil {
		return fmt.Errorf("open slide: %w", err)
	}
	defer s.Close()

	eligible, err := miner.BuildGrid(cfg, s.Dimensions())
	if err != nil {
		return err
	}

	var visited *grid.Visited
	if path, _ := cmd.Flags().GetString("coords"); path != "" {
		pts, err := coords.Read(path)
		if err != nil {
			return err
		}
		visited = grid.NewVisited(eligible.Geometry)
		footprint := cfg.Footprint()
		for _, p := range pts {
			visited.Mark(image.Rectangle{Min: p, Max: p.Add(footprint)})
		}
		fmt.Printf("[*] %d mined patches from %s\n", len(pts), path)
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = patch.BaseName(cfg.SlidePath) + "_overlay.png"
	}
	maxSide, _ := cmd.Flags().GetInt("max-side")
	if err := overlay.Write(out, s, eligible, visited, maxSide); err != nil {
		return err
	}
	fmt.Printf("[+] Overlay: %s\n", out)
	return nil
}
