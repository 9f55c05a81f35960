package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ivlev/patchminer/internal/coords"
	"github.com/ivlev/patchminer/internal/miner"
	"github.com/ivlev/patchminer/internal/overlay"
	"github.com/ivlev/patchminer/internal/patch"
	"github.com/ivlev/patchminer/internal/system"
	"github.com/ivlev/patchminer/internal/validity"
)

const overlaySide = 2048

func mineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Sample, validate and save patches until the quota or saturation",
		Long: `Mine patches from a slide.

Coordinates are drawn from the mask (or a full grid at --scale) and every
accepted patch excludes its surroundings according to --overlap. Batches are
extracted in parallel and each accepted patch is appended to the provenance
table, so repeated runs against the same table add rows.

Examples:
  patchminer mine --slide slide.tiff --mask mask.png -n 1000
  patchminer mine -c run.yaml --label-map labels.png --overlay
  patchminer mine --slide slide.png --read-type sequential -n -1 --dry-run`,
		Args: cobra.NoArgs,
		RunE: runMine,
	}
	addRunFlags(cmd.Flags())
	cmd.Flags().Bool("overlay", false, "write an overlay of the mined area next to the patches")
	return cmd
}

func runMine(cmd *cobra.Command, _ []string) error {
	cfg, err := loadRun(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.ValidatePaths(); err != nil {
		return err
	}

	system.InitResourceLimits()
	fmt.Println("--- [PATCH MINER] ---")
	fmt.Printf("[*] Workers: %d | %s\n", cfg.Workers, system.MemoryReport())

	s, err := openSession(cfg)
	defer s.Close()
	if err != nil {
		return err
	}

	if path, err := saveRunConfig(cfg); err != nil {
		log.Printf("[!] %v", err)
	} else {
		fmt.Printf("[*] Run config: %s\n", path)
	}

	eligible, err := miner.BuildGrid(cfg, s.slide.Dimensions())
	if err != nil {
		return err
	}
	if eligible != nil {
		fmt.Printf("[*] Grid: %dx%d cells, %d eligible\n", eligible.Width(), eligible.Height(), eligible.Remaining())
	} else {
		fmt.Println("[*] No mask: sampling the whole slide")
	}

	size := cfg.Size()
	pipeline, err := validity.FromNames(cfg.Predicates, validity.Options{
		Width:              size.X,
		Height:             size.Y,
		SharpnessThreshold: cfg.SharpnessThreshold,
	})
	if err != nil {
		return err
	}

	c, err := miner.New(cfg, miner.Inputs{
		Slide:    s.slide,
		Labels:   s.labels,
		Grid:     eligible,
		Table:    s.table,
		Pipeline: pipeline,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	res, err := c.Run(ctx)
	printSummary(c.Summarize(res))
	if err != nil {
		return err
	}

	if withOverlay, _ := cmd.Flags().GetBool("overlay"); withOverlay && c.Eligible() != nil {
		path := filepath.Join(cfg.OutputDir, patch.BaseName(cfg.SlidePath)+"_overlay.png")
		if err := overlay.Write(path, s.slide, c.Eligible(), c.Visited(), overlaySide); err != nil {
			return fmt.Errorf("write overlay: %w", err)
		}
		fmt.Printf("[*] Overlay: %s\n", path)
	}
	return nil
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract COORDINATES",
		Short: "Extract patches at predefined x,y coordinates",
		Long: `Extract patches at the coordinates listed in a file, one "x,y" per line,
such as the XYPatchCoordinates.csv written by mine. Patches are not validated
and malformed lines are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: runExtract,
	}
	addRunFlags(cmd.Flags())
	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadRun(cmd)
	if err != nil {
		return err
	}
	pts, err := coords.Read(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("[*] %d coordinates from %s\n", len(pts), args[0])
	if len(pts) > 0 {
		cfg.Quota = len(pts)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.ValidatePaths(); err != nil {
		return err
	}

	system.InitResourceLimits()

	s, err := openSession(cfg)
	defer s.Close()
	if err != nil {
		return err
	}

	c, err := miner.New(cfg, miner.Inputs{Slide: s.slide, Labels: s.labels, Table: s.table})
	if err != nil {
		return err
	}

	res, err := c.Extract(cmd.Context(), pts)
	if err != nil {
		return err
	}
	printSummary(c.Summarize(res))
	return nil
}

func printSummary(s miner.Summary) {
	label := color.New(color.FgCyan, color.Bold)
	state := color.New(color.FgGreen, color.Bold)
	if s.State != miner.QuotaMet {
		state = color.New(color.FgYellow, color.Bold)
	}

	fmt.Println("--- [RUN SUMMARY] ---")
	for _, line := range s.Lines() {
		value := line[1]
		if line[0] == "State" {
			value = state.Sprint(value)
		}
		fmt.Printf("%s %s\n", label.Sprintf("%-15s", line[0]+":"), value)
	}
	fmt.Println("---------------------")

	if s.Accepted > 0 {
		color.Green("[+] %d patches recorded", s.Accepted)
	} else {
		color.Yellow("[!] No patches accepted")
	}
}
