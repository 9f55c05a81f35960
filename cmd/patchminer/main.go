package main

import (
	"log"

	"github.com/spf13/cobra"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "patchminer",
		Short:   "Mine fixed-size patches from whole-slide images",
		Version: version,
		Long: `patchminer cuts fixed-size patches out of large slide images.

It samples coordinates from an eligibility mask, keeps accepted patches from
overlapping, validates and saves them in parallel, optionally pairs each patch
with a label-map patch and records every accepted patch in a provenance table.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(mineCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(overlayCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("[-] %v", err)
	}
}
