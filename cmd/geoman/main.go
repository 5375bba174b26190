package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "geoman",
		Short: "Drive a headless geoman map instance",
		Long: `geoman loads map settings from a YAML file and the environment, prints the
effective options, and replays scripted drawing and editing sessions against an
in-memory map.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "YAML config file")
	root.PersistentFlags().String("env-prefix", "", "environment variable prefix (default GEOMAN_)")
	root.AddCommand(newOptionsCmd(), newLookupCmd(), newReplayCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
