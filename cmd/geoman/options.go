package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-geoman/config"
	"github.com/goliatone/go-geoman/surface"
)

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	prefix, _ := cmd.Flags().GetString("env-prefix")
	return config.Load(path, prefix)
}

// newHost builds the in-memory map described by cfg. The returned logger must
// be synced by the caller.
func newHost(cfg config.Config) (*surface.Host, *zap.Logger, error) {
	logger, err := cfg.Logger()
	if err != nil {
		return nil, nil, err
	}
	opts, err := cfg.PMOptions(logger)
	if err != nil {
		return nil, logger, err
	}
	host := surface.NewHost(cfg.MapID, opts...)
	if cfg.Toolbar.Visible {
		host.PM.AddControls(cfg.Controls())
	}
	return host, logger, nil
}

func newOptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "Print the effective global options as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			host, logger, err := newHost(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			encoded, err := json.MarshalIndent(host.PM.GlobalOptions(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return nil
		},
	}
}

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup [path]",
		Short: "Print one option value, e.g. panes.vertexPane",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			host, logger, err := newHost(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			value, ok := host.PM.Lookup(args[0])
			if !ok {
				return fmt.Errorf("option %q is not set", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}
