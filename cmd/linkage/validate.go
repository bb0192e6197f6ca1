package main

import (
	"fmt"

	"github.com/spf13/cobra"

	recordlinkage "github.com/baditaflorin/go_record_linkage"
	"github.com/baditaflorin/go_record_linkage/internal/config"
)

func newValidateCmd() *cobra.Command {
	var manifestPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a manifest without touching any data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(manifestPath)
			if err != nil {
				return err
			}
			// Constructing the engine exercises the full schema and
			// comparison validation, not just the manifest shape.
			if _, err := recordlinkage.New(cfg.EngineOptions()...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"%s is valid: %d blocking rule(s), %d training rule(s), %d comparison(s)\n",
				manifestPath, len(cfg.BlockingRules), len(cfg.TrainingRules), len(cfg.Comparisons))
			return nil
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "config", "c", "linkage.toml", "path to the run manifest")
	return cmd
}
