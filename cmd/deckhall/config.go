// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration serve would run with, after merging defaults,
the config file, environment and flags. Credentials in URLs are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			if _, err := cmd.OutOrStdout().Write(out); err != nil {
				return oops.Code("OUTPUT_FAILED").Wrap(err)
			}
			return nil
		},
	}

	registerConfigFlags(cmd)
	return cmd
}
