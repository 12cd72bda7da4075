// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/deckhall/deckhall/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Deckhall CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deckhall",
		Short: "Deckhall - deck building and game lobby server",
		Long: `Deckhall serves the deck-building web client: accounts and sessions,
per-user deck storage, and a live lobby of open games.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/deckhall/config.yaml)")

	cmd.AddCommand(NewServeCmd(nil))
	cmd.AddCommand(NewMigrateCmd(nil))
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

func registerConfigFlags(cmd *cobra.Command) {
	config.RegisterFlags(cmd.Flags())
}

// loadConfig reads the effective configuration for a command whose flags
// were registered with config.RegisterFlags.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	return config.Load(configFile, flags)
}
