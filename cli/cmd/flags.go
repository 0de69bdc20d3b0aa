// Package cmd provides CLI commands for the crucible binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags.
var (
	// ConfigFlag points at an optional YAML settings file. Without it,
	// settings come from the environment with local-stack defaults.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to YAML settings file (default: environment only)",
		EnvVars: []string{"CRUCIBLE_CONFIG"},
	}
)
