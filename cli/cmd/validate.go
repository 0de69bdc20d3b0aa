package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/cast-iron/crucible/handler"
	"github.com/cast-iron/crucible/processor"
)

// ValidateCommand returns the validate command. It parses processor config
// files the same way the worker does on a config put, so a document that
// passes here will register cleanly.
func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate processor config files and print their resolved settings",
		ArgsUsage: "FILE [FILE ...]",
		Action:    validateAction,
	}
}

func validateAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("validate requires at least one config file", exitConfigError)
	}

	handlers := handler.Defaults()

	failed := 0
	for _, path := range c.Args().Slice() {
		body, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("%s: %v\n", path, err)
			failed++
			continue
		}

		cfg, err := processor.Parse(body)
		if err != nil {
			fmt.Printf("%s: %v\n", path, err)
			failed++
			continue
		}

		if cfg.Python != nil {
			if _, ok := handlers.Resolve(cfg.Python.Module, cfg.Python.Callable); !ok {
				fmt.Printf("%s: no handler registered for %s.%s\n", path, cfg.Python.Module, cfg.Python.Callable)
				failed++
				continue
			}
		}

		printConfig(path, cfg)
	}

	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d configs invalid", failed, c.NArg()), exitConfigError)
	}
	return nil
}

func printConfig(path string, cfg *processor.Config) {
	fmt.Printf("%s: valid\n", path)
	fmt.Printf("  enabled:   %t\n", cfg.Enabled)
	fmt.Printf("  glob:      %s\n", cfg.Glob)
	fmt.Printf("  handler:   %s\n", describeHandler(cfg))
	fmt.Printf("  staging:   %s -> %s -> %s | %s\n",
		cfg.InboxDirectory, cfg.ProcessingDirectory, cfg.ArchiveDirectory, cfg.ErrorDirectory)
	fmt.Printf("  save log:  %t\n", cfg.SaveErrorLog)
}

func describeHandler(cfg *processor.Config) string {
	if cfg.Shell != "" {
		return "shell: " + cfg.Shell
	}
	if cfg.Python != nil {
		s := fmt.Sprintf("in-process: %s.%s", cfg.Python.Module, cfg.Python.Callable)
		if cfg.Python.SupportsPizzaTracker {
			s += " +tracker"
		}
		if cfg.Python.SupportsMetadata {
			s += " +metadata"
		}
		return s
	}
	return "none"
}
