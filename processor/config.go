// Package processor defines the file processor configuration: a TOML
// document stored next to the staging directories it controls. A config
// names the files it claims (glob), where they move through the pipeline
// (staging directories), and the handler that processes them (a shell
// command or a registered in-process handler).
package processor

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gobwas/glob"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig is wrapped by every parse or validation failure.
// Callers check it with errors.Is.
var ErrInvalidConfig = errors.New("invalid processor config")

// Staging directory defaults.
const (
	DefaultInboxDirectory      = "inbox"
	DefaultProcessingDirectory = "processing"
	DefaultArchiveDirectory    = "archive"
	DefaultErrorDirectory      = "error"
)

// DefaultCallable is the handler entry point used when a [python] table
// does not name one.
const DefaultCallable = "run"

// ConfigSuffix marks processor config documents in the bucket. Objects
// whose key ends in it are treated as configs, everything else as data.
const ConfigSuffix = ".toml"

// Config is a parsed and validated processor configuration. Exactly one of
// Shell and Python is set.
type Config struct {
	// Enabled gates registration. A disabled config parses cleanly but is
	// never routed to.
	Enabled bool
	// Staging directory names, resolved relative to the config's parent.
	InboxDirectory      string
	ProcessingDirectory string
	ArchiveDirectory    string
	ErrorDirectory      string
	// Glob selects data files by basename.
	Glob string
	// SaveErrorLog uploads captured handler output next to failed files.
	SaveErrorLog bool
	// Shell is the command run via /bin/bash -c, empty when Python is set.
	Shell string
	// Python selects a registered in-process handler, nil when Shell is set.
	Python *PythonHandler

	pattern glob.Glob
}

// PythonHandler selects a registered in-process handler by name.
type PythonHandler struct {
	// Module is the registered handler name.
	Module string
	// Callable is the entry point within the handler, "run" by default.
	Callable string
	// SupportsPizzaTracker passes the progress pipe to the handler.
	SupportsPizzaTracker bool
	// SupportsMetadata passes the object metadata to the handler.
	SupportsMetadata bool
}

// document mirrors the TOML schema. Pointer fields distinguish absent keys
// from zero values so defaults apply only when a key is missing.
type document struct {
	Enabled             *bool           `toml:"enabled"`
	InboxDirectory      *string         `toml:"inbox_directory"`
	ProcessingDirectory *string         `toml:"processing_directory"`
	ArchiveDirectory    *string         `toml:"archive_directory"`
	ErrorDirectory      *string         `toml:"error_directory"`
	Glob                *string         `toml:"glob"`
	SaveErrorLog        *bool           `toml:"save_error_log"`
	Shell               *string         `toml:"shell"`
	Python              *pythonDocument `toml:"python"`
}

type pythonDocument struct {
	Module               *string `toml:"module"`
	Callable             *string `toml:"callable"`
	SupportsPizzaTracker *bool   `toml:"supports_pizza_tracker"`
	SupportsMetadata     *bool   `toml:"supports_metadata"`
}

// Parse decodes and validates a processor config document. Unknown keys,
// type mismatches, a missing glob, an uncompilable glob, and any handler
// combination other than exactly one are all rejected; every failure wraps
// ErrInvalidConfig.
func Parse(data []byte) (*Config, error) {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg := &Config{
		Enabled:             true,
		InboxDirectory:      DefaultInboxDirectory,
		ProcessingDirectory: DefaultProcessingDirectory,
		ArchiveDirectory:    DefaultArchiveDirectory,
		ErrorDirectory:      DefaultErrorDirectory,
	}
	if doc.Enabled != nil {
		cfg.Enabled = *doc.Enabled
	}
	if doc.InboxDirectory != nil {
		cfg.InboxDirectory = *doc.InboxDirectory
	}
	if doc.ProcessingDirectory != nil {
		cfg.ProcessingDirectory = *doc.ProcessingDirectory
	}
	if doc.ArchiveDirectory != nil {
		cfg.ArchiveDirectory = *doc.ArchiveDirectory
	}
	if doc.ErrorDirectory != nil {
		cfg.ErrorDirectory = *doc.ErrorDirectory
	}
	if doc.SaveErrorLog != nil {
		cfg.SaveErrorLog = *doc.SaveErrorLog
	}

	if doc.Glob == nil {
		return nil, fmt.Errorf("%w: glob is required", ErrInvalidConfig)
	}
	cfg.Glob = *doc.Glob

	pattern, err := glob.Compile(cfg.Glob)
	if err != nil {
		return nil, fmt.Errorf("%w: glob %q: %v", ErrInvalidConfig, cfg.Glob, err)
	}
	cfg.pattern = pattern

	// An empty shell string counts as unset.
	hasShell := doc.Shell != nil && *doc.Shell != ""
	hasPython := doc.Python != nil

	switch {
	case hasShell && hasPython:
		return nil, fmt.Errorf("%w: shell and python are mutually exclusive", ErrInvalidConfig)
	case !hasShell && !hasPython:
		return nil, fmt.Errorf("%w: one of shell or python is required", ErrInvalidConfig)
	case hasShell:
		cfg.Shell = *doc.Shell
	default:
		py, err := resolvePython(doc.Python)
		if err != nil {
			return nil, err
		}
		cfg.Python = py
	}

	return cfg, nil
}

func resolvePython(doc *pythonDocument) (*PythonHandler, error) {
	if doc.Module == nil || *doc.Module == "" {
		return nil, fmt.Errorf("%w: python.module is required", ErrInvalidConfig)
	}

	py := &PythonHandler{
		Module:   *doc.Module,
		Callable: DefaultCallable,
	}
	if doc.Callable != nil {
		py.Callable = *doc.Callable
	}
	if doc.SupportsPizzaTracker != nil {
		py.SupportsPizzaTracker = *doc.SupportsPizzaTracker
	}
	if doc.SupportsMetadata != nil {
		py.SupportsMetadata = *doc.SupportsMetadata
	}
	return py, nil
}

// HandlerLabel names the handler for logs and counters: "shell" for shell
// configs, the handler name for in-process configs.
func (c *Config) HandlerLabel() string {
	if c.Shell != "" {
		return "shell"
	}
	if c.Python != nil {
		return c.Python.Module
	}
	return ""
}
