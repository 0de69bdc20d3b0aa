package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/cast-iron/crucible/handler"
	"github.com/cast-iron/crucible/log"
	"github.com/cast-iron/crucible/processor"
)

// runShell launches the config's command through bash and polls it to
// completion, draining the tracker pipe on every tick and once more
// after exit. Success is exit code zero.
func (e *EventProcessor) runShell(ctx context.Context, logger *log.Logger, cfg *processor.Config, job *jobScope) bool {
	metadataJSON, err := json.Marshal(job.metadata)
	if err != nil {
		logger.Error("encode metadata failed", map[string]any{"error": err.Error()})
		return false
	}

	cmd := exec.CommandContext(ctx, "/bin/bash", "-c", cfg.Shell)
	// The child sees only the handler contract, nothing inherited from
	// the worker's own environment.
	cmd.Env = []string{
		"DATABASE_HOST=" + e.database.Host,
		"DATABASE_PASSWORD=" + e.database.Password,
		fmt.Sprintf("DATABASE_PORT=%d", e.database.Port),
		"DATABASE_TABLE=" + e.database.Table,
		"DATABASE_USER=" + e.database.User,
		"ETL_FILENAME=" + job.dataFile,
		"ETL_FILE_METADATA=" + string(metadataJSON),
		"PIZZA_TRACKER=" + job.tracker.Path(),
	}
	if cfg.SaveErrorLog {
		cmd.Stdout = job.logFile
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		logger.Error("start shell failed", map[string]any{"error": err.Error()})
		return false
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			// One last drain catches lines written right before exit.
			job.tracker.Drain(ctx)
			return e.shellOutcome(logger, err)
		case <-ticker.C:
			job.tracker.Drain(ctx)
		}
	}
}

func (e *EventProcessor) shellOutcome(logger *log.Logger, err error) bool {
	if err == nil {
		return true
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode := -1
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			exitCode = status.ExitStatus()
		}
		logger.Warn("shell exited nonzero", map[string]any{"exit_code": exitCode})
		return false
	}

	logger.Error("shell wait failed", map[string]any{"error": err.Error()})
	return false
}

// runInProcess resolves and invokes a registered handler, polling the
// tracker pipe while it runs so in-process handlers report progress the
// same way shell handlers do. Errors and panics are written to the
// output log as a diagnostic and reported as failure.
func (e *EventProcessor) runInProcess(ctx context.Context, logger *log.Logger, cfg *processor.Config, job *jobScope) bool {
	fn, ok := e.handlers.Resolve(cfg.Python.Module, cfg.Python.Callable)
	if !ok {
		// Registration validates resolution, so this only trips when the
		// registry changed between registration and execution.
		fmt.Fprintf(job.logFile, "handler %s.%s is not registered\n", cfg.Python.Module, cfg.Python.Callable)
		logger.Error("in-process handler missing", map[string]any{
			"module":   cfg.Python.Module,
			"callable": cfg.Python.Callable,
		})
		return false
	}

	req := &handler.Request{DataFile: job.dataFile}
	if cfg.Python.SupportsPizzaTracker {
		req.TrackerPath = job.tracker.Path()
	}
	if cfg.Python.SupportsMetadata {
		req.Metadata = job.metadata
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("handler panic: %v", r)
			}
		}()
		done <- fn(ctx, req)
	}()

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			job.tracker.Drain(ctx)
			if err != nil {
				fmt.Fprintf(job.logFile, "handler %s.%s failed: %v\n", cfg.Python.Module, cfg.Python.Callable, err)
				logger.Warn("in-process handler failed", map[string]any{
					"module": cfg.Python.Module,
					"error":  err.Error(),
				})
				return false
			}
			return true
		case <-ticker.C:
			job.tracker.Drain(ctx)
		}
	}
}
