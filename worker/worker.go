// Package worker implements the event processor at the heart of the
// crucible worker: it keeps the registry of processor configs found in
// the bucket, dispatches object-store notifications, and drives matched
// data files through the staged pipeline.
//
// Dispatch is single-flight. The task sink delivers one notification at
// a time and Process runs it to completion, handler execution included,
// before the next one is accepted. The registry is therefore only ever
// touched from the dispatch path.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cast-iron/crucible/handler"
	"github.com/cast-iron/crucible/log"
	"github.com/cast-iron/crucible/messaging"
	"github.com/cast-iron/crucible/metrics"
	"github.com/cast-iron/crucible/objectstore"
	"github.com/cast-iron/crucible/processor"
	"github.com/cast-iron/crucible/types"
)

// DefaultPollInterval is the cadence for reaping the handler and
// draining its tracker pipe.
const DefaultPollInterval = 500 * time.Millisecond

// Database carries the connection settings forwarded to shell handlers
// through the DATABASE_* environment variables.
type Database struct {
	Host     string
	Password string
	Port     int
	Table    string
	User     string
}

// Config configures an EventProcessor.
type Config struct {
	// Store is the object store holding configs and data files (required).
	Store objectstore.Store
	// Producer receives job lifecycle messages (required).
	Producer messaging.Producer
	// Handlers resolves in-process handler names (required).
	Handlers *handler.Registry
	// Logger is the worker logger (required).
	Logger *log.Logger
	// Collector counts worker activity (optional).
	Collector *metrics.Collector
	// Bucket is the namespace scanned for processor configs at startup
	// (required).
	Bucket string
	// Database is forwarded to shell handlers.
	Database Database
	// PollInterval overrides DefaultPollInterval when positive.
	PollInterval time.Duration
}

// EventProcessor owns the config registry and the staged file pipeline.
type EventProcessor struct {
	store        objectstore.Store
	producer     messaging.Producer
	handlers     *handler.Registry
	logger       *log.Logger
	collector    *metrics.Collector
	bucket       string
	database     Database
	pollInterval time.Duration

	// registry maps a config object's id to its parsed document. Only
	// the dispatch path reads or writes it.
	registry map[types.ObjectID]*processor.Config
}

// New creates an EventProcessor from the given config.
func New(cfg Config) (*EventProcessor, error) {
	if cfg.Store == nil {
		return nil, errors.New("worker requires an object store")
	}
	if cfg.Producer == nil {
		return nil, errors.New("worker requires a producer")
	}
	if cfg.Handlers == nil {
		return nil, errors.New("worker requires a handler registry")
	}
	if cfg.Logger == nil {
		return nil, errors.New("worker requires a logger")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("worker requires a bucket")
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &EventProcessor{
		store:        cfg.Store,
		producer:     cfg.Producer,
		handlers:     cfg.Handlers,
		logger:       cfg.Logger,
		collector:    cfg.Collector,
		bucket:       cfg.Bucket,
		database:     cfg.Database,
		pollInterval: interval,
		registry:     make(map[types.ObjectID]*processor.Config),
	}, nil
}

// Bootstrap seeds the registry by scanning the bucket for processor
// configs. Individual documents that fail to parse are logged and
// skipped; only the scan itself can fail.
func (e *EventProcessor) Bootstrap(ctx context.Context) error {
	ids, err := e.store.List(ctx, e.bucket, "", true)
	if err != nil {
		return fmt.Errorf("scan bucket %s: %w", e.bucket, err)
	}

	for _, id := range ids {
		if strings.HasSuffix(id.Path, processor.ConfigSuffix) {
			e.configPut(ctx, id)
		}
	}

	e.logger.Info("bootstrap complete", map[string]any{
		"bucket":  e.bucket,
		"configs": len(e.registry),
	})
	return nil
}

// Process handles one raw notification payload. It returns an error only
// when the payload cannot be parsed; everything after that point is
// resolved inside the pipeline and logged.
func (e *EventProcessor) Process(ctx context.Context, payload []byte) error {
	event, err := objectstore.ParseNotification(payload)
	if err != nil {
		e.collector.IncEventDiscarded()
		return fmt.Errorf("parse notification: %w", err)
	}
	e.collector.IncEventReceived()

	isConfig := strings.HasSuffix(event.ID.Path, processor.ConfigSuffix)
	switch {
	case event.Type == types.EventDelete && isConfig:
		e.configDelete(event.ID)
	case event.Type == types.EventDelete:
		// Deletes of data files are not acted upon.
	case isConfig:
		e.configPut(ctx, event.ID)
	default:
		e.filePut(ctx, event.ID)
	}
	return nil
}

// configPut reads, parses, and registers the config object. Invalid
// documents are rejected without disturbing an existing registration;
// a disabled document retires one.
func (e *EventProcessor) configPut(ctx context.Context, id types.ObjectID) {
	body, err := e.store.Read(ctx, id)
	if err != nil {
		e.collector.IncConfigRejected()
		e.logger.Error("read processor config failed", map[string]any{
			"object": id.String(),
			"error":  err.Error(),
		})
		return
	}

	cfg, err := processor.Parse(body)
	if err != nil {
		e.collector.IncConfigRejected()
		e.logger.Warn("invalid processor config", map[string]any{
			"object": id.String(),
			"error":  err.Error(),
		})
		return
	}

	if cfg.Python != nil {
		if _, ok := e.handlers.Resolve(cfg.Python.Module, cfg.Python.Callable); !ok {
			e.collector.IncConfigRejected()
			e.logger.Warn("invalid processor config", map[string]any{
				"object": id.String(),
				"error":  fmt.Sprintf("no handler registered for %s.%s", cfg.Python.Module, cfg.Python.Callable),
			})
			return
		}
	}

	if !cfg.Enabled {
		if _, ok := e.registry[id]; ok {
			delete(e.registry, id)
			e.collector.IncConfigRemoved()
			e.logger.Info("processor disabled", map[string]any{"object": id.String()})
		}
		return
	}

	e.registry[id] = cfg
	e.collector.IncConfigRegistered()
	e.logger.Info("processor registered", map[string]any{
		"object":  id.String(),
		"glob":    cfg.Glob,
		"handler": cfg.HandlerLabel(),
	})

	// The error directory is created lazily by the first failed job.
	for _, dir := range []types.ObjectID{
		cfg.InboxPath(id),
		cfg.ProcessingPath(id),
		cfg.ArchivePath(id),
	} {
		if err := e.store.EnsureDirectory(ctx, dir); err != nil {
			e.logger.Warn("ensure staging directory failed", map[string]any{
				"directory": dir.String(),
				"error":     err.Error(),
			})
		}
	}
}

// configDelete removes the registration, if any. Deleting an unknown
// config is a no-op.
func (e *EventProcessor) configDelete(id types.ObjectID) {
	if _, ok := e.registry[id]; !ok {
		return
	}
	delete(e.registry, id)
	e.collector.IncConfigRemoved()
	e.logger.Info("processor removed", map[string]any{"object": id.String()})
}

// filePut routes a data file to the first matching config in
// lexicographic registry order. At most one config handles a file.
func (e *EventProcessor) filePut(ctx context.Context, dataID types.ObjectID) {
	for _, configID := range e.sortedConfigIDs() {
		cfg := e.registry[configID]
		if !cfg.Matches(configID, dataID) {
			continue
		}
		e.runJob(ctx, configID, cfg, dataID)
		return
	}
}

// sortedConfigIDs fixes the routing order for overlapping globs.
func (e *EventProcessor) sortedConfigIDs() []types.ObjectID {
	ids := make([]types.ObjectID, 0, len(e.registry))
	for id := range e.registry {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Namespace != ids[j].Namespace {
			return ids[i].Namespace < ids[j].Namespace
		}
		return ids[i].Path < ids[j].Path
	})
	return ids
}

// emit sends one lifecycle message best-effort: a send failure is logged
// and counted but never interrupts the pipeline.
func (e *EventProcessor) emit(logger *log.Logger, send func() error) {
	if err := send(); err != nil {
		e.collector.IncMessageFailed()
		logger.Warn("lifecycle message failed", map[string]any{"error": err.Error()})
		return
	}
	e.collector.IncMessagePublished()
}
