package worker

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/cast-iron/crucible/iox"
	"github.com/cast-iron/crucible/log"
	"github.com/cast-iron/crucible/messaging"
	"github.com/cast-iron/crucible/processor"
	"github.com/cast-iron/crucible/tracker"
	"github.com/cast-iron/crucible/types"
)

// logFileName is the captured handler output inside the work directory.
const logFileName = "out.txt"

// newJobID returns a short random job identifier: an unpadded base64
// encoding of a fresh UUID.
func newJobID() string {
	id := uuid.New()
	return base64.RawStdEncoding.EncodeToString(id[:])
}

// jobScope carries the local resources of one job through execution.
type jobScope struct {
	jobID    string
	dataFile string
	metadata map[string]string
	tracker  *tracker.Tracker
	logFile  *os.File
}

// runJob claims the data file and walks it through the staged pipeline:
// announce, move inbox to processing, materialize locally, execute, and
// archive or quarantine by outcome.
func (e *EventProcessor) runJob(ctx context.Context, configID types.ObjectID, cfg *processor.Config, dataID types.ObjectID) {
	jobID := newJobID()
	logger := e.logger.WithJob(jobID)
	filename := dataID.Filename()

	e.collector.IncJobStarted(cfg.HandlerLabel())
	logger.Info("job created", map[string]any{
		"file":    dataID.String(),
		"config":  configID.String(),
		"handler": cfg.HandlerLabel(),
	})
	e.emit(logger, func() error {
		return e.producer.JobCreated(ctx, jobID, filename, configID.Filename())
	})

	processingID := cfg.ProcessingPath(configID).Join(filename)
	if err := e.store.Move(ctx, dataID, processingID); err != nil {
		// The pipeline aborts before execute; no terminal status goes
		// out and the file stays where it was.
		e.collector.IncJobFailed()
		logger.Error("stage-in failed", map[string]any{
			"from":  dataID.String(),
			"to":    processingID.String(),
			"error": err.Error(),
		})
		return
	}

	e.processFile(ctx, logger, jobID, configID, cfg, processingID)
}

// processFile owns the job's local resources: work directory, downloaded
// file, tracker pipe, and output log. Release order on exit is log file,
// pipe read end, pipe inode, work directory.
func (e *EventProcessor) processFile(ctx context.Context, logger *log.Logger, jobID string, configID types.ObjectID, cfg *processor.Config, processingID types.ObjectID) {
	filename := processingID.Filename()

	workDir, err := os.MkdirTemp("", "crucible-job-")
	if err != nil {
		e.collector.IncJobFailed()
		logger.Error("create work directory failed", map[string]any{"error": err.Error()})
		return
	}
	defer iox.DiscardRemove(workDir)

	dataFile := filepath.Join(workDir, filename)
	if err := e.store.Download(ctx, processingID, dataFile); err != nil {
		e.collector.IncJobFailed()
		logger.Error("download failed", map[string]any{
			"object": processingID.String(),
			"error":  err.Error(),
		})
		return
	}

	metadata, err := e.store.Metadata(ctx, processingID)
	if err != nil {
		e.collector.IncJobFailed()
		logger.Error("read metadata failed", map[string]any{
			"object": processingID.String(),
			"error":  err.Error(),
		})
		return
	}

	tr, err := tracker.New(tracker.Config{
		WorkDir:   workDir,
		JobID:     jobID,
		Producer:  e.producer,
		Logger:    logger,
		Collector: e.collector,
	})
	if err != nil {
		e.collector.IncJobFailed()
		logger.Error("create tracker pipe failed", map[string]any{"error": err.Error()})
		return
	}
	defer func() { _ = tr.Close() }()

	logFile, err := os.Create(filepath.Join(workDir, logFileName))
	if err != nil {
		e.collector.IncJobFailed()
		logger.Error("create output log failed", map[string]any{"error": err.Error()})
		return
	}
	defer iox.DiscardClose(logFile)

	job := &jobScope{
		jobID:    jobID,
		dataFile: dataFile,
		metadata: metadata,
		tracker:  tr,
		logFile:  logFile,
	}

	var success bool
	switch {
	case cfg.Shell != "":
		success = e.runShell(ctx, logger, cfg, job)
	case cfg.Python != nil:
		success = e.runInProcess(ctx, logger, cfg, job)
	default:
		// No handler at all: leave the file in processing for an
		// operator rather than archiving or quarantining it.
		e.collector.IncJobFailed()
		logger.Error("processor has no handler", map[string]any{
			"config": configID.String(),
			"file":   processingID.String(),
		})
		return
	}

	e.stageOut(ctx, logger, jobID, configID, cfg, processingID, job, success)
}

// stageOut moves the processing object to its final directory and emits
// the terminal status. A move failure is logged but the status still
// goes out: it reports the handler's outcome, not the archival's.
func (e *EventProcessor) stageOut(ctx context.Context, logger *log.Logger, jobID string, configID types.ObjectID, cfg *processor.Config, processingID types.ObjectID, job *jobScope, success bool) {
	filename := processingID.Filename()

	if success {
		archiveID := cfg.ArchivePath(configID).Join(filename)
		if err := e.store.Move(ctx, processingID, archiveID); err != nil {
			logger.Error("archive move failed", map[string]any{
				"from":  processingID.String(),
				"to":    archiveID.String(),
				"error": err.Error(),
			})
		}
		e.collector.IncJobSucceeded()
		logger.Info("job succeeded", map[string]any{"file": filename})
		e.emit(logger, func() error {
			return e.producer.JobStatus(ctx, jobID, messaging.StatusSuccess)
		})
		return
	}

	errorID := cfg.ErrorPath(configID).Join(filename)
	if err := e.store.Move(ctx, processingID, errorID); err != nil {
		logger.Error("error move failed", map[string]any{
			"from":  processingID.String(),
			"to":    errorID.String(),
			"error": err.Error(),
		})
	}
	e.collector.IncJobFailed()
	logger.Warn("job failed", map[string]any{"file": filename})
	e.emit(logger, func() error {
		return e.producer.JobStatus(ctx, jobID, messaging.StatusFailure)
	})

	if cfg.SaveErrorLog {
		logID := cfg.ErrorPath(configID).Join(processor.ErrorLogName(filename))
		if err := e.store.Upload(ctx, job.logFile.Name(), logID); err != nil {
			logger.Warn("error log upload failed", map[string]any{
				"object": logID.String(),
				"error":  err.Error(),
			})
		}
	}
}
