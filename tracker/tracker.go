// Package tracker relays handler progress from a named pipe to the
// lifecycle message producer.
//
// Handlers write newline-terminated commands to the pipe:
//
//	task <name>
//	committed <count>
//	progress <fraction or numerator/denominator>
//
// Commands are case-insensitive. Progress outside [0, 1] and malformed
// lines are dropped without interrupting the job.
package tracker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/cast-iron/crucible/log"
	"github.com/cast-iron/crucible/messaging"
	"github.com/cast-iron/crucible/metrics"
)

// PipeName is the file name of the tracker pipe inside a job's work
// directory. Handlers receive the full path via PIZZA_TRACKER.
const PipeName = "pizza_tracker"

// Config configures a Tracker.
type Config struct {
	// WorkDir is the job work directory the pipe is created in (required).
	WorkDir string
	// JobID identifies the job in relayed messages (required).
	JobID string
	// Producer receives the relayed lifecycle messages (required).
	Producer messaging.Producer
	// Logger is the job-scoped logger (required).
	Logger *log.Logger
	// Collector counts relayed and dropped lines (optional).
	Collector *metrics.Collector
}

// Tracker owns a named pipe for one job and relays the progress lines
// a handler writes to it. The read end is opened non-blocking, so Drain
// consumes whatever is buffered and returns without waiting for the
// handler.
type Tracker struct {
	producer  messaging.Producer
	logger    *log.Logger
	collector *metrics.Collector
	jobID     string
	path      string
	fd        int
	buf       []byte
	pending   []byte
}

// New creates the pipe inside cfg.WorkDir and opens its read end.
func New(cfg Config) (*Tracker, error) {
	if cfg.JobID == "" {
		return nil, errors.New("tracker requires a job ID")
	}
	if cfg.Producer == nil {
		return nil, errors.New("tracker requires a producer")
	}
	if cfg.Logger == nil {
		return nil, errors.New("tracker requires a logger")
	}

	path := filepath.Join(cfg.WorkDir, PipeName)
	if err := unix.Mkfifo(path, 0o600); err != nil {
		return nil, fmt.Errorf("create tracker pipe: %w", err)
	}

	// Opening read-only with O_NONBLOCK never waits for a writer, and
	// keeps later reads from blocking the poll loop.
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("open tracker pipe: %w", err)
	}

	return &Tracker{
		producer:  cfg.Producer,
		logger:    cfg.Logger,
		collector: cfg.Collector,
		jobID:     cfg.JobID,
		path:      path,
		fd:        fd,
		buf:       make([]byte, 4096),
	}, nil
}

// Path returns the pipe's filesystem path.
func (t *Tracker) Path() string {
	return t.path
}

// Drain reads everything currently buffered in the pipe and relays the
// complete lines. A trailing partial line is kept for the next drain.
func (t *Tracker) Drain(ctx context.Context) {
	for {
		n, err := unix.Read(t.fd, t.buf)
		if n > 0 {
			t.pending = append(t.pending, t.buf[:n]...)
			t.relayPending(ctx)
			continue
		}
		if errors.Is(err, unix.EINTR) {
			continue
		}
		// n == 0 means no writer right now; EAGAIN means a writer is
		// connected but nothing is buffered. Either way this drain is done.
		if err != nil && !errors.Is(err, unix.EAGAIN) {
			t.logger.Warn("tracker pipe read failed", map[string]any{"error": err.Error()})
		}
		return
	}
}

// Close releases the read end and removes the pipe.
func (t *Tracker) Close() error {
	err := unix.Close(t.fd)
	if rmErr := os.Remove(t.path); err == nil {
		err = rmErr
	}
	return err
}

func (t *Tracker) relayPending(ctx context.Context) {
	for {
		i := bytes.IndexByte(t.pending, '\n')
		if i < 0 {
			return
		}
		line := string(t.pending[:i])
		t.pending = t.pending[i+1:]
		t.relay(ctx, line)
	}
}

// relay parses one line and forwards it. Anything that does not parse
// is dropped.
func (t *Tracker) relay(ctx context.Context, line string) {
	line = strings.TrimSpace(line)
	command, value, found := strings.Cut(line, " ")
	if !found {
		t.drop(line)
		return
	}

	var err error
	switch strings.ToLower(command) {
	case "task":
		err = t.producer.JobTask(ctx, t.jobID, value)
	case "committed":
		committed, perr := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if perr != nil {
			t.drop(line)
			return
		}
		err = t.producer.JobCommitted(ctx, t.jobID, committed)
	case "progress":
		progress, ok := parseProgress(value)
		if !ok {
			t.drop(line)
			return
		}
		err = t.producer.JobProgress(ctx, t.jobID, progress)
	default:
		t.drop(line)
		return
	}

	if err != nil {
		t.collector.IncMessageFailed()
		t.logger.Warn("tracker relay failed", map[string]any{"line": line, "error": err.Error()})
		return
	}
	t.collector.IncMessagePublished()
	t.collector.IncTrackerLineRelayed()
}

func (t *Tracker) drop(line string) {
	t.collector.IncTrackerLineDropped()
	t.logger.Debug("dropped tracker line", map[string]any{"line": line})
}

// parseProgress accepts a decimal fraction or a numerator/denominator
// pair. Values outside [0, 1] are rejected, which also covers division
// by zero and NaN.
func parseProgress(value string) (float64, bool) {
	value = strings.TrimSpace(value)

	var progress float64
	if num, den, found := strings.Cut(value, "/"); found {
		n, errN := strconv.ParseFloat(strings.TrimSpace(num), 64)
		d, errD := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if errN != nil || errD != nil {
			return 0, false
		}
		progress = n / d
	} else {
		p, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, false
		}
		progress = p
	}

	if progress >= 0 && progress <= 1 {
		return progress, true
	}
	return 0, false
}
