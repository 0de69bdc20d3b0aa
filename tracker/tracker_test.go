package tracker

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/cast-iron/crucible/log"
	"github.com/cast-iron/crucible/messaging"
	"github.com/cast-iron/crucible/metrics"
)

type call struct {
	kind      string
	task      string
	progress  float64
	committed int64
	status    string
}

type fakeProducer struct {
	calls []call
	err   error
}

func (f *fakeProducer) JobCreated(context.Context, string, string, string) error {
	f.calls = append(f.calls, call{kind: "created"})
	return f.err
}

func (f *fakeProducer) JobTask(_ context.Context, _ string, task string) error {
	f.calls = append(f.calls, call{kind: "task", task: task})
	return f.err
}

func (f *fakeProducer) JobProgress(_ context.Context, _ string, progress float64) error {
	f.calls = append(f.calls, call{kind: "progress", progress: progress})
	return f.err
}

func (f *fakeProducer) JobCommitted(_ context.Context, _ string, committed int64) error {
	f.calls = append(f.calls, call{kind: "committed", committed: committed})
	return f.err
}

func (f *fakeProducer) JobStatus(_ context.Context, _ string, status string) error {
	f.calls = append(f.calls, call{kind: "status", status: status})
	return f.err
}

func (f *fakeProducer) Close() error { return nil }

var _ messaging.Producer = (*fakeProducer)(nil)

func testLogger() *log.Logger {
	return log.NewLogger("test").WithOutput(io.Discard)
}

func newTestTracker(t *testing.T, producer messaging.Producer, collector *metrics.Collector) *Tracker {
	t.Helper()
	tr, err := New(Config{
		WorkDir:   t.TempDir(),
		JobID:     "j1",
		Producer:  producer,
		Logger:    testLogger(),
		Collector: collector,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

// writePipe writes data through a short-lived writer. The tracker holds
// the read end open, so opening for writing does not block.
func writePipe(t *testing.T, path, data string) {
	t.Helper()
	w, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open pipe for writing: %v", err)
	}
	defer func() { _ = w.Close() }()
	if _, err := w.WriteString(data); err != nil {
		t.Fatalf("write pipe: %v", err)
	}
}

func TestTracker_RelaysCommands(t *testing.T) {
	producer := &fakeProducer{}
	collector := metrics.NewCollector("test", "etl", "kafka")
	tr := newTestTracker(t, producer, collector)

	writePipe(t, tr.Path(), "task parsing rows\nprogress 0.5\ncommitted 1200\n")
	tr.Drain(t.Context())

	want := []call{
		{kind: "task", task: "parsing rows"},
		{kind: "progress", progress: 0.5},
		{kind: "committed", committed: 1200},
	}
	if len(producer.calls) != len(want) {
		t.Fatalf("calls = %d, want %d", len(producer.calls), len(want))
	}
	for i := range want {
		if producer.calls[i] != want[i] {
			t.Errorf("call[%d] = %+v, want %+v", i, producer.calls[i], want[i])
		}
	}
	if got := collector.Snapshot().TrackerLinesRelayed; got != 3 {
		t.Errorf("TrackerLinesRelayed = %d, want 3", got)
	}
}

func TestTracker_ProgressForms(t *testing.T) {
	tests := []struct {
		name string
		line string
		want float64
	}{
		{"decimal", "progress 0.25\n", 0.25},
		{"fraction", "progress 3/4\n", 0.75},
		{"integer numerator and denominator", "progress 1200/4800\n", 0.25},
		{"zero", "progress 0\n", 0},
		{"one", "progress 1\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			producer := &fakeProducer{}
			tr := newTestTracker(t, producer, nil)

			writePipe(t, tr.Path(), tt.line)
			tr.Drain(t.Context())

			if len(producer.calls) != 1 {
				t.Fatalf("calls = %d, want 1", len(producer.calls))
			}
			if got := producer.calls[0].progress; got != tt.want {
				t.Errorf("progress = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTracker_DropsMalformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"unknown command", "bogus 1\n"},
		{"committed not an integer", "committed abc\n"},
		{"progress above one", "progress 2.0\n"},
		{"progress below zero", "progress -0.1\n"},
		{"progress zero denominator", "progress 1/0\n"},
		{"progress zero over zero", "progress 0/0\n"},
		{"progress not numeric", "progress abc/def\n"},
		{"no value", "task\n"},
		{"blank line", "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			producer := &fakeProducer{}
			collector := metrics.NewCollector("test", "etl", "kafka")
			tr := newTestTracker(t, producer, collector)

			writePipe(t, tr.Path(), tt.line)
			tr.Drain(t.Context())

			if len(producer.calls) != 0 {
				t.Fatalf("calls = %d, want 0", len(producer.calls))
			}
			if got := collector.Snapshot().TrackerLinesDropped; got != 1 {
				t.Errorf("TrackerLinesDropped = %d, want 1", got)
			}
		})
	}
}

func TestTracker_CaseInsensitiveCommands(t *testing.T) {
	producer := &fakeProducer{}
	tr := newTestTracker(t, producer, nil)

	writePipe(t, tr.Path(), "TASK loud\nProgress 0.5\nCOMMITTED 7\n")
	tr.Drain(t.Context())

	if len(producer.calls) != 3 {
		t.Fatalf("calls = %d, want 3", len(producer.calls))
	}
	if producer.calls[0].task != "loud" {
		t.Errorf("task = %q, want %q", producer.calls[0].task, "loud")
	}
}

func TestTracker_PartialLineAcrossDrains(t *testing.T) {
	producer := &fakeProducer{}
	tr := newTestTracker(t, producer, nil)

	writePipe(t, tr.Path(), "task hel")
	tr.Drain(t.Context())
	if len(producer.calls) != 0 {
		t.Fatalf("calls after partial write = %d, want 0", len(producer.calls))
	}

	writePipe(t, tr.Path(), "lo\n")
	tr.Drain(t.Context())

	if len(producer.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(producer.calls))
	}
	if got := producer.calls[0].task; got != "hello" {
		t.Errorf("task = %q, want %q", got, "hello")
	}
}

func TestTracker_DrainWithoutWriter(t *testing.T) {
	producer := &fakeProducer{}
	tr := newTestTracker(t, producer, nil)

	tr.Drain(t.Context())

	if len(producer.calls) != 0 {
		t.Errorf("calls = %d, want 0", len(producer.calls))
	}
}

func TestTracker_DrainWithIdleWriter(t *testing.T) {
	producer := &fakeProducer{}
	tr := newTestTracker(t, producer, nil)

	w, err := os.OpenFile(tr.Path(), os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open pipe for writing: %v", err)
	}
	defer func() { _ = w.Close() }()

	// Writer connected, nothing written yet.
	tr.Drain(t.Context())
	if len(producer.calls) != 0 {
		t.Fatalf("calls = %d, want 0", len(producer.calls))
	}

	if _, err := w.WriteString("committed 42\n"); err != nil {
		t.Fatalf("write pipe: %v", err)
	}
	tr.Drain(t.Context())

	if len(producer.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(producer.calls))
	}
	if got := producer.calls[0].committed; got != 42 {
		t.Errorf("committed = %d, want 42", got)
	}
}

func TestTracker_ProducerFailure(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker down")}
	collector := metrics.NewCollector("test", "etl", "kafka")
	tr := newTestTracker(t, producer, collector)

	writePipe(t, tr.Path(), "task x\n")
	tr.Drain(t.Context())

	snap := collector.Snapshot()
	if snap.TrackerLinesRelayed != 0 {
		t.Errorf("TrackerLinesRelayed = %d, want 0", snap.TrackerLinesRelayed)
	}
	if snap.MessagesFailed != 1 {
		t.Errorf("MessagesFailed = %d, want 1", snap.MessagesFailed)
	}
}

func TestTracker_PipeLocation(t *testing.T) {
	workDir := t.TempDir()
	tr, err := New(Config{
		WorkDir:  workDir,
		JobID:    "j1",
		Producer: &fakeProducer{},
		Logger:   testLogger(),
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = tr.Close() }()

	if want := filepath.Join(workDir, PipeName); tr.Path() != want {
		t.Errorf("Path() = %q, want %q", tr.Path(), want)
	}
	info, err := os.Stat(tr.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode()&os.ModeNamedPipe == 0 {
		t.Errorf("mode = %v, want named pipe", info.Mode())
	}
}

func TestTracker_CloseRemovesPipe(t *testing.T) {
	tr, err := New(Config{
		WorkDir:  t.TempDir(),
		JobID:    "j1",
		Producer: &fakeProducer{},
		Logger:   testLogger(),
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(tr.Path()); !os.IsNotExist(err) {
		t.Errorf("pipe still exists after close: %v", err)
	}
}

func TestNew_Validation(t *testing.T) {
	valid := Config{
		WorkDir:  "/tmp",
		JobID:    "j1",
		Producer: &fakeProducer{},
		Logger:   testLogger(),
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing job ID", func(c *Config) { c.JobID = "" }},
		{"missing producer", func(c *Config) { c.Producer = nil }},
		{"missing logger", func(c *Config) { c.Logger = nil }},
		{"missing work dir", func(c *Config) { c.WorkDir = filepath.Join(c.WorkDir, "does-not-exist") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			cfg.WorkDir = t.TempDir()
			tt.mutate(&cfg)
			if _, err := New(cfg); err == nil {
				t.Error("New() error = nil, want error")
			}
		})
	}
}
