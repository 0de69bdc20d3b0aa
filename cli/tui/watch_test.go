package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestParseJobMessage(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    bool
	}{
		{"created", `{"type":"job_created","job_id":"j1","filename":"data.csv","handler":"a.toml","uploader":"castiron"}`, true},
		{"task update", `{"type":"job_update","job_id":"j1","task":"load"}`, true},
		{"zero progress", `{"type":"job_update","job_id":"j1","progress":0}`, true},
		{"status", `{"type":"job_update","job_id":"j1","status":"success"}`, true},
		{"missing job id", `{"type":"job_update","status":"success"}`, false},
		{"not json", `not json`, false},
		{"empty", ``, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseJobMessage([]byte(tt.payload))
			if ok != tt.want {
				t.Errorf("ParseJobMessage(%q) ok = %v, want %v", tt.payload, ok, tt.want)
			}
		})
	}
}

func TestParseJobMessage_ZeroProgressIsPresent(t *testing.T) {
	msg, ok := ParseJobMessage([]byte(`{"type":"job_update","job_id":"j1","progress":0}`))
	if !ok {
		t.Fatal("expected payload to parse")
	}
	if msg.Progress == nil || *msg.Progress != 0 {
		t.Errorf("Progress = %v, want pointer to 0", msg.Progress)
	}
	if msg.Committed != nil {
		t.Errorf("Committed = %v, want nil", msg.Committed)
	}
}

// feed runs messages through Update and returns the resulting model.
func feed(t *testing.T, m WatchModel, payloads ...string) WatchModel {
	t.Helper()
	for _, payload := range payloads {
		msg, ok := ParseJobMessage([]byte(payload))
		if !ok {
			t.Fatalf("payload does not parse: %s", payload)
		}
		next, _ := m.Update(msg)
		m = next.(WatchModel)
	}
	return m
}

func TestWatchModel_FoldsJobLifecycle(t *testing.T) {
	m := feed(t, NewWatchModel("test"),
		`{"type":"job_created","job_id":"j1","filename":"data.csv","handler":"a.toml","uploader":"castiron"}`,
		`{"type":"job_update","job_id":"j1","task":"load"}`,
		`{"type":"job_update","job_id":"j1","progress":0.5}`,
		`{"type":"job_update","job_id":"j1","committed":42}`,
		`{"type":"job_update","job_id":"j1","status":"success"}`,
	)

	row, ok := m.jobs["j1"]
	if !ok {
		t.Fatal("job j1 was not tracked")
	}
	if row.filename != "data.csv" || row.handler != "a.toml" {
		t.Errorf("row = %+v, want filename data.csv handler a.toml", row)
	}
	if row.task != "load" {
		t.Errorf("task = %q, want load", row.task)
	}
	if !row.hasProgress || row.progress != 0.5 {
		t.Errorf("progress = %v (has %v), want 0.5", row.progress, row.hasProgress)
	}
	if row.committed != 42 {
		t.Errorf("committed = %d, want 42", row.committed)
	}
	if row.state() != "success" {
		t.Errorf("state = %q, want success", row.state())
	}
}

func TestWatchModel_UpdateBeforeCreatedStillTracks(t *testing.T) {
	// The watcher can join mid-stream and see updates for jobs whose
	// created message is long gone.
	m := feed(t, NewWatchModel("test"),
		`{"type":"job_update","job_id":"j9","progress":0.25}`,
	)

	row, ok := m.jobs["j9"]
	if !ok {
		t.Fatal("job j9 was not tracked")
	}
	if !row.hasProgress || row.progress != 0.25 {
		t.Errorf("progress = %v (has %v), want 0.25", row.progress, row.hasProgress)
	}
	if row.state() != "running" {
		t.Errorf("state = %q, want running", row.state())
	}
}

func TestWatchModel_Counts(t *testing.T) {
	m := feed(t, NewWatchModel("test"),
		`{"type":"job_created","job_id":"a","filename":"a.csv","handler":"a.toml"}`,
		`{"type":"job_update","job_id":"a","status":"success"}`,
		`{"type":"job_created","job_id":"b","filename":"b.csv","handler":"a.toml"}`,
		`{"type":"job_update","job_id":"b","status":"failure"}`,
		`{"type":"job_created","job_id":"c","filename":"c.csv","handler":"a.toml"}`,
	)

	total, running, succeeded, failed := m.counts()
	if total != 3 || running != 1 || succeeded != 1 || failed != 1 {
		t.Errorf("counts = %d/%d/%d/%d, want 3/1/1/1", total, running, succeeded, failed)
	}
}

func TestWatchModel_VisibleRowsKeepsNewest(t *testing.T) {
	m := feed(t, NewWatchModel("test"),
		`{"type":"job_created","job_id":"a","filename":"a.csv","handler":"a.toml"}`,
		`{"type":"job_created","job_id":"b","filename":"b.csv","handler":"a.toml"}`,
		`{"type":"job_created","job_id":"c","filename":"c.csv","handler":"a.toml"}`,
	)
	m.height = 12 // room for two rows after the fixed chrome

	rows := m.visibleRows()
	if len(rows) != 2 {
		t.Fatalf("visible rows = %d, want 2", len(rows))
	}
	if rows[0] != "b" || rows[1] != "c" {
		t.Errorf("visible rows = %v, want [b c]", rows)
	}
}

func TestWatchModel_QuitKey(t *testing.T) {
	m := NewWatchModel("test")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !next.(WatchModel).quitting {
		t.Error("model is not quitting after q")
	}
	if next.(WatchModel).View() != "" {
		t.Error("quitting view is not empty")
	}
}

func TestWatchModel_ViewListsJobs(t *testing.T) {
	m := feed(t, NewWatchModel("pizza-tracker (kafka)"),
		`{"type":"job_created","job_id":"j1","filename":"data.csv","handler":"a.toml"}`,
	)

	view := m.View()
	if !strings.Contains(view, "data.csv") {
		t.Errorf("view does not list the job filename:\n%s", view)
	}
	if !strings.Contains(view, "pizza-tracker (kafka)") {
		t.Errorf("view does not name the source:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"a-very-long-filename.csv", 10, "a-very-..."},
		{"abc", 2, "ab"},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got)
		}
	}
}
