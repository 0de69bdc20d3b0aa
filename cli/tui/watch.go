package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// JobMessage mirrors the worker's lifecycle JSON. One message carries
// either the created fields or exactly one update field; pointers tell a
// zero progress or committed value apart from an absent one.
type JobMessage struct {
	Type      string   `json:"type"`
	JobID     string   `json:"job_id"`
	Filename  string   `json:"filename,omitempty"`
	Handler   string   `json:"handler,omitempty"`
	Uploader  string   `json:"uploader,omitempty"`
	Task      string   `json:"task,omitempty"`
	Progress  *float64 `json:"progress,omitempty"`
	Committed *int64   `json:"committed,omitempty"`
	Status    string   `json:"status,omitempty"`
}

// ParseJobMessage decodes one lifecycle payload. Payloads that are not
// valid JSON or carry no job id are skipped.
func ParseJobMessage(payload []byte) (JobMessage, bool) {
	var m JobMessage
	if err := json.Unmarshal(payload, &m); err != nil || m.JobID == "" {
		return JobMessage{}, false
	}
	return m, true
}

// jobRow is the rendered state of one job, folded from its messages.
type jobRow struct {
	id          string
	filename    string
	handler     string
	task        string
	committed   int64
	progress    float64
	hasProgress bool
	status      string
}

func (r *jobRow) state() string {
	if r.status == "" {
		return "running"
	}
	return r.status
}

// WatchModel is the Bubble Tea model for the live job board.
type WatchModel struct {
	source   string
	order    []string
	jobs     map[string]*jobRow
	bar      progress.Model
	width    int
	height   int
	quitting bool
}

// NewWatchModel creates a watch model. The source string names what is
// being followed and only appears in the header.
func NewWatchModel(source string) WatchModel {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 24
	return WatchModel{
		source: source,
		jobs:   make(map[string]*jobRow),
		bar:    bar,
	}
}

// Init implements tea.Model.
func (m WatchModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}

	case JobMessage:
		m.apply(msg)
		return m, nil
	}

	return m, nil
}

// apply folds one message into its job row, creating the row on first
// sight of the job id.
func (m *WatchModel) apply(msg JobMessage) {
	row, ok := m.jobs[msg.JobID]
	if !ok {
		row = &jobRow{id: msg.JobID}
		m.jobs[msg.JobID] = row
		m.order = append(m.order, msg.JobID)
	}

	switch {
	case msg.Filename != "":
		row.filename = msg.Filename
		row.handler = msg.Handler
	case msg.Task != "":
		row.task = msg.Task
	case msg.Progress != nil:
		row.progress = *msg.Progress
		row.hasProgress = true
	case msg.Committed != nil:
		row.committed = *msg.Committed
	case msg.Status != "":
		row.status = msg.Status
	}
}

// View implements tea.Model.
func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("crucible jobs: " + m.source))
	b.WriteString("\n\n")

	total, running, succeeded, failed := m.counts()
	boxes := []string{
		m.renderStatBox("Total", total, highlightColor),
		m.renderStatBox("Running", running, warningColor),
		m.renderStatBox("Succeeded", succeeded, successColor),
		m.renderStatBox("Failed", failed, errorColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n\n")

	if len(m.order) == 0 {
		b.WriteString(HelpStyle.Render("Waiting for job messages..."))
	}
	for _, id := range m.visibleRows() {
		b.WriteString(m.renderRow(m.jobs[id]))
		b.WriteString("\n")
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return b.String() + "\n" + help
}

func (m WatchModel) counts() (total, running, succeeded, failed int) {
	for _, row := range m.jobs {
		total++
		switch row.state() {
		case "success":
			succeeded++
		case "failure":
			failed++
		default:
			running++
		}
	}
	return total, running, succeeded, failed
}

// visibleRows returns the newest rows that fit the terminal, oldest first.
func (m WatchModel) visibleRows() []string {
	const overhead = 10
	if m.height <= overhead || len(m.order) <= m.height-overhead {
		return m.order
	}
	return m.order[len(m.order)-(m.height-overhead):]
}

func (m WatchModel) renderRow(row *jobRow) string {
	state := row.state()

	parts := []string{
		StateStyle(state).Render(fmt.Sprintf("%-8s", state)),
		ValueStyle.Render(fmt.Sprintf("%-24s", truncate(row.filename, 24))),
		LabelStyle.Render(fmt.Sprintf("%-16s", truncate(row.handler, 16))),
	}
	if row.hasProgress {
		parts = append(parts, m.bar.ViewAs(row.progress))
	}
	if row.committed > 0 {
		parts = append(parts, ValueStyle.Render(fmt.Sprintf("%d committed", row.committed)))
	}
	if row.task != "" {
		parts = append(parts, LabelStyle.Render(truncate(row.task, 32)))
	}

	return strings.Join(parts, "  ")
}

func (m WatchModel) renderStatBox(label string, value int, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
