// Package tui renders a run as an interactive task list with one log pane
// per task.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Status is the lifecycle state of a task row.
type Status int

const (
	// StatusPending is a planned task that has not started.
	StatusPending Status = iota
	// StatusRunning is a task that has started and not completed.
	StatusRunning
	// StatusDone is a task that completed without error.
	StatusDone
	// StatusFailed is a task that completed with an error.
	StatusFailed
)

// Row is one task in the list.
type Row struct {
	Name   string
	Status Status
	Err    error
	Pane   *LogPane

	started time.Time
	ended   time.Time
}

// Elapsed is the task's run time, or zero while it has not completed.
func (r *Row) Elapsed() time.Duration {
	if r.Status != StatusDone && r.Status != StatusFailed {
		return 0
	}
	return r.ended.Sub(r.started)
}

// Model is the bubbletea model behind the task list.
type Model struct {
	Rows     []*Row
	Targets  []string
	Selected int
	// Follow moves the selection to each task as it starts.
	Follow bool
	// Interrupted is set when the user quit before the run finished.
	Interrupted bool
	// Finished is set once the run is over; View then shows the summary.
	Finished bool

	byName map[string]*Row
	bySpan map[string]*Row
	width  int
	height int
}

// NewModel returns an empty model that follows running tasks.
func NewModel() *Model {
	return &Model{
		Follow: true,
		byName: make(map[string]*Row),
		bySpan: make(map[string]*Row),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Row returns the row for the named task.
func (m *Model) Row(name string) (*Row, bool) {
	r, ok := m.byName[name]
	return r, ok
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.onKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		for _, r := range m.Rows {
			m.size(r.Pane)
		}

	case PlanMsg:
		if m.Targets == nil {
			m.Targets = msg.Targets
		}
		for _, name := range msg.Tasks {
			m.row(name)
		}

	case TaskStartMsg:
		r := m.row(msg.Name)
		r.Status = StatusRunning
		r.Err = nil
		r.started = msg.StartTime
		m.bySpan[msg.SpanID] = r
		if m.Follow {
			m.selectRow(r)
		}

	case TaskLogMsg:
		if r, ok := m.bySpan[msg.SpanID]; ok {
			_, _ = r.Pane.Write(msg.Data)
		}

	case TaskCompleteMsg:
		r, ok := m.bySpan[msg.SpanID]
		if !ok {
			break
		}
		delete(m.bySpan, msg.SpanID)
		r.ended = msg.EndTime
		if msg.Err == nil {
			r.Status = StatusDone
			break
		}
		r.Status = StatusFailed
		r.Err = msg.Err
		// Keep the first failure on screen.
		if m.Follow {
			m.selectRow(r)
			m.Follow = false
		}

	case printMsg:
		return m, tea.Println(msg.text)

	case FinishedMsg:
		m.Finished = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) onKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		m.Interrupted = true
		return tea.Quit
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "f", "esc":
		m.Follow = true
		for i := len(m.Rows) - 1; i >= 0; i-- {
			if m.Rows[i].Status == StatusRunning {
				m.Selected = i
				break
			}
		}
		if p := m.pane(); p != nil {
			p.ScrollToBottom()
		}
	case "pgup":
		if p := m.pane(); p != nil {
			p.Scroll(-p.Height())
		}
	case "pgdown":
		if p := m.pane(); p != nil {
			p.Scroll(p.Height())
		}
	case "home":
		if p := m.pane(); p != nil {
			p.ScrollToTop()
		}
	case "end":
		if p := m.pane(); p != nil {
			p.ScrollToBottom()
		}
	}
	return nil
}

func (m *Model) move(delta int) {
	next := m.Selected + delta
	if next < 0 || next >= len(m.Rows) {
		return
	}
	m.Selected = next
	m.Follow = false
}

func (m *Model) selectRow(r *Row) {
	for i, candidate := range m.Rows {
		if candidate == r {
			m.Selected = i
			return
		}
	}
}

// pane returns the selected task's log pane.
func (m *Model) pane() *LogPane {
	if m.Selected < 0 || m.Selected >= len(m.Rows) {
		return nil
	}
	return m.Rows[m.Selected].Pane
}

// row returns the named row, appending it when the task is new.
func (m *Model) row(name string) *Row {
	if r, ok := m.byName[name]; ok {
		return r
	}
	r := &Row{Name: name, Pane: NewLogPane()}
	m.size(r.Pane)
	m.Rows = append(m.Rows, r)
	m.byName[name] = r
	return r
}

func (m *Model) size(p *LogPane) {
	if m.width == 0 {
		return
	}
	w, h := m.paneSize()
	p.Resize(w, h)
}
