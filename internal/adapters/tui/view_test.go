package tui_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"go.trai.ch/brisk/internal/adapters/tui"
	"go.trai.ch/brisk/internal/ui/style"
)

func TestView_BeforeWindowSizeListsTasks(t *testing.T) {
	m := tui.NewModel()
	update(t, m, tui.PlanMsg{Tasks: []string{"clean", "stylus"}, Targets: []string{"default"}})

	view := m.View()
	assert.Contains(t, view, "brisk default")
	assert.Contains(t, view, "0/2")
	assert.Contains(t, view, "clean")
	assert.Contains(t, view, "stylus")
}

func TestView_ShowsSelectedPane(t *testing.T) {
	m := tui.NewModel()
	update(t, m,
		tea.WindowSizeMsg{Width: 100, Height: 12},
		tui.PlanMsg{Tasks: []string{"stylus", "jshint"}, Targets: []string{"html"}},
		tui.TaskStartMsg{SpanID: "s", Name: "stylus", StartTime: t0},
		tui.TaskLogMsg{SpanID: "s", Data: []byte("compiled styles/main.styl\n")},
		tui.TaskStartMsg{SpanID: "j", Name: "jshint", StartTime: t0},
		tui.TaskLogMsg{SpanID: "j", Data: []byte("linting 4 files\n")},
	)

	view := m.View()
	assert.Contains(t, view, style.Arrow)
	assert.Contains(t, view, "follow")
	assert.Contains(t, view, "linting 4 files")
	assert.NotContains(t, view, "compiled styles/main.styl")

	update(t, m, key("up"))
	view = m.View()
	assert.Contains(t, view, "scroll")
	assert.Contains(t, view, "compiled styles/main.styl")
}

func TestView_SummaryAfterFinish(t *testing.T) {
	m := tui.NewModel()
	update(t, m,
		tui.PlanMsg{Tasks: []string{"clean", "jshint", "html"}},
		tui.TaskStartMsg{SpanID: "c", Name: "clean", StartTime: t0},
		tui.TaskCompleteMsg{SpanID: "c", EndTime: t0.Add(20 * time.Millisecond)},
		tui.TaskStartMsg{SpanID: "j", Name: "jshint", StartTime: t0},
		tui.TaskCompleteMsg{SpanID: "j", EndTime: t0.Add(time.Second), Err: errors.New("lint failed")},
		tui.FinishedMsg{},
	)

	lines := strings.Split(strings.TrimSpace(m.View()), "\n")
	assert.Equal(t, []string{
		style.Check + " clean 20ms",
		style.Cross + " jshint 1s",
		"1 done, 1 failed",
	}, lines)
}

func TestView_SummaryAfterQuit(t *testing.T) {
	m := tui.NewModel()
	update(t, m,
		tui.PlanMsg{Tasks: []string{"stylus"}},
		tui.TaskStartMsg{SpanID: "s", Name: "stylus", StartTime: t0},
		key("q"),
	)

	view := m.View()
	assert.Contains(t, view, style.Bullet+" stylus")
	assert.Contains(t, view, "0 done, interrupted")
}
