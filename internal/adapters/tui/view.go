package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/brisk/internal/ui/style"
)

const (
	maxListWidth = 32
	// paneChromeX and paneChromeY are the border and padding around a log pane.
	paneChromeX = 3
	paneChromeY = 2
	// headerLines is the title above the list plus the pane's own title.
	headerLines = 2
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.Finished || m.Interrupted {
		return m.summary()
	}
	if m.width == 0 {
		return m.header() + "\n" + m.list()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(m.listWidth()).Render(m.list()),
			m.logPane(),
		),
	)
}

func (m *Model) header() string {
	done := 0
	for _, r := range m.Rows {
		if r.Status == StatusDone || r.Status == StatusFailed {
			done++
		}
	}
	title := headerStyle.Render("brisk " + strings.Join(m.Targets, " "))
	return fmt.Sprintf("%s %s", title, mutedStyle.Render(fmt.Sprintf("%d/%d", done, len(m.Rows))))
}

func (m *Model) list() string {
	lines := make([]string, len(m.Rows))
	for i, r := range m.Rows {
		cursor := "  "
		if i == m.Selected {
			cursor = cursorStyle.Render(style.Arrow) + " "
		}
		lines[i] = cursor + statusLine(r)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) logPane() string {
	w, _ := m.paneSize()
	title := mutedStyle.Render("waiting for output")
	body := ""
	if p := m.pane(); p != nil {
		mode := "scroll"
		if m.Follow {
			mode = "follow"
		}
		title = headerStyle.Render(m.Rows[m.Selected].Name) + " " + mutedStyle.Render(mode)
		body = p.View()
	}
	return paneStyle.Width(w + paneStyle.GetHorizontalPadding()).Render(title + "\n" + body)
}

// summary is the final frame left on the console.
func (m *Model) summary() string {
	var failed, done int
	lines := make([]string, 0, len(m.Rows)+1)
	for _, r := range m.Rows {
		switch r.Status {
		case StatusDone:
			done++
		case StatusFailed:
			failed++
		case StatusPending:
			continue
		}
		lines = append(lines, statusLine(r))
	}

	total := fmt.Sprintf("%d done", done)
	if failed > 0 {
		total += ", " + failedStyle.Render(fmt.Sprintf("%d failed", failed))
	}
	if m.Interrupted {
		total += ", " + mutedStyle.Render("interrupted")
	}
	return strings.Join(append(lines, total), "\n") + "\n"
}

func statusLine(r *Row) string {
	switch r.Status {
	case StatusRunning:
		return runningStyle.Render(style.Bullet + " " + r.Name)
	case StatusDone:
		return doneStyle.Render(style.Check+" "+r.Name) + elapsed(r)
	case StatusFailed:
		return failedStyle.Render(style.Cross+" "+r.Name) + elapsed(r)
	default:
		return pendingStyle.Render(pendingGlyph + " " + r.Name)
	}
}

func elapsed(r *Row) string {
	return " " + mutedStyle.Render(r.Elapsed().Round(time.Millisecond).String())
}

func (m *Model) listWidth() int {
	return min(maxListWidth, m.width/3)
}

// paneSize is the text area of a log pane.
func (m *Model) paneSize() (int, int) {
	w := m.width - m.listWidth() - paneChromeX
	h := m.height - headerLines - paneChromeY
	return max(w, 1), max(h, 1)
}
