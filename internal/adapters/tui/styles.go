package tui

import (
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/brisk/internal/ui/style"
)

// pendingGlyph marks a task that has not started.
const pendingGlyph = "○"

var (
	pendingStyle = lipgloss.NewStyle().Foreground(style.Muted)
	runningStyle = lipgloss.NewStyle().Foreground(style.Accent).Bold(true)
	doneStyle    = lipgloss.NewStyle().Foreground(style.Success)
	failedStyle  = lipgloss.NewStyle().Foreground(style.Danger)
	mutedStyle   = lipgloss.NewStyle().Foreground(style.Muted)
	cursorStyle  = lipgloss.NewStyle().Foreground(style.Accent).Bold(true)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(style.Accent)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(style.Muted).
			PaddingLeft(1)
)
