// Package style holds the palette and glyphs shared by the logger and the task renderer.
package style

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	Accent  = lipgloss.Color("#0EA5E9")
	Muted   = lipgloss.Color("#667085")
	Success = lipgloss.Color("#22A06B")
	Danger  = lipgloss.Color("#D93025")
	Caution = lipgloss.Color("#F59E0B")
)

// Glyphs.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Arrow   = "→"
	Bullet  = "•"
)
