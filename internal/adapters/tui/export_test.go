package tui

import tea "github.com/charmbracelet/bubbletea"

func (r *Renderer) Program() *tea.Program {
	return r.program
}
