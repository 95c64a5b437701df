package tui

import (
	"bytes"
	"strings"
	"sync"

	"github.com/vito/midterm"
)

// LogPane is a scrollable view over one task's output. Output runs through a
// virtual terminal so tools that draw progress bars or color their output
// render the way they would in a shell.
type LogPane struct {
	mu     sync.Mutex
	vt     *midterm.Terminal
	height int
	offset int
	buf    bytes.Buffer
}

// NewLogPane returns an empty pane one row high.
func NewLogPane() *LogPane {
	return &LogPane{
		vt:     midterm.NewAutoResizingTerminal(),
		height: 1,
	}
}

// Write feeds task output to the pane. A pane scrolled to its last line
// keeps following new output.
func (p *LogPane) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	following := p.offset >= p.bottom()

	// Output arrives from pipes, which do not translate newlines.
	if _, err := p.vt.Write(bytes.ReplaceAll(data, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}

	if following {
		p.offset = p.bottom()
	}
	return len(data), nil
}

// Resize sets the visible area. Width wraps future output.
func (p *LogPane) Resize(width, height int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	following := p.offset >= p.bottom()
	p.height = max(height, 1)
	p.vt.ResizeX(max(width, 1))
	if following {
		p.offset = p.bottom()
	}
	p.offset = min(p.offset, p.bottom())
}

// Scroll moves the view by delta lines, clamped to the output.
func (p *LogPane) Scroll(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offset = min(max(p.offset+delta, 0), p.bottom())
}

// ScrollToTop shows the first line of output.
func (p *LogPane) ScrollToTop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offset = 0
}

// ScrollToBottom shows the latest output and resumes following it.
func (p *LogPane) ScrollToBottom() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offset = p.bottom()
}

// Offset is the index of the first visible line.
func (p *LogPane) Offset() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offset
}

// Lines is the number of lines written so far.
func (p *LogPane) Lines() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vt.UsedHeight()
}

// Height is the number of visible lines.
func (p *LogPane) Height() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.height
}

// View renders the visible lines.
func (p *LogPane) View() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	end := min(p.offset+p.height, p.vt.UsedHeight())
	return p.render(p.offset, end)
}

// Transcript renders every line written so far, without trailing blanks.
func (p *LogPane) Transcript() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	lines := strings.Split(p.render(0, p.vt.UsedHeight()), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func (p *LogPane) render(from, to int) string {
	p.buf.Reset()
	for row := from; row < to; row++ {
		if row > from {
			p.buf.WriteByte('\n')
		}
		_ = p.vt.RenderLine(&p.buf, row)
	}
	return p.buf.String()
}

func (p *LogPane) bottom() int {
	return max(p.vt.UsedHeight()-p.height, 0)
}
