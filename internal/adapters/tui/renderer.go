package tui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/brisk/internal/core/ports"
	"go.trai.ch/brisk/internal/ui/output"
)

var _ ports.Renderer = (*Renderer)(nil)

// Renderer runs the task list as a bubbletea program and implements
// ports.Renderer by sending it messages.
type Renderer struct {
	program *tea.Program
	model   *Model
	stderr  io.Writer
	done    chan struct{}
	err     error
	once    sync.Once
}

// NewRenderer creates a Renderer. Failed task output is replayed to stderr
// once the program exits; nil means os.Stderr.
func NewRenderer(stderr io.Writer, opts ...tea.ProgramOption) *Renderer {
	if stderr == nil {
		stderr = os.Stderr
	}
	model := NewModel()
	return &Renderer{
		program: tea.NewProgram(model, opts...),
		model:   model,
		stderr:  stderr,
		done:    make(chan struct{}),
	}
}

// Start runs the program in the background. interrupt is called when the
// program exits before Stop, such as when the user quits.
func (r *Renderer) Start(interrupt func()) {
	go func() {
		defer close(r.done)
		_, err := r.program.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			err = nil
		}
		r.err = err
		if !r.model.Finished && interrupt != nil {
			interrupt()
		}
	}()
}

// Stop asks the program to show its summary and exit.
func (r *Renderer) Stop() {
	r.once.Do(func() {
		r.program.Send(FinishedMsg{})
	})
}

// Wait blocks until the program has exited, then replays the output of
// every failed task.
func (r *Renderer) Wait() error {
	<-r.done
	r.replayFailures()
	return r.err
}

// Model returns the model. It is safe to read once Wait has returned.
func (r *Renderer) Model() *Model {
	return r.model
}

func (r *Renderer) replayFailures() {
	out := output.New(r.stderr)
	for _, row := range r.model.Rows {
		if row.Status != StatusFailed {
			continue
		}
		log := row.Pane.Transcript()
		if log == "" {
			continue
		}
		_, _ = fmt.Fprintf(r.stderr, "%s\n%s\n", out.String(fmt.Sprintf("[%s] output:", row.Name)).Faint(), log)
	}
}

// LogWriter returns a writer that prints each write as a line above the task
// list. Log records written while the program runs go through it so they do
// not tear the frame.
func (r *Renderer) LogWriter() io.Writer {
	return lineWriter{program: r.program}
}

type lineWriter struct {
	program *tea.Program
}

func (w lineWriter) Write(p []byte) (int, error) {
	w.program.Send(printMsg{text: strings.TrimRight(string(p), "\n")})
	return len(p), nil
}

// OnPlanEmit sends the plan to the program.
func (r *Renderer) OnPlanEmit(tasks []string, _ map[string][]string, targets []string) {
	r.program.Send(PlanMsg{Tasks: tasks, Targets: targets})
}

// OnTaskStart sends the task start to the program.
func (r *Renderer) OnTaskStart(spanID, parentID, name string, startTime time.Time) {
	r.program.Send(TaskStartMsg{SpanID: spanID, ParentID: parentID, Name: name, StartTime: startTime})
}

// OnTaskLog copies data, which the caller may reuse, and sends it to the program.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	r.program.Send(TaskLogMsg{SpanID: spanID, Data: append([]byte(nil), data...)})
}

// OnTaskComplete sends the task completion to the program.
func (r *Renderer) OnTaskComplete(spanID string, endTime time.Time, err error) {
	r.program.Send(TaskCompleteMsg{SpanID: spanID, EndTime: endTime, Err: err})
}

// Flush is a no-op; task output is never held back.
func (r *Renderer) Flush() error {
	return nil
}
