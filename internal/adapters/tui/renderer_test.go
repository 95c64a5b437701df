package tui_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/brisk/internal/adapters/tui"
)

func newTestRenderer(stderr io.Writer) *tui.Renderer {
	return tui.NewRenderer(stderr,
		tea.WithInput(strings.NewReader("")),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
		tea.WithoutRenderer(),
	)
}

func TestRenderer_RunToCompletion(t *testing.T) {
	var stderr bytes.Buffer
	r := newTestRenderer(&stderr)

	var interrupted atomic.Bool
	r.Start(func() { interrupted.Store(true) })

	r.OnPlanEmit([]string{"stylus", "jshint"}, map[string][]string{}, []string{"html"})
	r.OnTaskStart("s", "", "stylus", t0)
	r.OnTaskLog("s", []byte("compiled main.styl\n"))
	r.OnTaskComplete("s", t0.Add(time.Second), nil)
	r.OnTaskStart("j", "", "jshint", t0)
	r.OnTaskLog("j", []byte("main.js: line 1, Missing semicolon.\n"))
	r.OnTaskComplete("j", t0.Add(time.Second), errors.New("lint failed"))
	require.NoError(t, r.Flush())

	r.Stop()
	require.NoError(t, r.Wait())

	m := r.Model()
	assert.True(t, m.Finished)
	assert.False(t, interrupted.Load())
	requireStatus(t, m, "stylus", tui.StatusDone)
	requireStatus(t, m, "jshint", tui.StatusFailed)

	assert.Contains(t, stderr.String(), "[jshint] output:")
	assert.Contains(t, stderr.String(), "Missing semicolon.")
	assert.NotContains(t, stderr.String(), "main.styl", "only failed tasks are replayed")
}

func TestRenderer_LogDataIsCopied(t *testing.T) {
	r := newTestRenderer(io.Discard)
	r.Start(nil)

	r.OnPlanEmit([]string{"stylus"}, nil, []string{"stylus"})
	r.OnTaskStart("s", "", "stylus", t0)
	data := []byte("first\n")
	r.OnTaskLog("s", data)
	copy(data, "XXXXX\n")

	r.Stop()
	require.NoError(t, r.Wait())

	row, ok := r.Model().Row("stylus")
	require.True(t, ok)
	assert.Contains(t, row.Pane.Transcript(), "first")
	assert.NotContains(t, row.Pane.Transcript(), "XXXXX")
}

func TestRenderer_UserQuitInterrupts(t *testing.T) {
	r := newTestRenderer(io.Discard)

	interrupted := make(chan struct{})
	r.Start(func() { close(interrupted) })

	r.OnPlanEmit([]string{"jshint"}, nil, []string{"jshint"})
	r.Program().Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	select {
	case <-interrupted:
	case <-time.After(5 * time.Second):
		t.Fatal("quitting did not interrupt the run")
	}
	require.NoError(t, r.Wait())
	assert.True(t, r.Model().Interrupted)

	// Events after the program exited are dropped without blocking.
	r.OnTaskStart("j", "", "jshint", t0)
	r.Stop()
}

func TestRenderer_LogWriterDoesNotBlockAfterExit(t *testing.T) {
	r := newTestRenderer(io.Discard)
	r.Start(nil)

	n, err := r.LogWriter().Write([]byte("INFO watching app/\n"))
	require.NoError(t, err)
	assert.Equal(t, len("INFO watching app/\n"), n)

	r.Stop()
	require.NoError(t, r.Wait())

	_, err = r.LogWriter().Write([]byte("late\n"))
	assert.NoError(t, err)
}
