// Package shell runs external tools and wraps them as pipeline stages.
package shell

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/creack/pty"
	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/brisk/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Executor = (*Executor)(nil)

// Executor implements ports.Executor using os/exec and pty.
type Executor struct {
	logger ports.Logger
}

// NewExecutor creates a new Executor.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{logger: logger}
}

// Execute runs cmd in a PTY so tools keep their terminal formatting, streaming output to out.
func (e *Executor) Execute(ctx context.Context, cmd *domain.Command, out io.Writer) error {
	c := e.command(ctx, cmd)

	ptmx, err := pty.Start(c)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to start pty"), "command", cmd.Name)
	}

	debugLog := &logWriter{log: e.logger.Debug}
	ioDone := make(chan struct{})
	go func() {
		defer close(ioDone)
		defer func() { _ = ptmx.Close() }()
		defer func() { _ = debugLog.Close() }()

		// The PTY merges stdout and stderr. Reading fails with EIO once the child exits.
		_, _ = io.Copy(io.MultiWriter(debugLog, out), ptmx)
	}()

	err = c.Wait()
	<-ioDone

	if err != nil {
		return exitError(err, cmd.Name)
	}
	return nil
}

// Capture runs cmd with plain pipes, feeding stdin and returning stdout.
func (e *Executor) Capture(ctx context.Context, cmd *domain.Command, stdin []byte, stderr io.Writer) ([]byte, error) {
	c := e.command(ctx, cmd)

	var stdout, errBuf bytes.Buffer
	warnLog := &logWriter{log: e.logger.Warn}
	defer func() { _ = warnLog.Close() }()

	if stderr == nil {
		stderr = io.Discard
	}

	c.Stdin = bytes.NewReader(stdin)
	c.Stdout = &stdout
	c.Stderr = io.MultiWriter(&errBuf, stderr, warnLog)

	if err := c.Run(); err != nil {
		return nil, zerr.With(exitError(err, cmd.Name), "stderr", strings.TrimSpace(errBuf.String()))
	}

	return stdout.Bytes(), nil
}

func (e *Executor) command(ctx context.Context, cmd *domain.Command) *exec.Cmd {
	dir := cmd.Dir
	if dir == "" {
		dir, _ = os.Getwd()
	}

	env := resolveEnvironment(os.Environ(), filepath.Join(dir, "node_modules", ".bin"), cmd.Env)

	executable := cmd.Name
	if !filepath.IsAbs(cmd.Name) {
		if lp, err := lookPath(cmd.Name, env); err == nil {
			executable = lp
		}
	}

	c := exec.CommandContext(ctx, executable, cmd.Args...) //nolint:gosec // commands are fixed by the task definitions
	c.Args[0] = cmd.Name
	c.Dir = cmd.Dir
	c.Env = env

	return c
}

func exitError(err error, name string) error {
	exitCode := -1
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	}
	return zerr.With(zerr.With(zerr.Wrap(err, "command failed"), "exit_code", exitCode), "command", name)
}

// logWriter forwards complete lines to a log function.
type logWriter struct {
	log func(string)
	buf []byte
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	w.buf = append(w.buf, p...)

	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.logLine(w.buf[:i])
		w.buf = w.buf[i+1:]
	}

	return len(p), nil
}

func (w *logWriter) Close() error {
	if len(w.buf) > 0 {
		w.logLine(w.buf)
		w.buf = nil
	}
	return nil
}

func (w *logWriter) logLine(line []byte) {
	// PTYs may introduce \r.
	w.log(strings.TrimSuffix(string(line), "\r"))
}

// allowListedEnvVars are the system environment variables inherited by tools.
var allowListedEnvVars = map[string]struct{}{
	"HOME": {},
	"TERM": {},
	"USER": {},
	"PATH": {},
}

// resolveEnvironment keeps the allow-listed system variables, puts binDir
// first on PATH and applies the command's overrides last.
func resolveEnvironment(sysEnv []string, binDir string, cmdEnv map[string]string) []string {
	envMap := filterSystemEnv(sysEnv)

	if sysPath, exists := envMap["PATH"]; exists && sysPath != "" {
		envMap["PATH"] = binDir + string(os.PathListSeparator) + sysPath
	} else {
		envMap["PATH"] = binDir
	}

	for k, v := range cmdEnv {
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	return result
}

func filterSystemEnv(sysEnv []string) map[string]string {
	envMap := make(map[string]string)
	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if ok {
			if _, allowed := allowListedEnvVars[k]; allowed {
				envMap[k] = v
			}
		}
	}
	return envMap
}

// lookPath searches for an executable in the directories named by PATH in env.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
