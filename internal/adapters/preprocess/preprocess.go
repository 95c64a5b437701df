// Package preprocess evaluates conditional directives embedded in HTML comments.
//
// Supported directives:
//
//	<!-- @if NODE_ENV='production' --> ... <!-- @endif -->
//	<!-- @if NODE_ENV!='production' --> ... <!-- @endif -->
//	<!-- @ifdef DEBUG --> ... <!-- @endif -->
//	<!-- @ifndef DEBUG --> ... <!-- @endif -->
//	<!-- @exclude --> ... <!-- @endexclude -->
//	<!-- @echo NODE_ENV -->
package preprocess

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/brisk/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Stage = (*Stage)(nil)

var (
	directive  = regexp.MustCompile(`<!--\s*@(\w+)\s*(.*?)\s*-->`)
	comparison = regexp.MustCompile(`^(\w+)\s*(==|!=|=)\s*(?:'([^']*)'|"([^"]*)"|(\S+))$`)
)

// Stage evaluates directives against a fixed set of variables.
type Stage struct {
	vars map[string]string
}

// New returns a stage evaluating directives against vars.
func New(vars map[string]string) *Stage {
	return &Stage{vars: vars}
}

// Name identifies the stage.
func (s *Stage) Name() string { return "preprocess" }

// Apply processes every file.
func (s *Stage) Apply(_ context.Context, files []domain.File) ([]domain.File, error) {
	out := make([]domain.File, 0, len(files))
	for _, f := range files {
		contents, err := s.Process(f.Contents)
		if err != nil {
			return nil, zerr.With(err, "file", f.Path)
		}
		out = append(out, f.WithContents(contents))
	}
	return out, nil
}

type frame struct {
	active bool
	closer string
	line   int
}

// Process returns src with directives evaluated and removed.
func (s *Stage) Process(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	var stack []frame
	active := func() bool { return len(stack) == 0 || stack[len(stack)-1].active }

	last := 0
	for _, m := range directive.FindAllSubmatchIndex(src, -1) {
		if active() {
			buf.Write(src[last:m[0]])
		}
		last = m[1]

		name := string(src[m[2]:m[3]])
		arg := string(src[m[4]:m[5]])
		line := bytes.Count(src[:m[0]], []byte("\n")) + 1

		switch name {
		case "if":
			stack = append(stack, frame{active: active() && s.eval(arg), closer: "endif", line: line})
		case "ifdef":
			_, ok := s.vars[arg]
			stack = append(stack, frame{active: active() && ok, closer: "endif", line: line})
		case "ifndef":
			_, ok := s.vars[arg]
			stack = append(stack, frame{active: active() && !ok, closer: "endif", line: line})
		case "exclude":
			stack = append(stack, frame{active: false, closer: "endexclude", line: line})
		case "endif", "endexclude":
			if len(stack) == 0 || stack[len(stack)-1].closer != name {
				return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrUnterminatedBlock, "unexpected @"+name),
					"line", line), "directive", name)
			}
			stack = stack[:len(stack)-1]
		case "echo":
			if active() {
				buf.WriteString(s.vars[arg])
			}
		default:
			if active() {
				buf.Write(src[m[0]:m[1]])
			}
		}
	}

	if len(stack) > 0 {
		open := stack[len(stack)-1]
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrUnterminatedBlock, "directive is never closed"),
			"line", open.line), "expected", "@"+open.closer)
	}

	buf.Write(src[last:])
	return buf.Bytes(), nil
}

// eval supports KEY='value', KEY!='value' and a bare KEY that must be set and non-empty.
func (s *Stage) eval(expr string) bool {
	m := comparison.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return s.vars[strings.TrimSpace(expr)] != ""
	}

	want := m[3] + m[4] + m[5]
	equal := s.vars[m[1]] == want
	if m[2] == "!=" {
		return !equal
	}
	return equal
}
