package domain

import "context"

// Action is the body of a task. Tasks without an action only aggregate their dependencies.
type Action func(ctx context.Context) error

// Task is a named node in the build graph.
type Task struct {
	Name         InternedString
	Dependencies []InternedString
	Action       Action
}

// Command describes an external program invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env holds overrides applied on top of the inherited allow-listed environment.
	Env map[string]string
}
