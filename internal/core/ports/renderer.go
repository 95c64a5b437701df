package ports

import "time"

// Renderer turns task lifecycle events into console output.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// OnPlanEmit is called when the runner has resolved which tasks will run.
	// tasks: task names in execution order
	// deps: dependency map (task -> list of dependencies)
	// targets: the requested root tasks
	OnPlanEmit(tasks []string, deps map[string][]string, targets []string)

	// OnTaskStart is called when a task begins execution.
	OnTaskStart(spanID, parentID, name string, startTime time.Time)

	// OnTaskLog is called when a task emits output. data may contain partial lines.
	OnTaskLog(spanID string, data []byte)

	// OnTaskComplete is called when a task finishes. err is nil on success.
	OnTaskComplete(spanID string, endTime time.Time, err error)

	// Flush writes any buffered partial lines.
	Flush() error
}
