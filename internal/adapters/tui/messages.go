package tui

import "time"

// PlanMsg announces the tasks a run will execute. Nested runs send their own
// plan; tasks already listed keep their row.
type PlanMsg struct {
	Tasks   []string
	Targets []string
}

// TaskStartMsg marks a task as running under SpanID.
type TaskStartMsg struct {
	SpanID    string
	ParentID  string
	Name      string
	StartTime time.Time
}

// TaskLogMsg carries raw task output. Data may hold partial lines.
type TaskLogMsg struct {
	SpanID string
	Data   []byte
}

// TaskCompleteMsg ends the task running under SpanID. Err is nil on success.
type TaskCompleteMsg struct {
	SpanID  string
	EndTime time.Time
	Err     error
}

// FinishedMsg tells the model the run is over. The model renders its summary
// and quits.
type FinishedMsg struct{}

// printMsg asks the model to print a line above the task list.
type printMsg struct {
	text string
}
