package domain

// ReactionKind selects what a watch binding does when one of its patterns matches.
type ReactionKind uint8

const (
	// ReactRunTask re-runs a named task.
	ReactRunTask ReactionKind = iota
	// ReactNotifyReload pushes the changed path to live-reload clients.
	ReactNotifyReload
)

// Reaction is the effect of a matching watch binding.
type Reaction struct {
	Kind ReactionKind
	Task InternedString
}

// RunTask returns a reaction that re-runs the named task.
func RunTask(name string) Reaction {
	return Reaction{Kind: ReactRunTask, Task: NewInternedString(name)}
}

// NotifyReload returns a reaction that notifies live-reload clients.
func NotifyReload() Reaction {
	return Reaction{Kind: ReactNotifyReload}
}

func (r Reaction) String() string {
	if r.Kind == ReactRunTask {
		return "run " + r.Task.String()
	}
	return "notify"
}

// WatchBinding maps slash-separated glob patterns, relative to the project root, to a reaction.
type WatchBinding struct {
	Patterns []string
	Reaction Reaction
}
