// Package domain contains the core domain models for the task graph, configuration and pipeline files.
package domain

import (
	"iter"
	"maps"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Graph is a dependency graph of tasks.
type Graph struct {
	tasks          map[InternedString]Task
	dependents     map[InternedString][]InternedString
	executionOrder []InternedString
	validated      bool
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		tasks:      make(map[InternedString]Task),
		dependents: make(map[InternedString][]InternedString),
	}
}

// AddTask adds a task to the graph.
// It returns an error if a task with the same name already exists.
func (g *Graph) AddTask(t *Task) error {
	if t.Name.IsZero() || t.Name.String() == "" {
		return ErrInvalidTaskName
	}
	if _, exists := g.tasks[t.Name]; exists {
		return zerr.With(zerr.Wrap(ErrTaskAlreadyExists, "cannot register task"), "task_name", t.Name.String())
	}
	g.tasks[t.Name] = *t
	g.executionOrder = nil
	g.validated = false
	return nil
}

// Register adds a task by name. Dependencies may name tasks registered later;
// they are checked by Validate.
func (g *Graph) Register(name string, dependencies []string, action Action) error {
	return g.AddTask(&Task{
		Name:         NewInternedString(name),
		Dependencies: NewInternedStrings(dependencies),
		Action:       action,
	})
}

// Validate checks for missing dependencies and cycles using a topological sort.
// It populates the execution order and the reverse dependency index if successful.
// Tasks are visited in name order so the resulting order is deterministic.
func (g *Graph) Validate() error {
	order := make([]InternedString, 0, len(g.tasks))
	visited := make(map[InternedString]int, len(g.tasks)) // 0: unvisited, 1: visiting, 2: visited
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		visited[u] = 1
		path = append(path, u)

		task := g.tasks[u]
		for _, dep := range task.Dependencies {
			if _, exists := g.tasks[dep]; !exists {
				err := zerr.With(zerr.Wrap(ErrMissingDependency, "invalid task graph"), "dependency", dep.String())
				return zerr.With(err, "task", u.String())
			}
			if visited[dep] == 1 {
				return g.buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		order = append(order, u)
		return nil
	}

	for _, name := range g.sortedNames() {
		if visited[name] == 0 {
			if err := visit(name); err != nil {
				return err
			}
		}
	}

	dependents := make(map[InternedString][]InternedString, len(g.tasks))
	for _, name := range order {
		for _, dep := range g.tasks[name].Dependencies {
			dependents[dep] = append(dependents[dep], name)
		}
	}

	g.executionOrder = order
	g.dependents = dependents
	g.validated = true
	return nil
}

// buildCycleError constructs an error with cycle path metadata.
func (g *Graph) buildCycleError(path []InternedString, dep InternedString) error {
	startIdx := slices.Index(path, dep)
	parts := make([]string, 0, len(path)-startIdx+1)
	for _, node := range path[startIdx:] {
		parts = append(parts, node.String())
	}
	parts = append(parts, dep.String())
	return zerr.With(zerr.Wrap(ErrCycleDetected, "invalid task graph"), "cycle", strings.Join(parts, " -> "))
}

func (g *Graph) sortedNames() []InternedString {
	return SortInterned(slices.Collect(maps.Keys(g.tasks)))
}

// Walk returns an iterator that yields tasks in execution order.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Walk() iter.Seq[Task] {
	return func(yield func(Task) bool) {
		for _, name := range g.executionOrder {
			if !yield(g.tasks[name]) {
				return
			}
		}
	}
}

// GetTask returns the task registered under name.
func (g *Graph) GetTask(name InternedString) (Task, bool) {
	t, ok := g.tasks[name]
	return t, ok
}

// Validated reports whether Validate succeeded since the last AddTask.
func (g *Graph) Validated() bool {
	return g.validated
}

// Dependents returns the tasks that directly depend on name.
// It is populated by Validate.
func (g *Graph) Dependents(name InternedString) []InternedString {
	return g.dependents[name]
}

// Names returns every registered task name in sorted order.
func (g *Graph) Names() []string {
	names := g.sortedNames()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n.String()
	}
	return out
}
