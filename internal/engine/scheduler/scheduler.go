// Package scheduler runs a task and its transitive dependencies from a validated graph.
package scheduler

import (
	"context"
	"errors"

	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/brisk/internal/core/ports"
	"go.trai.ch/zerr"
)

// Scheduler manages the execution of tasks in the dependency graph.
// It never mutates the graph, so nested runs may share one.
type Scheduler struct {
	tracer ports.Tracer
}

// NewScheduler creates a new Scheduler that traces every task with tracer.
func NewScheduler(tracer ports.Tracer) *Scheduler {
	return &Scheduler{tracer: tracer}
}

// Run executes target after all of its transitive dependencies, each exactly once.
// The graph must already be validated. Independent tasks run concurrently, at
// most parallelism at a time. After a failure no new task is started; tasks
// already running finish and every error is returned joined.
func (s *Scheduler) Run(ctx context.Context, graph *domain.Graph, target string, parallelism int) error {
	if !graph.Validated() {
		return zerr.With(zerr.Wrap(domain.ErrGraphNotValidated, "cannot run task"), "task", target)
	}
	if parallelism < 1 {
		parallelism = 1
	}

	name := domain.NewInternedString(target)
	if _, ok := graph.GetTask(name); !ok {
		return zerr.With(zerr.Wrap(domain.ErrTaskNotFound, "cannot run task"), "task", target)
	}

	state := s.newRunState(ctx, graph, name, parallelism)

	// Filter the graph's topological order to the tasks in this run.
	plannedTasks := make([]string, 0, len(state.tasks))
	depMap := make(map[string][]string, len(state.tasks))
	for task := range graph.Walk() {
		if _, ok := state.tasks[task.Name]; !ok {
			continue
		}
		plannedTasks = append(plannedTasks, task.Name.String())
		deps := make([]string, len(task.Dependencies))
		for i, dep := range task.Dependencies {
			deps[i] = dep.String()
		}
		depMap[task.Name.String()] = deps
	}

	s.tracer.EmitPlan(ctx, plannedTasks, depMap, []string{target})

	return state.runExecutionLoop()
}

type result struct {
	task domain.InternedString
	err  error
}

type schedulerRunState struct {
	graph       *domain.Graph
	inDegree    map[domain.InternedString]int
	tasks       map[domain.InternedString]domain.Task
	ready       []domain.InternedString
	active      int
	failed      bool
	resultsCh   chan result
	errs        error
	ctx         context.Context
	parallelism int
	s           *Scheduler
}

func (s *Scheduler) newRunState(
	ctx context.Context,
	graph *domain.Graph,
	target domain.InternedString,
	parallelism int,
) *schedulerRunState {
	allTasks := collectDependencies(graph, target)

	inDegree := make(map[domain.InternedString]int, len(allTasks))
	tasks := make(map[domain.InternedString]domain.Task, len(allTasks))
	for _, name := range allTasks {
		task, _ := graph.GetTask(name)
		tasks[name] = task
	}

	var ready []domain.InternedString
	for task := range graph.Walk() {
		if _, ok := tasks[task.Name]; !ok {
			continue
		}
		inDegree[task.Name] = len(task.Dependencies)
		if len(task.Dependencies) == 0 {
			ready = append(ready, task.Name)
		}
	}

	return &schedulerRunState{
		graph:       graph,
		inDegree:    inDegree,
		tasks:       tasks,
		ready:       ready,
		resultsCh:   make(chan result, parallelism),
		ctx:         ctx,
		parallelism: parallelism,
		s:           s,
	}
}

// collectDependencies returns target and everything it transitively depends on, breadth first.
func collectDependencies(graph *domain.Graph, target domain.InternedString) []domain.InternedString {
	queue := []domain.InternedString{target}
	visited := map[domain.InternedString]bool{target: true}
	var allTasks []domain.InternedString

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		allTasks = append(allTasks, current)

		task, _ := graph.GetTask(current)
		for _, dep := range task.Dependencies {
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, dep)
			}
		}
	}

	return allTasks
}

func (state *schedulerRunState) runExecutionLoop() error {
	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil {
			if state.active == 0 {
				return errors.Join(state.errs, state.ctx.Err())
			}
			// Running tasks are not interrupted; wait for each to report.
			state.handleResult(<-state.resultsCh)
			continue
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
		}
	}

	if state.ctx.Err() != nil {
		state.errs = errors.Join(state.errs, state.ctx.Err())
	}

	return state.errs
}

func (state *schedulerRunState) isDone() bool {
	return state.active == 0 && (len(state.ready) == 0 || state.failed)
}

func (state *schedulerRunState) schedule() {
	for len(state.ready) > 0 && state.active < state.parallelism && !state.failed && state.ctx.Err() == nil {
		taskName := state.ready[0]
		state.ready = state.ready[1:]

		state.active++

		t := state.tasks[taskName]
		go state.executeTask(&t)
	}
}

func (state *schedulerRunState) executeTask(t *domain.Task) {
	// The span is ended before the result is sent so that the run never
	// completes with a span still open.
	res := func() result {
		ctx, span := state.s.tracer.Start(state.ctx, t.Name.String())
		defer span.End()

		if t.Action == nil {
			return result{task: t.Name}
		}

		err := t.Action(ports.ContextWithSpan(ctx, span))
		if err != nil {
			span.RecordError(err)
		}
		return result{task: t.Name, err: err}
	}()

	state.resultsCh <- res
}

func (state *schedulerRunState) handleResult(res result) {
	state.active--

	if res.err != nil {
		enhancedErr := zerr.With(zerr.Wrap(res.err, domain.ErrTaskExecutionFailed.Error()), "task", res.task.String())
		state.errs = errors.Join(state.errs, enhancedErr)
		state.failed = true
		return
	}

	for _, dep := range state.graph.Dependents(res.task) {
		if _, ok := state.tasks[dep]; !ok {
			continue
		}
		state.inDegree[dep]--
		if state.inDegree[dep] == 0 {
			state.ready = append(state.ready, dep)
		}
	}
}
