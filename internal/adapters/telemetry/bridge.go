package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/brisk/internal/core/ports"
)

// Bridge is a span processor that turns task spans into renderer events.
// Spans from any tracer other than InstrumentationName are not tasks and
// are ignored.
type Bridge struct {
	renderer ports.Renderer
}

var _ trace.SpanProcessor = (*Bridge)(nil)

// exceptionMessage is the attribute RecordError sets on its event.
const exceptionMessage = attribute.Key("exception.message")

// NewBridge returns a Bridge forwarding to renderer, which must not be nil.
func NewBridge(renderer ports.Renderer) *Bridge {
	return &Bridge{renderer: renderer}
}

func isTask(s trace.ReadOnlySpan) bool {
	return s.SpanContext().IsValid() && s.InstrumentationScope().Name == InstrumentationName
}

// OnStart reports a started task. A task started from inside another task,
// such as build running after clean, names that task as its parent.
func (b *Bridge) OnStart(_ context.Context, s trace.ReadWriteSpan) {
	if !isTask(s) {
		return
	}

	var parentID string
	if parent := s.Parent(); parent.IsValid() {
		parentID = parent.SpanID().String()
	}
	b.renderer.OnTaskStart(s.SpanContext().SpanID().String(), parentID, s.Name(), s.StartTime())
}

// OnEnd reports a finished task. Its output batcher has already been closed
// by OTelSpan.End, so every log line precedes the completion.
func (b *Bridge) OnEnd(s trace.ReadOnlySpan) {
	if !isTask(s) {
		return
	}
	b.renderer.OnTaskComplete(s.SpanContext().SpanID().String(), s.EndTime(), failure(s))
}

// failure returns nil for a task that did not fail. Otherwise it returns the
// status description, falling back to the last recorded exception message.
func failure(s trace.ReadOnlySpan) error {
	if s.Status().Code != codes.Error {
		return nil
	}
	if desc := s.Status().Description; desc != "" {
		return errors.New(desc)
	}

	events := s.Events()
	for i := len(events) - 1; i >= 0; i-- {
		for _, kv := range events[i].Attributes {
			if kv.Key == exceptionMessage && kv.Value.AsString() != "" {
				return errors.New(kv.Value.AsString())
			}
		}
	}
	return errors.New("task failed")
}

// ForceFlush writes partial output lines held by the renderer.
func (b *Bridge) ForceFlush(_ context.Context) error {
	return b.renderer.Flush()
}

// Shutdown writes partial output lines held by the renderer. It runs once,
// when the run's provider shuts down.
func (b *Bridge) Shutdown(_ context.Context) error {
	return b.renderer.Flush()
}
