package telemetry_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.trai.ch/brisk/internal/adapters/telemetry"
	"go.trai.ch/brisk/internal/core/ports"
	"go.trai.ch/brisk/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

var (
	_ ports.Tracer = (*telemetry.OTelTracer)(nil)
	_ ports.Span   = (*telemetry.OTelSpan)(nil)
)

func TestOTelTracer_RecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tracer := telemetry.NewOTelTracer(nil, sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tracer.Shutdown(context.Background()) }()

	_, span := tracer.Start(context.Background(), "stylus", ports.WithAttribute("files", 2))
	_, err := span.Write([]byte("compiled main.styl\n"))
	require.NoError(t, err)
	span.SetAttribute("output", "main.css")
	span.RecordError(errors.New("boom"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "stylus", spans[0].Name())

	var names []string
	for _, ev := range spans[0].Events() {
		names = append(names, ev.Name)
	}
	assert.Contains(t, names, "log")
	assert.Contains(t, names, "exception")

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "2", attrs["files"])
	assert.Equal(t, "main.css", attrs["output"])
}

func TestOTelTracer_EmitPlan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRenderer(ctrl)
	renderer.EXPECT().OnTaskStart(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	renderer.EXPECT().OnTaskComplete(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	renderer.EXPECT().Flush().Return(nil).AnyTimes()

	deps := map[string][]string{"html": {"stylus"}}
	renderer.EXPECT().OnPlanEmit([]string{"stylus", "html"}, deps, []string{"html"}).Times(2)

	tracer := telemetry.NewOTelTracer(renderer, sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tracer.Shutdown(context.Background()) }()

	// Without a span in the context only the renderer hears about the plan.
	tracer.EmitPlan(context.Background(), []string{"stylus", "html"}, deps, []string{"html"})

	ctx, root := tracer.Start(context.Background(), "root")
	tracer.EmitPlan(ctx, []string{"stylus", "html"}, deps, []string{"html"})
	root.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "plan_emitted", spans[0].Events()[0].Name)
}

// logRenderer records OnTaskLog payloads per span.
type logRenderer struct {
	mu       sync.Mutex
	logs     map[string][]byte
	names    map[string]string
	complete []string
	flushed  bool
}

func newLogRenderer() *logRenderer {
	return &logRenderer{logs: map[string][]byte{}, names: map[string]string{}}
}

func (r *logRenderer) OnPlanEmit([]string, map[string][]string, []string) {}

func (r *logRenderer) OnTaskStart(spanID, _, name string, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[spanID] = name
}

func (r *logRenderer) OnTaskLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[spanID] = append(r.logs[spanID], data...)
}

func (r *logRenderer) OnTaskComplete(spanID string, _ time.Time, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete = append(r.complete, r.names[spanID])
}

func (r *logRenderer) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushed = true
	return nil
}

func TestOTelTracer_WritesReachRendererBeforeComplete(t *testing.T) {
	renderer := newLogRenderer()
	tracer := telemetry.NewOTelTracer(renderer)

	_, span := tracer.Start(context.Background(), "jshint")
	otelSpan, ok := span.(*telemetry.OTelSpan)
	require.True(t, ok)
	require.NotNil(t, otelSpan.Batcher())

	_, err := span.Write([]byte("app/scripts/main.js: line 3, "))
	require.NoError(t, err)
	_, err = span.Write([]byte("Missing semicolon.\n"))
	require.NoError(t, err)
	span.End()

	require.NoError(t, tracer.Shutdown(context.Background()))

	renderer.mu.Lock()
	defer renderer.mu.Unlock()
	require.Len(t, renderer.logs, 1)
	for spanID, data := range renderer.logs {
		assert.Equal(t, "jshint", renderer.names[spanID])
		assert.Equal(t, "app/scripts/main.js: line 3, Missing semicolon.\n", string(data))
	}
	assert.Equal(t, []string{"jshint"}, renderer.complete)
	assert.True(t, renderer.flushed)
}

func TestOTelTracer_NoRendererHasNoBatcher(t *testing.T) {
	tracer := telemetry.NewOTelTracer(nil)
	defer func() { _ = tracer.Shutdown(context.Background()) }()

	_, span := tracer.Start(context.Background(), "fonts")
	otelSpan, ok := span.(*telemetry.OTelSpan)
	require.True(t, ok)
	assert.Nil(t, otelSpan.Batcher())
	span.End()
}
