// Package telemetry translates interp.Event into OpenTelemetry spans and
// metrics, the way a long-running document execution engine observes itself
// in production: one span per run, one child span per operation node.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fractalic-run/fractalic/interp"
)

// TracingHandler turns interp events into spans: one root span per RunID,
// one child span per node key within that run.
type TracingHandler struct {
	tracer trace.Tracer

	mu        sync.RWMutex
	runSpans  map[string]trace.Span
	runCtxs   map[string]context.Context
	nodeSpans map[string]trace.Span // runID:nodeKey -> span
}

// NewTracingHandler creates a handler that starts spans on tracer.
func NewTracingHandler(tracer trace.Tracer) *TracingHandler {
	return &TracingHandler{
		tracer:    tracer,
		runSpans:  make(map[string]trace.Span),
		runCtxs:   make(map[string]context.Context),
		nodeSpans: make(map[string]trace.Span),
	}
}

// Emit implements interp.Emitter.
func (h *TracingHandler) Emit(e interp.Event) {
	switch e.Stage {
	case interp.EventRunStart:
		h.startRun(e)
	case interp.EventNodeStart:
		h.startNode(e)
	case interp.EventNodeDone:
		h.endNode(e, codes.Ok, "")
	case interp.EventRunFailed:
		h.endNode(e, codes.Error, e.Message)
		h.endRun(e, codes.Error, e.Message)
	case interp.EventRunDone:
		h.endRun(e, codes.Ok, "")
	}
}

func (h *TracingHandler) startRun(e interp.Event) {
	ctx, span := h.tracer.Start(context.Background(), "run:"+e.RunID,
		trace.WithAttributes(attribute.String("fractalic.run_id", e.RunID)))

	h.mu.Lock()
	h.runSpans[e.RunID] = span
	h.runCtxs[e.RunID] = ctx
	h.mu.Unlock()
}

func (h *TracingHandler) startNode(e interp.Event) {
	h.mu.RLock()
	parentCtx, ok := h.runCtxs[e.RunID]
	h.mu.RUnlock()
	if !ok {
		parentCtx = context.Background()
	}

	_, span := h.tracer.Start(parentCtx, "op:"+e.OpName,
		trace.WithAttributes(
			attribute.String("fractalic.run_id", e.RunID),
			attribute.String("fractalic.node_key", e.NodeKey),
			attribute.String("fractalic.op_name", e.OpName),
		))

	h.mu.Lock()
	h.nodeSpans[e.RunID+":"+e.NodeKey] = span
	h.mu.Unlock()
}

func (h *TracingHandler) endNode(e interp.Event, status codes.Code, msg string) {
	key := e.RunID + ":" + e.NodeKey
	h.mu.Lock()
	span, ok := h.nodeSpans[key]
	if ok {
		delete(h.nodeSpans, key)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	span.SetStatus(status, msg)
	span.End()
}

func (h *TracingHandler) endRun(e interp.Event, status codes.Code, msg string) {
	h.mu.Lock()
	span, ok := h.runSpans[e.RunID]
	if ok {
		delete(h.runSpans, e.RunID)
		delete(h.runCtxs, e.RunID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	span.SetStatus(status, msg)
	span.End()
}

var _ interp.Emitter = (*TracingHandler)(nil)
