package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fractalic-run/fractalic/interp"
)

// MetricsHandler records counters and a node-duration histogram from interp
// events. Duration is measured locally between a node's start/done events
// since interp.Event carries no timestamp of its own.
type MetricsHandler struct {
	nodeExecutions metric.Int64Counter
	nodeFailures   metric.Int64Counter
	nodeDuration   metric.Float64Histogram
	runDuration    metric.Float64Histogram

	mu         sync.Mutex
	nodeStart  map[string]time.Time
	runStart   map[string]time.Time
}

// NewMetricsHandler creates a handler bound to meter's instruments.
func NewMetricsHandler(meter metric.Meter) (*MetricsHandler, error) {
	nodeExec, err := meter.Int64Counter("fractalic.node.executions",
		metric.WithDescription("Number of operation node executions"))
	if err != nil {
		return nil, err
	}
	nodeFail, err := meter.Int64Counter("fractalic.node.failures",
		metric.WithDescription("Number of operation node failures"))
	if err != nil {
		return nil, err
	}
	nodeDur, err := meter.Float64Histogram("fractalic.node.duration",
		metric.WithDescription("Duration of one operation node, in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	runDur, err := meter.Float64Histogram("fractalic.run.duration",
		metric.WithDescription("Duration of one document run, in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &MetricsHandler{
		nodeExecutions: nodeExec,
		nodeFailures:   nodeFail,
		nodeDuration:   nodeDur,
		runDuration:    runDur,
		nodeStart:      make(map[string]time.Time),
		runStart:       make(map[string]time.Time),
	}, nil
}

// Emit implements interp.Emitter.
func (h *MetricsHandler) Emit(e interp.Event) {
	switch e.Stage {
	case interp.EventRunStart:
		h.mu.Lock()
		h.runStart[e.RunID] = time.Now()
		h.mu.Unlock()
	case interp.EventNodeStart:
		h.mu.Lock()
		h.nodeStart[e.RunID+":"+e.NodeKey] = time.Now()
		h.mu.Unlock()
	case interp.EventNodeDone:
		h.recordNode(e, false)
	case interp.EventRunFailed:
		h.recordNode(e, true)
	case interp.EventRunDone:
		h.recordRun(e)
	}
}

func (h *MetricsHandler) recordNode(e interp.Event, failed bool) {
	key := e.RunID + ":" + e.NodeKey
	h.mu.Lock()
	start, ok := h.nodeStart[key]
	if ok {
		delete(h.nodeStart, key)
	}
	h.mu.Unlock()

	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("op_name", e.OpName),
		attribute.String("node_key", e.NodeKey),
	)
	if failed {
		h.nodeFailures.Add(ctx, 1, attrs)
		return
	}
	h.nodeExecutions.Add(ctx, 1, attrs)
	if ok {
		h.nodeDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}

func (h *MetricsHandler) recordRun(e interp.Event) {
	h.mu.Lock()
	start, ok := h.runStart[e.RunID]
	if ok {
		delete(h.runStart, e.RunID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	h.runDuration.Record(context.Background(), time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("run_id", e.RunID)))
}

var _ interp.Emitter = (*MetricsHandler)(nil)
