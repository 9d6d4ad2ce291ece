package interp

import (
	"github.com/fractalic-run/fractalic/config"
	"github.com/fractalic-run/fractalic/llmmediator"
	"github.com/fractalic-run/fractalic/tool"
	"github.com/fractalic-run/fractalic/tree"
)

// CallFrame records one level of @run nesting, the way the recorder's call
// tree wants it: the file being executed, the key of the operation that
// invoked it, and a synthetic id for the child run.
type CallFrame struct {
	File       string
	CallerKey  string
	ChildRunID string
	Parent     *CallFrame
}

// Depth returns the nesting depth of the frame, 0 for the top-level run.
func (f *CallFrame) Depth() int {
	d := 0
	for p := f; p != nil && p.Parent != nil; p = p.Parent {
		d++
	}
	return d
}

// Services bundles the shared, read-mostly collaborators operation handlers
// call out to. A single Services value is reused across every nested @run
// invocation within one top-level execution.
type Services struct {
	Config  *config.Config
	Tools   *tool.Registry
	Chat    llmmediator.ChatClient
	Emitter Emitter
}

// Runtime is the mutable execution state for one tree: the cursor, the tree
// itself, the directory relative file operations resolve against, and the
// call frame identifying this run within the larger call tree.
type Runtime struct {
	Tree    *tree.Tree
	BaseDir string
	RunID   string
	Frame   *CallFrame
	Svc     *Services

	cursor *tree.Node
}

// NewRuntime creates a Runtime positioned at the head of tr.
func NewRuntime(tr *tree.Tree, baseDir, runID string, frame *CallFrame, svc *Services) *Runtime {
	if svc == nil {
		svc = &Services{Emitter: NopEmitter{}}
	}
	if svc.Emitter == nil {
		svc.Emitter = NopEmitter{}
	}
	return &Runtime{Tree: tr, BaseDir: baseDir, RunID: runID, Frame: frame, Svc: svc, cursor: tr.Head()}
}

// Cursor returns the node the driver loop will execute next.
func (rt *Runtime) Cursor() *tree.Node { return rt.cursor }
