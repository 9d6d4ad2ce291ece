package interp

import (
	"context"
	"sync"

	"github.com/fractalic-run/fractalic/address"
	"github.com/fractalic-run/fractalic/ferrors"
	"github.com/fractalic-run/fractalic/tree"
)

func resolveTo(rt *Runtime, spec any) (*tree.Node, error) {
	nodes, err := address.Resolve(rt.Tree, spec)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return nodes[0], nil
}

// DirectiveKind is what a handler tells the driver loop to do next.
type DirectiveKind int

const (
	DirectiveAdvance DirectiveKind = iota
	DirectiveJump
	DirectiveHalt
)

// Directive is a handler's instruction to the driver loop.
type Directive struct {
	Kind     DirectiveKind
	Target   *tree.Node   // for DirectiveJump
	Fragment []*tree.Node // for DirectiveHalt, the run's return value
}

// Handler executes one operation node and reports what the driver should do
// next. Handlers apply their own tree mutations (via ApplyMerge) before
// returning; the driver only manages cursor movement and run-once state.
type Handler func(ctx context.Context, rt *Runtime, node *tree.Node) (Directive, error)

var (
	handlerMu sync.RWMutex
	handlers  = map[string]Handler{}
)

// Register installs h as the handler for operation name. Called from each
// operation package's init(), before any Run executes.
func Register(name string, h Handler) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	handlers[name] = h
}

func lookup(name string) (Handler, bool) {
	handlerMu.RLock()
	defer handlerMu.RUnlock()
	h, ok := handlers[name]
	return h, ok
}

// Run drives rt's tree from its current cursor until completion, a halt, or
// an error. explicit reports whether termination was via @return (fragment
// is its payload) as opposed to running off the end of the tree.
func Run(ctx context.Context, rt *Runtime) (explicit bool, fragment []*tree.Node, err error) {
	// loopGuarded tracks operation nodes that lie inside a run-once @goto's
	// loop body: once that goto has taken its one permitted jump, every node
	// it jumped back over is guarded against re-firing too, the same as if
	// each carried its own run-once. Keyed by node key since nodes aren't
	// comparable as map keys across a Clone.
	loopGuarded := map[string]bool{}

	rt.Svc.Emitter.Emit(Event{Stage: EventRunStart, RunID: rt.RunID})
	for {
		if err := ctx.Err(); err != nil {
			return false, nil, ferrors.Wrap(ferrors.KindCancelled, "interp", err)
		}

		node := rt.cursor
		if node == nil {
			rt.Svc.Emitter.Emit(Event{Stage: EventRunDone, RunID: rt.RunID})
			return false, nil, nil
		}

		if node.Kind != tree.KindOperation {
			rt.cursor = node.Next
			continue
		}

		if (runOnce(node) || loopGuarded[node.Key]) && node.Fired {
			rt.cursor = node.Next
			continue
		}

		h, ok := lookup(node.OpName)
		if !ok {
			e := ferrors.New(ferrors.KindInternal, node.OpName, "no handler registered for operation")
			rt.Svc.Emitter.Emit(Event{Stage: EventRunFailed, RunID: rt.RunID, NodeKey: node.Key, OpName: node.OpName, Message: e.Error()})
			return false, nil, e
		}

		rt.Svc.Emitter.Emit(Event{Stage: EventNodeStart, RunID: rt.RunID, NodeKey: node.Key, OpName: node.OpName})
		dir, herr := h(ctx, rt, node)
		if herr != nil {
			rt.Svc.Emitter.Emit(Event{Stage: EventRunFailed, RunID: rt.RunID, NodeKey: node.Key, OpName: node.OpName, Message: herr.Error()})
			return false, nil, herr
		}
		node.Fired = true
		rt.Svc.Emitter.Emit(Event{Stage: EventNodeDone, RunID: rt.RunID, NodeKey: node.Key, OpName: node.OpName})

		switch dir.Kind {
		case DirectiveAdvance:
			rt.cursor = node.Next
		case DirectiveJump:
			if runOnce(node) {
				guardLoopBody(loopGuarded, dir.Target, node)
			}
			rt.cursor = dir.Target
		case DirectiveHalt:
			rt.Svc.Emitter.Emit(Event{Stage: EventRunDone, RunID: rt.RunID})
			return true, dir.Fragment, nil
		}
	}
}

func runOnce(node *tree.Node) bool {
	v, ok := node.Params["run-once"]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// guardLoopBody marks every operation node from from up to and including
// jumpNode (the run-once @goto that just took its one permitted jump) as
// loop-guarded, so a second pass through the same span skips them even
// though they don't declare run-once themselves.
func guardLoopBody(guarded map[string]bool, from, jumpNode *tree.Node) {
	for n := from; n != nil; n = n.Next {
		if n.Kind == tree.KindOperation {
			guarded[n.Key] = true
		}
		if n == jumpNode {
			return
		}
	}
}

// ApplyMerge splices fragment into rt.Tree relative to target (defaulting to
// opNode when target is nil) under mode, tagging every fragment node as
// operation-produced content.
func ApplyMerge(rt *Runtime, opNode, target *tree.Node, mode tree.InsertMode, fragment []*tree.Node) error {
	if target == nil {
		target = opNode
	}
	for _, n := range fragment {
		n.Role = tree.RoleAssistant
		n.Enabled = true
	}
	return rt.Tree.Insert(target, fragment, mode)
}

// MergeParams extracts mode/to from an operation's params, resolving "to"
// against rt.Tree when present. mode defaults to def when absent or not a
// string; an unrecognized mode string is a ParseError.
func MergeParams(rt *Runtime, node *tree.Node, def tree.InsertMode) (tree.InsertMode, *tree.Node, error) {
	mode := def
	if v, ok := node.Params["mode"]; ok {
		if s, ok := v.(string); ok {
			switch tree.InsertMode(s) {
			case tree.ModeAppend, tree.ModePrepend, tree.ModeReplace:
				mode = tree.InsertMode(s)
			default:
				return "", nil, ferrors.New(ferrors.KindParseError, node.OpName, "invalid mode "+s)
			}
		}
	}

	var target *tree.Node
	if v, ok := node.Params["to"]; ok {
		resolved, err := resolveTo(rt, v)
		if err != nil {
			return "", nil, err
		}
		if resolved == nil {
			return "", nil, ferrors.New(ferrors.KindBlockNotFound, node.OpName, "to path did not resolve")
		}
		target = resolved
	}
	return mode, target, nil
}
