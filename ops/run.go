package ops

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fractalic-run/fractalic/ferrors"
	"github.com/fractalic-run/fractalic/interp"
	"github.com/fractalic-run/fractalic/parser"
	"github.com/fractalic-run/fractalic/render"
	"github.com/fractalic-run/fractalic/tree"
)

func init() {
	interp.Register("run", runHandler)
}

const defaultInputHeader = "Input Parameters {id=input-parameters}"

// runHandler parses file into a fresh child tree, prepends an input fragment
// built from the same three context-construction rules @llm uses (flattened
// to text rather than chat turns), and interprets the child recursively. The
// child's explicit @return fragment is merged back if present; otherwise the
// whole child tree is.
func runHandler(ctx context.Context, rt *interp.Runtime, node *tree.Node) (interp.Directive, error) {
	file, _ := stringParam(node.Params, "file")
	path := filepath.Join(rt.BaseDir, file)

	// #nosec G304 -- path is relative to the document's own directory, as documented.
	data, err := os.ReadFile(path)
	if err != nil {
		return interp.Directive{}, ferrors.Wrap(ferrors.KindFileNotFound, "run", err)
	}

	childTree, err := parser.Parse(data)
	if err != nil {
		return interp.Directive{}, err
	}

	ctxNodes, err := contextNodes(rt, node)
	if err != nil {
		return interp.Directive{}, err
	}
	if prompt, ok := stringParam(node.Params, "prompt"); ok {
		text := render.ContextText(ctxNodes)
		if text != "" {
			text += "\n\n"
		}
		text += prompt
		ctxNodes = []*tree.Node{{Kind: tree.KindContent, Level: 1, Text: text, Role: tree.RoleUser}}
	}

	if len(ctxNodes) > 0 && childTree.Head() != nil {
		inputFragment := headeredFragment(node.Params, defaultInputHeader, render.ContextText(ctxNodes), 1)
		if err := childTree.Insert(childTree.Head(), inputFragment, tree.ModePrepend); err != nil {
			return interp.Directive{}, ferrors.Wrap(ferrors.KindInternal, "run", err)
		}
	}

	childFrame := &interp.CallFrame{
		File:       file,
		CallerKey:  node.Key,
		ChildRunID: rt.RunID + "/" + node.Key,
		Parent:     rt.Frame,
	}
	childRt := interp.NewRuntime(childTree, filepath.Dir(path), childFrame.ChildRunID, childFrame, rt.Svc)

	explicit, childFragment, err := interp.Run(ctx, childRt)
	if err != nil {
		return interp.Directive{}, &ferrors.ChildFailed{File: file, Cause: err}
	}

	fragment := childFragment
	if !explicit {
		fragment = childTree.Iter()
	}
	fragment = cloneFragment(fragment)

	mode, target, err := interp.MergeParams(rt, node, rt.Svc.Config.DefaultOperation)
	if err != nil {
		return interp.Directive{}, err
	}
	if err := interp.ApplyMerge(rt, node, target, mode, fragment); err != nil {
		return interp.Directive{}, err
	}
	return interp.Directive{Kind: interp.DirectiveAdvance}, nil
}
