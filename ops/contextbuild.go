package ops

import (
	"github.com/fractalic-run/fractalic/address"
	"github.com/fractalic-run/fractalic/interp"
	"github.com/fractalic-run/fractalic/tree"
)

// contextNodes implements the node-selection half of the normative @llm /
// @run context-construction rules:
//
//  1. block present, prompt absent: the resolved block region(s).
//  2. prompt present, block absent: every node preceding this operation, in
//     document order.
//  3. both present: case 1's nodes (the trailing prompt is appended by the
//     caller, as a chat turn for @llm or as appended text for @run).
func contextNodes(rt *interp.Runtime, node *tree.Node) ([]*tree.Node, error) {
	if blockSpec, hasBlock := node.Params["block"]; hasBlock {
		return address.Region(rt.Tree, blockSpec)
	}

	var preceding []*tree.Node
	for n := rt.Tree.Head(); n != nil && n != node; n = n.Next {
		preceding = append(preceding, n)
	}
	return preceding, nil
}
