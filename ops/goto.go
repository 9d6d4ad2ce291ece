package ops

import (
	"context"

	"github.com/fractalic-run/fractalic/ferrors"
	"github.com/fractalic-run/fractalic/interp"
	"github.com/fractalic-run/fractalic/tree"
)

func init() {
	interp.Register("goto", gotoHandler)
}

// gotoHandler resolves block to a heading node and jumps there. Targeting an
// operation node, or an id that doesn't exist, is fatal.
func gotoHandler(ctx context.Context, rt *interp.Runtime, node *tree.Node) (interp.Directive, error) {
	id, _ := stringParam(node.Params, "block")

	target, ok := rt.Tree.FindByIDOrKey(id)
	if !ok {
		return interp.Directive{}, ferrors.New(ferrors.KindBlockNotFound, "goto", "no node with id or key "+id)
	}
	if target.Kind != tree.KindHeading {
		return interp.Directive{}, ferrors.New(ferrors.KindParseError, "goto", "goto target "+id+" is not a heading")
	}

	return interp.Directive{Kind: interp.DirectiveJump, Target: target}, nil
}
