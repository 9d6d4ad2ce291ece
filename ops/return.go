package ops

import (
	"context"

	"github.com/fractalic-run/fractalic/address"
	"github.com/fractalic-run/fractalic/interp"
	"github.com/fractalic-run/fractalic/tree"
)

func init() {
	interp.Register("return", returnHandler)
}

// returnHandler builds a fragment from resolved blocks (if any) followed by
// prompt (if any) and halts the run with it as the return value. mode/to are
// not part of @return's schema; unknown extras are caught as ParseError at
// parse time.
func returnHandler(ctx context.Context, rt *interp.Runtime, node *tree.Node) (interp.Directive, error) {
	var fragment []*tree.Node

	if blockSpec, ok := node.Params["block"]; ok {
		blocks, err := address.Region(rt.Tree, blockSpec)
		if err != nil {
			return interp.Directive{}, err
		}
		fragment = append(fragment, cloneFragment(blocks)...)
	}

	if prompt, ok := stringParam(node.Params, "prompt"); ok {
		header := ""
		if v, ok := node.Params["use-header"]; ok {
			if s, ok := v.(string); ok {
				header = s
			}
		}
		if header != "" {
			fragment = append(fragment, headeredFragment(node.Params, header, prompt, node.Level)...)
		} else {
			fragment = append(fragment, &tree.Node{
				Kind:  tree.KindContent,
				Level: node.Level,
				Text:  prompt,
				Role:  tree.RoleAssistant,
			})
		}
	}

	return interp.Directive{Kind: interp.DirectiveHalt, Fragment: fragment}, nil
}
