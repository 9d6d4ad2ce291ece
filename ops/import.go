package ops

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fractalic-run/fractalic/address"
	"github.com/fractalic-run/fractalic/ferrors"
	"github.com/fractalic-run/fractalic/interp"
	"github.com/fractalic-run/fractalic/parser"
	"github.com/fractalic-run/fractalic/tree"
)

func init() {
	interp.Register("import", importHandler)
}

// importHandler parses the source file, selects the referenced fragment
// with fresh keys, and merges it at the target. Cycles aren't prevented
// here: a mutually importing pair of documents only terminates via
// run-once guards on the importing operations.
func importHandler(ctx context.Context, rt *interp.Runtime, node *tree.Node) (interp.Directive, error) {
	file, _ := stringParam(node.Params, "file")
	path := filepath.Join(rt.BaseDir, file)

	// #nosec G304 -- path is relative to the document's own directory, as documented.
	data, err := os.ReadFile(path)
	if err != nil {
		return interp.Directive{}, ferrors.Wrap(ferrors.KindFileNotFound, "import", err)
	}

	srcTree, err := parser.Parse(data)
	if err != nil {
		return interp.Directive{}, err
	}

	var fragment []*tree.Node
	if blockSpec, ok := node.Params["block"]; ok {
		fragment, err = address.Region(srcTree, blockSpec)
		if err != nil {
			return interp.Directive{}, err
		}
		if len(fragment) == 0 {
			return interp.Directive{}, ferrors.New(ferrors.KindBlockNotFound, "import", "block did not resolve in "+file)
		}
	} else {
		fragment = srcTree.Iter()
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
