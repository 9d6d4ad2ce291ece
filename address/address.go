// Package address resolves block paths — the addressing grammar operation
// parameters such as block, to, and from use to name one or more nodes in a
// tree.
//
//	path    := segment ('/' segment)* ('/*')?
//	segment := id-or-key
//	array   := [path, path, ...]
//
// A bare id-or-key is matched by id first, then by key. "a/b" finds "a"
// anywhere in the tree, then finds "b" among a's children. A trailing "/*"
// widens the match from the named node alone to the named node plus its
// entire descendant region, in order. Resolving an id/key that does not
// exist is not itself an error — it yields an empty result; callers that
// must act on a node turn an empty result into a BlockNotFound.
package address

import (
	"strings"

	"github.com/fractalic-run/fractalic/ferrors"
	"github.com/fractalic-run/fractalic/tree"
)

// Resolve evaluates spec against tr. spec is either a path string or a []any
// of path strings (the array form). The result preserves input order and
// duplicates; when nothing matches it is nil with a nil error.
func Resolve(tr *tree.Tree, spec any) ([]*tree.Node, error) {
	switch v := spec.(type) {
	case nil:
		return nil, nil
	case string:
		return resolvePath(tr, v)
	case []any:
		var out []*tree.Node
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, ferrors.New(ferrors.KindParseError, "address", "array path elements must be strings")
			}
			nodes, err := resolvePath(tr, s)
			if err != nil {
				return nil, err
			}
			out = append(out, nodes...)
		}
		return out, nil
	default:
		return nil, ferrors.New(ferrors.KindParseError, "address", "path must be a string or array of strings")
	}
}

func resolvePath(tr *tree.Tree, path string) ([]*tree.Node, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}

	widen := false
	if strings.HasSuffix(path, "/*") {
		widen = true
		path = strings.TrimSuffix(path, "/*")
	}

	segments := strings.Split(path, "/")
	for _, s := range segments {
		if strings.TrimSpace(s) == "" {
			return nil, ferrors.New(ferrors.KindParseError, "address", "empty path segment in "+path)
		}
	}

	var current *tree.Node
	for i, seg := range segments {
		if i == 0 {
			n, ok := tr.FindByIDOrKey(seg)
			if !ok {
				return nil, nil
			}
			current = n
			continue
		}
		n, ok := findAmongChildren(tr, current, seg)
		if !ok {
			return nil, nil
		}
		current = n
	}

	if current == nil {
		return nil, nil
	}
	if widen {
		return append([]*tree.Node{current}, tr.ChildrenUnder(current)...), nil
	}
	return []*tree.Node{current}, nil
}

// findAmongChildren matches seg by id then by key, scoped to parent's
// descendant region rather than the whole tree.
func findAmongChildren(tr *tree.Tree, parent *tree.Node, seg string) (*tree.Node, bool) {
	children := tr.ChildrenUnder(parent)
	for _, c := range children {
		if c.ID != "" && c.ID == seg {
			return c, true
		}
	}
	for _, c := range children {
		if c.Key == seg {
			return c, true
		}
	}
	return nil, false
}

// Region resolves spec the way operation handlers that copy or quote a block
// as a fragment do: every matched node is expanded to itself plus its full
// descendant region, regardless of whether the path already carried a
// trailing "/*". A path that already widened is not expanded twice.
func Region(tr *tree.Tree, spec any) ([]*tree.Node, error) {
	switch v := spec.(type) {
	case nil:
		return nil, nil
	case string:
		return regionPath(tr, v)
	case []any:
		var out []*tree.Node
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, ferrors.New(ferrors.KindParseError, "address", "array path elements must be strings")
			}
			nodes, err := regionPath(tr, s)
			if err != nil {
				return nil, err
			}
			out = append(out, nodes...)
		}
		return out, nil
	default:
		return nil, ferrors.New(ferrors.KindParseError, "address", "path must be a string or array of strings")
	}
}

func regionPath(tr *tree.Tree, path string) ([]*tree.Node, error) {
	trimmed := strings.TrimSpace(path)
	if strings.HasSuffix(trimmed, "/*") {
		return resolvePath(tr, trimmed)
	}
	nodes, err := resolvePath(tr, trimmed)
	if err != nil || len(nodes) == 0 {
		return nodes, err
	}
	node := nodes[0]
	return append([]*tree.Node{node}, tr.ChildrenUnder(node)...), nil
}

// RequireOne resolves spec and returns exactly the first matched node,
// failing with BlockNotFound (frame names the operation raising it) when
// nothing matches.
func RequireOne(tr *tree.Tree, spec any, frame string) (*tree.Node, error) {
	nodes, err := Resolve(tr, spec)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, ferrors.New(ferrors.KindBlockNotFound, frame, "block path did not resolve to any node")
	}
	return nodes[0], nil
}
