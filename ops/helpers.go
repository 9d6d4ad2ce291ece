// Package ops implements the six operation handlers and registers them with
// the interpreter's driver loop on import.
package ops

import (
	"strings"

	"github.com/fractalic-run/fractalic/tree"
)

// headeredFragment builds [heading?, content] for an operation's output,
// honoring use-header: "none" (case-insensitive) to suppress the heading.
// level is the level the new heading/content should carry.
func headeredFragment(params map[string]any, defaultHeader, body string, level int) []*tree.Node {
	header := defaultHeader
	if v, ok := params["use-header"]; ok {
		if s, ok := v.(string); ok {
			header = s
		}
	}

	var out []*tree.Node
	if !strings.EqualFold(strings.TrimSpace(header), "none") {
		out = append(out, &tree.Node{
			Kind:  tree.KindHeading,
			Level: level,
			Text:  "# " + header,
			Role:  tree.RoleAssistant,
		})
	}
	out = append(out, &tree.Node{
		Kind:  tree.KindContent,
		Level: level,
		Text:  body,
		Role:  tree.RoleAssistant,
	})
	return out
}

// stringParam reads a required string parameter; parse-time validation has
// already guaranteed presence and type for required fields, so this only
// needs to handle the optional case.
func stringParam(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func boolParam(params map[string]any, key string) bool {
	v, ok := params[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// cloneFragment deep-copies nodes (from a source tree, possibly another
// run's tree) into a detached, self-linked, key-less fragment ready to be
// spliced into a destination tree via tree.Insert, which assigns fresh keys.
func cloneFragment(nodes []*tree.Node) []*tree.Node {
	out := make([]*tree.Node, len(nodes))
	for i, n := range nodes {
		c := n.Clone()
		c.Key = ""
		out[i] = c
	}
	for i, c := range out {
		if i > 0 {
			c.Prev = out[i-1]
		}
		if i < len(out)-1 {
			c.Next = out[i+1]
		}
	}
	return out
}
