// Package render serializes a tree back to Markdown, and to the role-tagged
// "context" form the LLM mediator replays as chat history.
package render

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fractalic-run/fractalic/tree"
)

// Render serializes every node in nodes (typically tr.Iter()) to Markdown.
// Heading and content nodes are emitted verbatim from Text; operation nodes
// are emitted as "@name" followed by canonicalized YAML of Params.
func Render(nodes []*tree.Node) (string, error) {
	var b strings.Builder
	for i, n := range nodes {
		if i > 0 {
			b.WriteString("\n")
		}
		switch n.Kind {
		case tree.KindOperation:
			body, err := yaml.Marshal(n.Params)
			if err != nil {
				return "", fmt.Errorf("render: marshal params for %s: %w", n.Key, err)
			}
			b.WriteString("@")
			b.WriteString(n.OpName)
			b.WriteString("\n")
			b.Write(body)
		default:
			b.WriteString(n.Text)
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// RenderTree is a convenience wrapper over tr.Iter().
func RenderTree(tr *tree.Tree) (string, error) {
	return Render(tr.Iter())
}

// ContextTurn is one role-tagged message produced from a run of content nodes
// sharing the same role, the unit the LLM mediator consumes.
type ContextTurn struct {
	Role tree.Role
	Text string
}

// Context flattens nodes into role-tagged turns, merging consecutive content
// of the same role into a single turn and skipping operation nodes (they
// carry no conversational content of their own).
func Context(nodes []*tree.Node) []ContextTurn {
	var turns []ContextTurn
	for _, n := range nodes {
		if n.Kind == tree.KindOperation {
			continue
		}
		text := n.Text
		if n.Kind == tree.KindHeading {
			text = headingTextOnly(n.Text)
		}
		if len(turns) > 0 && turns[len(turns)-1].Role == n.Role {
			turns[len(turns)-1].Text += "\n" + text
			continue
		}
		turns = append(turns, ContextTurn{Role: n.Role, Text: text})
	}
	return turns
}

// ContextText joins Context(nodes) into a single block of Markdown, used
// where a flat string (not chat turns) is wanted — e.g. @run's input
// fragment construction.
func ContextText(nodes []*tree.Node) string {
	turns := Context(nodes)
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		parts = append(parts, t.Text)
	}
	return strings.Join(parts, "\n\n")
}

func headingTextOnly(text string) string {
	return strings.TrimLeft(text, "# ")
}
