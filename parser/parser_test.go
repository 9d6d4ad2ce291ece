package parser_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fractalic-run/fractalic/ferrors"
	"github.com/fractalic-run/fractalic/parser"
	"github.com/fractalic-run/fractalic/tree"
)

func TestParseHeadingsAndContent(t *testing.T) {
	doc := "# Top Level\nintro text\n\n## Sub Section\nbody text\n"
	tr, err := parser.Parse([]byte(doc))
	require.NoError(t, err)

	nodes := tr.Iter()
	require.Len(t, nodes, 4)

	assert.Equal(t, tree.KindHeading, nodes[0].Kind)
	assert.Equal(t, "top-level", nodes[0].ID)
	assert.Equal(t, 1, nodes[0].Level)

	assert.Equal(t, tree.KindContent, nodes[1].Kind)
	assert.Equal(t, "intro text", nodes[1].Text)
	assert.Equal(t, 1, nodes[1].Level)

	assert.Equal(t, tree.KindHeading, nodes[2].Kind)
	assert.Equal(t, "sub-section", nodes[2].ID)
	assert.Equal(t, 2, nodes[2].Level)

	assert.Equal(t, tree.KindContent, nodes[3].Kind)
	assert.Equal(t, "body text", nodes[3].Text)
}

func TestParseExplicitID(t *testing.T) {
	doc := "# Slot {id=slot}\nplaceholder\n"
	tr, err := parser.Parse([]byte(doc))
	require.NoError(t, err)

	n, ok := tr.FindByIDOrKey("slot")
	require.True(t, ok)
	assert.Equal(t, "slot", n.ID)
}

func TestParseIDCollisionSuffix(t *testing.T) {
	doc := "# Step\nfirst\n# Step\nsecond\n# Step\nthird\n"
	tr, err := parser.Parse([]byte(doc))
	require.NoError(t, err)

	var ids []string
	for _, n := range tr.Iter() {
		if n.Kind == tree.KindHeading {
			ids = append(ids, n.ID)
		}
	}
	assert.Equal(t, []string{"step", "step-2", "step-3"}, ids)
}

func TestParseIDCollisionScopedToParent(t *testing.T) {
	// "child" under "a" and "child" under "b" are different parent regions,
	// so neither should be suffixed.
	doc := "# A\n## Child\nx\n# B\n## Child\ny\n"
	tr, err := parser.Parse([]byte(doc))
	require.NoError(t, err)

	var ids []string
	for _, n := range tr.Iter() {
		if n.Kind == tree.KindHeading {
			ids = append(ids, n.ID)
		}
	}
	assert.Equal(t, []string{"a", "child", "b", "child"}, ids)
}

func TestParseShellOperation(t *testing.T) {
	doc := "# A\n@shell\nprompt: echo hi\n\nafter\n"
	tr, err := parser.Parse([]byte(doc))
	require.NoError(t, err)

	var op *tree.Node
	for _, n := range tr.Iter() {
		if n.Kind == tree.KindOperation {
			op = n
		}
	}
	require.NotNil(t, op)
	assert.Equal(t, "shell", op.OpName)
	assert.Equal(t, "echo hi", op.Params["prompt"])
	assert.Equal(t, 1, op.Level)

	last := tr.Tail()
	assert.Equal(t, tree.KindContent, last.Kind)
	assert.Equal(t, "after", last.Text)
}

func TestParseOperationMissingRequiredParam(t *testing.T) {
	doc := "@shell\nuse-header: none\n\n"
	_, err := parser.Parse([]byte(doc))
	require.Error(t, err)
	var fe *ferrors.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, ferrors.KindParseError, fe.Kind)
	assert.True(t, errors.Is(err, ferrors.ErrParse))
}

func TestParseUnknownOperation(t *testing.T) {
	doc := "@unknown\nfoo: 1\n\n"
	_, err := parser.Parse([]byte(doc))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ferrors.ErrParse))
}

func TestParseUnknownParam(t *testing.T) {
	doc := "@shell\nprompt: hi\nbogus: 1\n\n"
	_, err := parser.Parse([]byte(doc))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ferrors.ErrParse))
}

func TestParseInvalidYAML(t *testing.T) {
	doc := "@shell\nprompt: [unterminated\n\n"
	_, err := parser.Parse([]byte(doc))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ferrors.ErrParse))
}

func TestParseLLMRequiresPromptOrBlock(t *testing.T) {
	doc := "@llm\nprovider: openai\n\n"
	_, err := parser.Parse([]byte(doc))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ferrors.ErrParse))
}

func TestParseOperationAtEOFWithoutBlankLine(t *testing.T) {
	doc := "@shell\nprompt: echo hi"
	tr, err := parser.Parse([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, 1, tr.Len())
	op := tr.Head()
	assert.Equal(t, "shell", op.OpName)
	assert.Equal(t, "echo hi", op.Params["prompt"])
}

func TestParseKeysAreUnique(t *testing.T) {
	doc := "# A\n@shell\nprompt: one\n\n@shell\nprompt: two\n\n"
	tr, err := parser.Parse([]byte(doc))
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, n := range tr.Iter() {
		require.False(t, seen[n.Key])
		seen[n.Key] = true
	}
}
