package render_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fractalic-run/fractalic/parser"
	"github.com/fractalic-run/fractalic/render"
)

func TestRenderRoundTripContent(t *testing.T) {
	doc := "# A\nintro text\n\n## B\nbody text\n"
	tr, err := parser.Parse([]byte(doc))
	require.NoError(t, err)

	out, err := render.RenderTree(tr)
	require.NoError(t, err)

	tr2, err := parser.Parse([]byte(out))
	require.NoError(t, err)

	orig := tr.Iter()
	again := tr2.Iter()
	require.Equal(t, len(orig), len(again))
	for i := range orig {
		assert.Equal(t, orig[i].Kind, again[i].Kind)
		assert.Equal(t, orig[i].Text, again[i].Text)
	}
}

func TestRenderOperationEmitsYAML(t *testing.T) {
	doc := "@shell\nprompt: echo hi\n\n"
	tr, err := parser.Parse([]byte(doc))
	require.NoError(t, err)

	out, err := render.RenderTree(tr)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "@shell\n"))
	assert.Contains(t, out, "prompt: echo hi")
}

func TestContextMergesConsecutiveSameRole(t *testing.T) {
	tr, err := parser.Parse([]byte("# A\nfirst\nsecond\n"))
	require.NoError(t, err)

	turns := render.Context(tr.Iter())
	// heading "A" (user) + content "first\nsecond" (user) merge into one turn
	require.Len(t, turns, 1)
	assert.Equal(t, "A\nfirst\nsecond", turns[0].Text)
}
