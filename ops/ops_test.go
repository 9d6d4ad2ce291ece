package ops_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fractalic-run/fractalic/config"
	"github.com/fractalic-run/fractalic/fractestutil"
	"github.com/fractalic-run/fractalic/interp"
	"github.com/fractalic-run/fractalic/llmmediator"
	_ "github.com/fractalic-run/fractalic/ops"
	"github.com/fractalic-run/fractalic/parser"
	"github.com/fractalic-run/fractalic/tool"
	"github.com/fractalic-run/fractalic/tree"
)

func run(t *testing.T, dir string, svc *interp.Services, doc string) (bool, []*tree.Node, *tree.Tree) {
	t.Helper()
	tr, err := parser.Parse([]byte(doc))
	require.NoError(t, err)
	if svc == nil {
		svc = &interp.Services{Config: config.Default(), Emitter: interp.NopEmitter{}}
	}
	rt := interp.NewRuntime(tr, dir, "test-run", &interp.CallFrame{}, svc)
	explicit, fragment, err := interp.Run(context.Background(), rt)
	require.NoError(t, err)
	return explicit, fragment, rt.Tree
}

func TestImportReplace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t.md"), []byte("# x\nBODY\n"), 0o644))

	doc := "# slot {id=slot}\nplaceholder\n\n@import\nfile: t.md\nblock: x\nmode: replace\nto: slot\n\n"
	_, _, tr := run(t, dir, nil, doc)

	node, ok := tr.FindByIDOrKey("x")
	require.True(t, ok)
	assert.Equal(t, tree.KindHeading, node.Kind)

	for _, n := range tr.Iter() {
		assert.NotEqual(t, "placeholder", n.Text)
	}

	var bodyFound bool
	for _, n := range tr.Iter() {
		if n.Text == "BODY" {
			bodyFound = true
		}
	}
	assert.True(t, bodyFound)
}

func TestReturnHaltsWithBlockFragment(t *testing.T) {
	doc := "# out {id=out}\nDATA\n\n@return\nblock: out\n\nafter\n"
	explicit, fragment, _ := run(t, t.TempDir(), nil, doc)

	require.True(t, explicit)
	var texts []string
	for _, n := range fragment {
		texts = append(texts, n.Text)
	}
	assert.Contains(t, texts, "DATA")
}

func TestGotoUnknownTargetFails(t *testing.T) {
	tr, err := parser.Parse([]byte("@goto\nblock: missing\n\n"))
	require.NoError(t, err)
	svc := &interp.Services{Config: config.Default(), Emitter: interp.NopEmitter{}}
	rt := interp.NewRuntime(tr, t.TempDir(), "test-run", &interp.CallFrame{}, svc)

	_, _, err = interp.Run(context.Background(), rt)
	require.Error(t, err)
}

func TestRunReturnFragmentMergesOnlyReturnedBlock(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "child.md"), []byte("# out {id=out}\nDATA\n\n@return\nblock: out\n\n"), 0o644))

	doc := "# here {id=here}\n\n@run\nfile: child.md\nto: here\nmode: append\n\n"
	_, _, tr := run(t, dir, nil, doc)

	var dataFound, outHeadingFound bool
	for _, n := range tr.Iter() {
		if n.Text == "DATA" {
			dataFound = true
		}
		if n.Kind == tree.KindHeading && n.ID == "out" {
			outHeadingFound = true
		}
	}
	assert.True(t, dataFound)
	assert.True(t, outHeadingFound)
}

func TestLLMHandlerWithoutToolsMergesAssistantText(t *testing.T) {
	svc := &interp.Services{
		Config:  config.Default(),
		Emitter: interp.NopEmitter{},
		Chat:    &fractestutil.ScriptedChatClient{Responses: []llmmediator.ChatResponse{{Text: "hello there"}}},
	}
	doc := "# Ask\n\n@llm\nprompt: say hi\n\n"
	_, _, tr := run(t, t.TempDir(), svc, doc)

	var found bool
	for _, n := range tr.Iter() {
		if n.Text == "hello there" {
			found = true
			assert.Equal(t, tree.RoleAssistant, n.Role)
		}
	}
	assert.True(t, found)
}

type recordingEmitter struct {
	events []interp.Event
}

func (r *recordingEmitter) Emit(e interp.Event) { r.events = append(r.events, e) }

func TestLLMHandlerWithToolsRecordsExactlyOneToolCall(t *testing.T) {
	toolsDir := t.TempDir()
	scriptPath := filepath.Join(toolsDir, "echo_tool.sh")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/bin/sh\necho \"$1\"\n"), 0o755))
	manifest := `{"name":"echo_tool","description":"echoes msg","exec":"simple-json","entry":"echo_tool.sh"}`
	require.NoError(t, os.WriteFile(filepath.Join(toolsDir, "echo_tool.tool.json"), []byte(manifest), 0o644))

	registry := tool.New(toolsDir, nil)
	require.NoError(t, registry.Rescan(context.Background()))

	rec := &recordingEmitter{}
	svc := &interp.Services{
		Config:  config.Default(),
		Emitter: rec,
		Tools:   registry,
		Chat: &fractestutil.ScriptedChatClient{Responses: []llmmediator.ChatResponse{
			{ToolCalls: []llmmediator.ToolCall{{ID: "1", Name: "echo_tool", Arguments: []byte(`{"msg":"hi"}`)}}},
			{Text: "the tool said hi"},
		}},
	}
	doc := "# Ask\n\n@llm\nprompt: call echo_tool with msg hi then summarize\ntools: [echo_tool]\n\n"
	_, _, tr := run(t, t.TempDir(), svc, doc)

	var foundText bool
	for _, n := range tr.Iter() {
		if n.Text == "the tool said hi" {
			foundText = true
		}
	}
	assert.True(t, foundText)

	var toolCalls int
	for _, e := range rec.events {
		if e.Stage == interp.EventToolCall {
			toolCalls++
			assert.Contains(t, e.Message, "echo_tool")
			assert.Contains(t, e.Message, `"msg":"hi"`)
		}
	}
	assert.Equal(t, 1, toolCalls)
}

func TestLLMHandlerNoChatClientFails(t *testing.T) {
	svc := &interp.Services{Config: config.Default(), Emitter: interp.NopEmitter{}}
	tr, err := parser.Parse([]byte("@llm\nprompt: hi\n\n"))
	require.NoError(t, err)
	rt := interp.NewRuntime(tr, t.TempDir(), "test-run", &interp.CallFrame{}, svc)

	_, _, err = interp.Run(context.Background(), rt)
	require.Error(t, err)
}
