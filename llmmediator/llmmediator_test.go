package llmmediator_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fractalic-run/fractalic/fractestutil"
	"github.com/fractalic-run/fractalic/llmmediator"
)

func TestRunNoToolCalls(t *testing.T) {
	client := &fractestutil.ScriptedChatClient{Responses: []llmmediator.ChatResponse{{Text: "hello"}}}
	text, err := llmmediator.Run(context.Background(), client, nil, nil, nil, llmmediator.Options{})
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestRunSingleToolCallThenAnswer(t *testing.T) {
	client := &fractestutil.ScriptedChatClient{Responses: []llmmediator.ChatResponse{
		{ToolCalls: []llmmediator.ToolCall{{ID: "1", Name: "echo_tool", Arguments: json.RawMessage(`{"msg":"hi"}`)}}},
		{Text: "the tool said hi"},
	}}
	tools := &fractestutil.EchoToolCaller{}
	schemas := []llmmediator.ToolSchema{{Name: "echo_tool"}}

	text, err := llmmediator.Run(context.Background(), client, tools, schemas, nil, llmmediator.Options{
		ToolNames:     []string{"echo_tool"},
		ToolsTurnsMax: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, "the tool said hi", text)
	require.Len(t, tools.Seen, 1)
	assert.Equal(t, "echo_tool", tools.Seen[0].Name)
}

type recordingEmitter struct {
	calls  []string
	tokens []string
}

func (r *recordingEmitter) EmitToolCall(name string, args, result json.RawMessage, callErr error) {
	r.calls = append(r.calls, name+":"+string(args)+":"+string(result))
}

func (r *recordingEmitter) EmitToken(text string) { r.tokens = append(r.tokens, text) }

func TestRunEmitsExactlyOneToolCall(t *testing.T) {
	client := &fractestutil.ScriptedChatClient{Responses: []llmmediator.ChatResponse{
		{ToolCalls: []llmmediator.ToolCall{{ID: "1", Name: "echo_tool", Arguments: json.RawMessage(`{"msg":"hi"}`)}}},
		{Text: "hi"},
	}}
	tools := &fractestutil.EchoToolCaller{}
	emitter := &recordingEmitter{}

	_, err := llmmediator.Run(context.Background(), client, tools, nil, nil, llmmediator.Options{
		ToolNames: []string{"echo_tool"},
		Emitter:   emitter,
	})
	require.NoError(t, err)
	require.Len(t, emitter.calls, 1)
	assert.Contains(t, emitter.calls[0], "echo_tool")
	assert.Contains(t, emitter.calls[0], `"msg":"hi"`)
}

func TestRunExceedsTurnsMax(t *testing.T) {
	client := &fractestutil.ScriptedChatClient{Responses: []llmmediator.ChatResponse{
		{ToolCalls: []llmmediator.ToolCall{{ID: "1", Name: "echo_tool", Arguments: json.RawMessage(`{}`)}}},
		{ToolCalls: []llmmediator.ToolCall{{ID: "2", Name: "echo_tool", Arguments: json.RawMessage(`{}`)}}},
	}}
	tools := &fractestutil.EchoToolCaller{}
	_, err := llmmediator.Run(context.Background(), client, tools, nil, nil, llmmediator.Options{
		ToolNames:     []string{"echo_tool"},
		ToolsTurnsMax: 2,
	})
	require.Error(t, err)
}
