// Package fractestutil holds small fixtures shared across package tests:
// a scripted chat client and a trivial echo tool caller, both standing in
// for the provider SDKs and tool registries this module deliberately keeps
// abstract.
package fractestutil

import (
	"context"
	"encoding/json"

	"github.com/fractalic-run/fractalic/llmmediator"
)

// ScriptedChatClient replays responses in order, one per Complete call.
type ScriptedChatClient struct {
	Responses []llmmediator.ChatResponse
	calls     int
}

func (c *ScriptedChatClient) Complete(ctx context.Context, req llmmediator.ChatRequest) (llmmediator.ChatResponse, error) {
	resp := c.Responses[c.calls]
	c.calls++
	return resp, nil
}

// Calls reports how many times Complete has been invoked.
func (c *ScriptedChatClient) Calls() int { return c.calls }

// EchoToolCaller implements llmmediator.ToolCaller by echoing back the
// "msg" field of whatever arguments it is called with, recording every call
// it sees for assertions.
type EchoToolCaller struct {
	Seen []llmmediator.ToolCall
}

func (e *EchoToolCaller) Call(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	e.Seen = append(e.Seen, llmmediator.ToolCall{Name: name, Arguments: args})
	var parsed struct {
		Msg string `json:"msg"`
	}
	_ = json.Unmarshal(args, &parsed)
	return json.Marshal(map[string]string{"result": parsed.Msg})
}
