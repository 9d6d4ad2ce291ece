// Package llmmediator turns an @llm operation's context into chat turns,
// drives the bounded tool-call loop, and streams or accumulates the
// assistant's final text depending on whether tools are in play.
//
// Concrete provider SDKs are deliberately out of scope: callers supply a
// ChatClient, an abstract chat interface matching whatever provider they
// wire up outside this package.
package llmmediator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fractalic-run/fractalic/config"
	"github.com/fractalic-run/fractalic/ferrors"
	"github.com/fractalic-run/fractalic/tree"
)

// Message is one chat turn.
type Message struct {
	Role       tree.Role
	Content    string
	ToolCallID string
	ToolCalls  []ToolCall
}

// ToolCall is a model-issued request to invoke a registered tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolSchema describes one callable tool to the model.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Attachment is a media reference forwarded to the provider (e.g. an image
// path); it attaches to the first user message.
type Attachment struct {
	Path string
}

// ChatRequest is one call to the provider.
type ChatRequest struct {
	Messages      []Message
	Tools         []ToolSchema
	Provider      string
	Model         string
	Temperature   *float64
	StopSequences []string
	Attachments   []Attachment
	Stream        bool
	OnToken       func(string)
}

// ChatResponse is the provider's reply to one ChatRequest.
type ChatResponse struct {
	Text      string
	ToolCalls []ToolCall
}

// ChatClient is the abstract interface a concrete provider SDK implements.
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// ToolCaller is the subset of the tool registry the mediator needs: invoke a
// named tool with JSON arguments and get a JSON (or text) result back.
type ToolCaller interface {
	Call(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error)
}

// Emitter receives tool-call fan-out and streamed tokens as Run progresses.
// Defined locally rather than reusing a caller's event type, since this
// package must stay free of a dependency back on its own callers.
type Emitter interface {
	EmitToolCall(name string, args, result json.RawMessage, callErr error)
	EmitToken(text string)
}

// NopEmitter discards every notification; the default when Options.Emitter
// is left nil.
type NopEmitter struct{}

func (NopEmitter) EmitToolCall(string, json.RawMessage, json.RawMessage, error) {}
func (NopEmitter) EmitToken(string)                                             {}

// Options configures one mediator run.
type Options struct {
	Provider      string
	Model         string
	Temperature   *float64
	StopSequences []string
	Attachments   []Attachment
	ToolNames     []string // empty/nil means no tools ("none")
	ToolsTurnsMax int
	Emitter       Emitter
}

var defaultToolsTurnsMax = 8

// Run drives the bounded tool-call loop starting from context turns, and
// returns the assistant's final text.
func Run(ctx context.Context, client ChatClient, tools ToolCaller, schemas []ToolSchema, messages []Message, opts Options) (string, error) {
	if opts.ToolsTurnsMax <= 0 {
		opts.ToolsTurnsMax = defaultToolsTurnsMax
	}
	emitter := opts.Emitter
	if emitter == nil {
		emitter = NopEmitter{}
	}

	noTools := len(opts.ToolNames) == 0
	selected := selectSchemas(schemas, opts.ToolNames)

	temp := opts.Temperature
	attachments := opts.Attachments
	if config.IsOSeries(opts.Model) {
		temp = nil // O-series models reject non-unit temperature
	}

	turns := append([]Message(nil), messages...)

	for turn := 0; turn < opts.ToolsTurnsMax; turn++ {
		req := ChatRequest{
			Messages:      turns,
			Tools:         selected,
			Provider:      opts.Provider,
			Model:         opts.Model,
			Temperature:   temp,
			StopSequences: opts.StopSequences,
			Attachments:   attachments,
			Stream:        noTools,
			OnToken:       emitter.EmitToken,
		}
		attachments = nil // only the first call carries attachments

		resp, err := client.Complete(ctx, req)
		if err != nil {
			return "", ferrors.Wrap(ferrors.KindLLMError, "llmmediator", err)
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Text, nil
		}
		if tools == nil {
			return "", ferrors.New(ferrors.KindLLMError, "llmmediator", "model issued tool calls but no tool caller was configured")
		}

		turns = append(turns, Message{Role: tree.RoleAssistant, Content: resp.Text})
		for _, call := range resp.ToolCalls {
			result, callErr := invokeTool(ctx, tools, call)
			emitter.EmitToolCall(call.Name, call.Arguments, result, callErr)
			// tree.Role only distinguishes user/assistant; ToolCallID is what
			// marks this as a tool reply rather than a real user turn on replay.
			turns = append(turns, Message{
				Role:       tree.RoleUser,
				Content:    string(result),
				ToolCallID: call.ID,
			})
			if callErr != nil {
				// Tool errors become a synthesized reply, not a failed run.
				continue
			}
		}
	}

	return "", ferrors.New(ferrors.KindLLMError, "llmmediator",
		fmt.Sprintf("tool-call loop exceeded tools-turns-max (%d) without a final answer", opts.ToolsTurnsMax))
}

func invokeTool(ctx context.Context, tools ToolCaller, call ToolCall) (json.RawMessage, error) {
	if !json.Valid(call.Arguments) {
		return json.RawMessage(`{"error":"bad arguments"}`), fmt.Errorf("malformed tool arguments for %s", call.Name)
	}
	result, err := tools.Call(ctx, call.Name, call.Arguments)
	if err != nil {
		return json.RawMessage(fmt.Sprintf(`{"error":%q}`, err.Error())), err
	}
	return result, nil
}

func selectSchemas(all []ToolSchema, names []string) []ToolSchema {
	if len(names) == 0 {
		return nil
	}
	if len(names) == 1 && names[0] == "all" {
		return all
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []ToolSchema
	for _, s := range all {
		if want[s.Name] {
			out = append(out, s)
		}
	}
	return out
}
