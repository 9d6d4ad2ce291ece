package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fractalic-run/fractalic/ferrors"
	"github.com/fractalic-run/fractalic/interp"
	"github.com/fractalic-run/fractalic/llmmediator"
	"github.com/fractalic-run/fractalic/render"
	"github.com/fractalic-run/fractalic/tree"
)

func init() {
	interp.Register("llm", llmHandler)
}

const defaultLLMHeader = "LLM response block"

func llmHandler(ctx context.Context, rt *interp.Runtime, node *tree.Node) (interp.Directive, error) {
	nodes, err := contextNodes(rt, node)
	if err != nil {
		return interp.Directive{}, err
	}
	turns := render.Context(nodes)

	messages := make([]llmmediator.Message, 0, len(turns)+1)
	for _, t := range turns {
		messages = append(messages, llmmediator.Message{Role: t.Role, Content: t.Text})
	}
	if prompt, ok := stringParam(node.Params, "prompt"); ok {
		messages = append(messages, llmmediator.Message{Role: tree.RoleUser, Content: prompt})
	}

	provider := rt.Svc.Config.DefaultProvider
	if p, ok := stringParam(node.Params, "provider"); ok {
		provider = p
	}
	section := rt.Svc.Config.Providers[provider]
	model := section.Model
	if m, ok := stringParam(node.Params, "model"); ok {
		model = m
	}

	var temp *float64
	if v, ok := node.Params["temperature"]; ok {
		switch n := v.(type) {
		case float64:
			temp = &n
		case int:
			f := float64(n)
			temp = &f
		}
	}

	var stopSeqs []string
	if v, ok := node.Params["stop-sequences"]; ok {
		if arr, ok := v.([]any); ok {
			for _, item := range arr {
				if s, ok := item.(string); ok {
					stopSeqs = append(stopSeqs, s)
				}
			}
		}
	}

	var attachments []llmmediator.Attachment
	if v, ok := node.Params["media"]; ok {
		if arr, ok := v.([]any); ok {
			for _, item := range arr {
				if s, ok := item.(string); ok {
					attachments = append(attachments, llmmediator.Attachment{Path: s})
				}
			}
		}
	}

	toolNames, err := resolveToolNames(node.Params)
	if err != nil {
		return interp.Directive{}, err
	}

	toolsTurnsMax := 8
	if v, ok := node.Params["tools-turns-max"]; ok {
		if n, ok := v.(int); ok {
			toolsTurnsMax = n
		}
	}

	if rt.Svc.Chat == nil {
		return interp.Directive{}, ferrors.New(ferrors.KindLLMError, "llm", "no chat client configured")
	}

	var schemas []llmmediator.ToolSchema
	var caller llmmediator.ToolCaller
	if len(toolNames) > 0 && rt.Svc.Tools != nil {
		schemas = rt.Svc.Tools.Schemas()
		caller = rt.Svc.Tools
	}

	text, err := llmmediator.Run(ctx, rt.Svc.Chat, caller, schemas, messages, llmmediator.Options{
		Provider:      provider,
		Model:         model,
		Temperature:   temp,
		StopSequences: stopSeqs,
		Attachments:   attachments,
		ToolNames:     toolNames,
		ToolsTurnsMax: toolsTurnsMax,
		Emitter:       traceEmitter{rt: rt, node: node},
	})
	if err != nil {
		return interp.Directive{}, err
	}

	if path, ok := stringParam(node.Params, "save-to-file"); ok {
		// #nosec G306 -- output path is operator-specified, matching @shell's own document-relative writes.
		if werr := os.WriteFile(path, []byte(text), 0o644); werr != nil {
			return interp.Directive{}, ferrors.Wrap(ferrors.KindLLMError, "llm", werr)
		}
	}

	fragment := headeredFragment(node.Params, defaultLLMHeader, text, node.Level)

	mode, target, err := interp.MergeParams(rt, node, rt.Svc.Config.DefaultOperation)
	if err != nil {
		return interp.Directive{}, err
	}
	if err := interp.ApplyMerge(rt, node, target, mode, fragment); err != nil {
		return interp.Directive{}, err
	}
	return interp.Directive{Kind: interp.DirectiveAdvance}, nil
}

// traceEmitter adapts a node's run/node identity onto interp's Emitter so
// the mediator's tool-call fan-out and token stream land in the same .trc
// record stream as the rest of the run, under this @llm's own node key.
type traceEmitter struct {
	rt   *interp.Runtime
	node *tree.Node
}

type toolCallRecord struct {
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func (e traceEmitter) EmitToolCall(name string, args, result json.RawMessage, callErr error) {
	rec := toolCallRecord{Tool: name, Arguments: args, Result: result}
	if callErr != nil {
		rec.Error = callErr.Error()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"tool":%q}`, name))
	}
	e.rt.Svc.Emitter.Emit(interp.Event{
		Stage:   interp.EventToolCall,
		RunID:   e.rt.RunID,
		NodeKey: e.node.Key,
		OpName:  e.node.OpName,
		Message: string(data),
	})
}

func (e traceEmitter) EmitToken(text string) {
	e.rt.Svc.Emitter.Emit(interp.Event{
		Stage:   interp.EventLLMToken,
		RunID:   e.rt.RunID,
		NodeKey: e.node.Key,
		OpName:  e.node.OpName,
		Message: text,
	})
}

// resolveToolNames normalizes the tools param: "none" (default), "all", or
// an explicit array of tool names.
func resolveToolNames(params map[string]any) ([]string, error) {
	v, ok := params["tools"]
	if !ok {
		return nil, nil
	}
	switch t := v.(type) {
	case string:
		if t == "none" || t == "" {
			return nil, nil
		}
		if t == "all" {
			return []string{"all"}, nil
		}
		return []string{t}, nil
	case []any:
		var names []string
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, ferrors.New(ferrors.KindParseError, "llm", "tools array elements must be strings")
			}
			names = append(names, s)
		}
		return names, nil
	default:
		return nil, ferrors.New(ferrors.KindParseError, "llm", "invalid tools value")
	}
}
