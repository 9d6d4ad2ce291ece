package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// MCPServerConfig names one remote tool server endpoint (mirrors
// config.MCPServer without importing the config package, to keep tool
// dependency-free of the ambient config surface).
type MCPServerConfig struct {
	Name     string
	Endpoint string
}

type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type mcpToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type mcpAdapter struct {
	endpoint string
	name     string
	client   *http.Client
}

func (a *mcpAdapter) Call(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	var decodedArgs any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &decodedArgs); err != nil {
			return nil, fmt.Errorf("mcp %s: decode arguments: %w", a.name, err)
		}
	}
	result, err := callJSONRPC(ctx, a.client, a.endpoint, "call_tool", map[string]any{
		"name":      a.name,
		"arguments": decodedArgs,
	})
	if err != nil {
		return nil, fmt.Errorf("mcp %s: %w", a.name, err)
	}
	return result, nil
}

// discoverMCP calls list_tools on every configured server and registers
// each returned tool; on a collision the caller (Rescan) prefers local
// entries, so order here doesn't matter.
func discoverMCP(ctx context.Context, servers []MCPServerConfig) ([]*Registration, error) {
	client := &http.Client{Timeout: 15 * time.Second}

	var out []*Registration
	for _, srv := range servers {
		result, err := callJSONRPC(ctx, client, srv.Endpoint, "list_tools", nil)
		if err != nil {
			// an unreachable remote server degrades the registry, not the whole scan
			continue
		}
		var descriptors []mcpToolDescriptor
		if err := json.Unmarshal(result, &descriptors); err != nil {
			continue
		}
		for _, d := range descriptors {
			out = append(out, &Registration{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
				Origin:      OriginMCP,
				UpdatedAt:   time.Now().UTC().Format(time.RFC3339),
				adapter:     &mcpAdapter{endpoint: srv.Endpoint, name: d.Name, client: client},
			})
		}
	}
	return out, nil
}

func callJSONRPC(ctx context.Context, client *http.Client, endpoint, method string, params any) (json.RawMessage, error) {
	body, err := json.Marshal(jsonrpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rpcResp jsonrpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}
