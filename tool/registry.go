// Package tool discovers callable tools — explicit manifests, auto-detected
// scripts, and remote MCP-style JSON-RPC servers — and exposes them under one
// uniform Call(name, json_args) surface to the LLM mediator.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/fractalic-run/fractalic/llmmediator"
)

// Origin identifies how a Registration was discovered.
type Origin string

const (
	OriginManifest Origin = "manifest"
	OriginAuto     Origin = "auto"
	OriginMCP      Origin = "mcp"
)

// Registration is one callable tool, regardless of where it came from.
type Registration struct {
	Name        string
	Description string
	Parameters  map[string]any
	Origin      Origin
	UpdatedAt   string // RFC3339; staleness metadata for `tools list`
	adapter     Adapter
}

// Adapter is the execution strategy behind a Registration: spawn a CLI,
// call an HTTP endpoint, or forward to a remote MCP server.
type Adapter interface {
	Call(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}

// Registry aggregates registrations from every source. Reads are safe for
// concurrent use by multiple workflows; Rescan is exclusive.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Registration

	dir        string
	mcpServers []MCPServerConfig
	store      *Store
}

// New creates an empty registry rooted at toolsDir, with remote servers
// listed in mcpServers (matching config.MCPServers).
func New(toolsDir string, mcpServers []MCPServerConfig) *Registry {
	return &Registry{
		byName:     map[string]*Registration{},
		dir:        toolsDir,
		mcpServers: mcpServers,
	}
}

// WithStore attaches a persistence layer: Rescan saves its merged result to
// store, and Preload seeds the registry from store before the first Rescan
// completes (e.g. while remote MCP servers are still starting up).
func (r *Registry) WithStore(store *Store) *Registry {
	r.store = store
	return r
}

// Preload seeds the registry from store without adapters. Entries loaded
// this way are listable but not callable until a real Rescan replaces them;
// Call on a preloaded-only entry returns a "not yet rescanned" error.
func (r *Registry) Preload(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	regs, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	merged := map[string]*Registration{}
	for _, reg := range regs {
		reg.adapter = notYetScannedAdapter{}
		merged[reg.Name] = reg
	}
	r.mu.Lock()
	r.byName = merged
	r.mu.Unlock()
	return nil
}

type notYetScannedAdapter struct{}

func (notYetScannedAdapter) Call(context.Context, json.RawMessage) (json.RawMessage, error) {
	return nil, fmt.Errorf("tool: preloaded from store, not yet rescanned")
}

// Rescan rebuilds the registry from scratch: explicit manifests first, then
// auto-discovered scripts, then remote servers. Local entries win over
// remote ones on a name collision.
func (r *Registry) Rescan(ctx context.Context) error {
	manifestRegs, err := discoverManifests(r.dir)
	if err != nil {
		return err
	}
	autoRegs, err := discoverAutoScripts(ctx, r.dir, manifestRegs)
	if err != nil {
		return err
	}
	mcpRegs, err := discoverMCP(ctx, r.mcpServers)
	if err != nil {
		return err
	}

	merged := map[string]*Registration{}
	for _, reg := range mcpRegs {
		merged[reg.Name] = reg
	}
	for _, reg := range autoRegs {
		merged[reg.Name] = reg
	}
	for _, reg := range manifestRegs {
		merged[reg.Name] = reg
	}

	r.mu.Lock()
	r.byName = merged
	r.mu.Unlock()

	if r.store != nil {
		regs := make([]*Registration, 0, len(merged))
		for _, reg := range merged {
			regs = append(regs, reg)
		}
		if err := r.store.Save(ctx, regs); err != nil {
			return fmt.Errorf("tool: persist rescan: %w", err)
		}
	}
	return nil
}

// Call invokes name with json_args and returns its json_result, satisfying
// llmmediator.ToolCaller.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	r.mu.RLock()
	reg, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("tool: unknown tool %q", name)
	}
	return reg.adapter.Call(ctx, args)
}

// Schemas returns every registered tool as an llmmediator.ToolSchema, sorted
// by name for reproducible prompts.
func (r *Registry) Schemas() []llmmediator.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]llmmediator.ToolSchema, 0, len(r.byName))
	for _, reg := range r.byName {
		out = append(out, llmmediator.ToolSchema{
			Name:        reg.Name,
			Description: reg.Description,
			Parameters:  reg.Parameters,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// List returns every registration, redacted, sorted by name — used by the
// CLI's `tools` subcommand.
func (r *Registry) List() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Registration, 0, len(r.byName))
	for _, reg := range r.byName {
		out = append(out, Redact(*reg))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
