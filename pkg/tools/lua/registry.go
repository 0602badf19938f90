// Package lua resolves named tools from storage and executes their code in a
// sandboxed Lua interpreter under an enforced timeout.
//
// Tools are the extension point of the action set: the planner may name one
// in a decision, and the loop hands the tool's code a narrow browser
// capability set plus a memory-append callback. A misbehaving tool can fail
// or time out, but it cannot reach the process beyond the API registered
// here.
package lua

import (
	"fmt"

	"github.com/entrhq/webpilot/pkg/store"
	"github.com/entrhq/webpilot/pkg/types"
)

// Registry resolves tool names against the storage collaborator.
type Registry struct {
	store *store.Store
}

// NewRegistry creates a registry backed by the given store.
func NewRegistry(s *store.Store) *Registry {
	return &Registry{store: s}
}

// Resolve returns the named tool if it exists and is active. A storage
// failure is reported as an error, not conflated with a missing tool.
func (r *Registry) Resolve(name string) (*types.Tool, bool, error) {
	tools, err := r.store.ListActiveTools()
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve tool %s: %w", name, err)
	}

	for i := range tools {
		if tools[i].Name == name {
			return &tools[i], true, nil
		}
	}
	return nil, false, nil
}

// List returns all active tools for prompt building.
func (r *Registry) List() ([]types.Tool, error) {
	tools, err := r.store.ListActiveTools()
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	return tools, nil
}
