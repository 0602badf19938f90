package lua

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/store"
	"github.com/entrhq/webpilot/pkg/types"
)

func TestRegistryResolve(t *testing.T) {
	s, err := store.New(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveTool(types.Tool{
		Name:        "extract_prices",
		Description: "Extract product prices",
		Code:        `log("prices")`,
		Active:      true,
	}))
	require.NoError(t, s.SaveTool(types.Tool{
		Name:   "retired_tool",
		Code:   `log("old")`,
		Active: false,
	}))

	registry := NewRegistry(s)

	tool, ok, err := registry.Resolve("extract_prices")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "extract_prices", tool.Name)

	// Inactive tools do not resolve
	_, ok, err = registry.Resolve("retired_tool")
	require.NoError(t, err)
	assert.False(t, ok)

	// Unknown names do not resolve
	_, ok, err = registry.Resolve("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	tools, err := registry.List()
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "extract_prices", tools[0].Name)
}

func TestRegistryResolveStoreError(t *testing.T) {
	s, err := store.New(":memory:")
	require.NoError(t, err)

	registry := NewRegistry(s)
	require.NoError(t, s.Close())

	// A broken store is an error, not a missing tool
	_, ok, err := registry.Resolve("anything")
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "failed to resolve tool")
}
