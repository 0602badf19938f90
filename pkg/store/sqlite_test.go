package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetRun(t *testing.T) {
	s := newTestStore(t)

	run, err := s.CreateRun("log into example.com and read inbox")
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, types.StatusRunning, run.Status)
	assert.False(t, run.StartTime.IsZero())

	loaded, err := s.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, loaded.ID)
	assert.Equal(t, "log into example.com and read inbox", loaded.Goal)
	assert.Equal(t, types.StatusRunning, loaded.Status)
	assert.Nil(t, loaded.EndTime)
	assert.Zero(t, loaded.MemoryCount)
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRun("missing")
	assert.Error(t, err)
}

func TestUpdateRun(t *testing.T) {
	s := newTestStore(t)

	run, err := s.CreateRun("goal")
	require.NoError(t, err)

	status := types.StatusStopped
	task := "stopped by user"
	ended := time.Now().UTC()
	require.NoError(t, s.UpdateRun(run.ID, Patch{
		Status:      &status,
		CurrentTask: &task,
		EndTime:     &ended,
	}))

	loaded, err := s.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusStopped, loaded.Status)
	assert.Equal(t, "stopped by user", loaded.CurrentTask)
	require.NotNil(t, loaded.EndTime)

	// Patch with no fields is a no-op, not an error
	require.NoError(t, s.UpdateRun(run.ID, Patch{}))

	// Updating a missing run fails
	assert.Error(t, s.UpdateRun("missing", Patch{Status: &status}))
}

func TestAppendMemoryOrdering(t *testing.T) {
	s := newTestStore(t)

	run, err := s.CreateRun("goal")
	require.NoError(t, err)

	contents := []string{"first", "second", "third", "fourth"}
	mtypes := []types.MemoryType{types.MemoryObservation, types.MemoryThought, types.MemoryAction, types.MemoryObservation}
	for i := range contents {
		_, err := s.AppendMemory(run.ID, contents[i], mtypes[i])
		require.NoError(t, err)
	}

	entries, err := s.GetMemories(run.ID)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	for i, entry := range entries {
		assert.Equal(t, contents[i], entry.Content)
		assert.Equal(t, mtypes[i], entry.Type)
		if i > 0 {
			// Non-decreasing timestamps, strictly increasing ids
			assert.False(t, entry.CreatedAt.Before(entries[i-1].CreatedAt))
			assert.Greater(t, entry.ID, entries[i-1].ID)
		}
	}
}

func TestAppendMemoryInvalidType(t *testing.T) {
	s := newTestStore(t)

	run, err := s.CreateRun("goal")
	require.NoError(t, err)

	_, err = s.AppendMemory(run.ID, "content", types.MemoryType("decision"))
	assert.Error(t, err)
}

func TestRecentMemories(t *testing.T) {
	s := newTestStore(t)

	run, err := s.CreateRun("goal")
	require.NoError(t, err)

	for i := 0; i < 15; i++ {
		_, err := s.AppendMemory(run.ID, string(rune('a'+i)), types.MemoryObservation)
		require.NoError(t, err)
	}

	recent, err := s.RecentMemories(run.ID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 10)

	// Oldest-first window over the most recent ten entries
	assert.Equal(t, "f", recent[0].Content)
	assert.Equal(t, "o", recent[9].Content)

	// Window larger than history returns everything
	all, err := s.RecentMemories(run.ID, 100)
	require.NoError(t, err)
	assert.Len(t, all, 15)
}

func TestRunCounts(t *testing.T) {
	s := newTestStore(t)

	run, err := s.CreateRun("goal")
	require.NoError(t, err)

	_, err = s.AppendMemory(run.ID, "saw page", types.MemoryObservation)
	require.NoError(t, err)
	_, err = s.AppendMemory(run.ID, "clicked", types.MemoryAction)
	require.NoError(t, err)
	_, err = s.AppendMemory(run.ID, "typed", types.MemoryAction)
	require.NoError(t, err)

	loaded, err := s.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.MemoryCount)
	assert.Equal(t, 2, loaded.ActionCount)

	count, err := s.CountMemories(run.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestTools(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveTool(types.Tool{
		Name:        "extract_prices",
		Description: "Extract product prices from the page",
		Code:        `log("hello")`,
		Category:    "scraping",
		Active:      true,
	}))
	require.NoError(t, s.SaveTool(types.Tool{
		Name:   "disabled_tool",
		Code:   `log("nope")`,
		Active: false,
	}))

	tools, err := s.ListActiveTools()
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "extract_prices", tools[0].Name)
	assert.Equal(t, 1, tools[0].Version)

	// Upsert bumps fields in place
	require.NoError(t, s.SaveTool(types.Tool{
		Name:    "extract_prices",
		Code:    `log("v2")`,
		Version: 2,
		Active:  true,
	}))
	tools, err = s.ListActiveTools()
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, 2, tools[0].Version)

	// Deactivation removes it from the active list
	require.NoError(t, s.SetToolActive("extract_prices", false))
	tools, err = s.ListActiveTools()
	require.NoError(t, err)
	assert.Empty(t, tools)

	assert.Error(t, s.SetToolActive("missing", true))
	assert.Error(t, s.SaveTool(types.Tool{Code: "x"}))
}
