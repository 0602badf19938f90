package agent

import (
	"fmt"

	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/store"
	"github.com/entrhq/webpilot/pkg/types"
)

// MemoryLog is the append-only record of one run. It writes through to the
// storage collaborator and mirrors entries to the session log. The loop's
// contract is to never silently lose an entry: append failures propagate and
// are fatal to the run.
type MemoryLog struct {
	store  *store.Store
	runID  string
	logger *logging.Logger
}

func newMemoryLog(s *store.Store, runID string, logger *logging.Logger) *MemoryLog {
	return &MemoryLog{store: s, runID: runID, logger: logger}
}

// Append writes one immutable entry for the bound run.
func (m *MemoryLog) Append(content string, mtype types.MemoryType) error {
	if _, err := m.store.AppendMemory(m.runID, content, mtype); err != nil {
		return fmt.Errorf("memory append failed: %w", err)
	}

	if m.logger != nil {
		m.logger.Debugf("[%s] %s", mtype, content)
	}
	return nil
}

// Recent returns the most recent n entries, oldest first.
func (m *MemoryLog) Recent(n int) ([]types.MemoryEntry, error) {
	return m.store.RecentMemories(m.runID, n)
}

// Count returns the number of entries recorded so far.
func (m *MemoryLog) Count() (int, error) {
	return m.store.CountMemories(m.runID)
}
