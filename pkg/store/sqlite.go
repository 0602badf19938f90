// Package store persists runs, memory entries, and tools in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/entrhq/webpilot/pkg/types"
)

// Store is the storage collaborator for the run lifecycle and decision loop.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and applies the
// schema. Use ":memory:" for an ephemeral in-process database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite permits a single writer, and each pooled connection to a
	// ":memory:" path would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		goal TEXT NOT NULL,
		status TEXT NOT NULL,
		current_task TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP,
		error_message TEXT
	);

	CREATE TABLE IF NOT EXISTS memories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		content TEXT NOT NULL,
		type TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tools (
		name TEXT PRIMARY KEY,
		description TEXT NOT NULL DEFAULT '',
		code TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 1,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	CREATE INDEX IF NOT EXISTS idx_memories_run ON memories(run_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// CreateRun persists a new run with status running and returns it.
func (s *Store) CreateRun(goal string) (*types.Run, error) {
	run := &types.Run{
		ID:        uuid.New().String(),
		Goal:      goal,
		Status:    types.StatusRunning,
		StartTime: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (id, goal, status, current_task, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Goal, string(run.Status), run.CurrentTask, run.StartTime,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// GetRun loads a run by id, including its memory and action counts.
func (s *Store) GetRun(id string) (*types.Run, error) {
	row := s.db.QueryRow(
		`SELECT id, goal, status, current_task, started_at, ended_at, error_message
		 FROM runs WHERE id = ?`, id,
	)

	var run types.Run
	var status string
	var endedAt sql.NullTime
	var errorMessage sql.NullString

	err := row.Scan(&run.ID, &run.Goal, &status, &run.CurrentTask, &run.StartTime, &endedAt, &errorMessage)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	run.Status = types.RunStatus(status)
	if endedAt.Valid {
		run.EndTime = &endedAt.Time
	}
	if errorMessage.Valid {
		run.ErrorMessage = errorMessage.String
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM memories WHERE run_id = ?`, id).Scan(&run.MemoryCount); err != nil {
		return nil, fmt.Errorf("failed to count memories: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM memories WHERE run_id = ? AND type = ?`, id, string(types.MemoryAction)).Scan(&run.ActionCount); err != nil {
		return nil, fmt.Errorf("failed to count actions: %w", err)
	}

	return &run, nil
}

// Patch describes a partial run update. Only non-nil fields are written, so
// the loop and Stop each touch only the columns they own.
type Patch struct {
	Status       *types.RunStatus
	CurrentTask  *string
	EndTime      *time.Time
	ErrorMessage *string
}

// UpdateRun applies a patch to the run row.
func (s *Store) UpdateRun(id string, patch Patch) error {
	sets := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)

	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.CurrentTask != nil {
		sets = append(sets, "current_task = ?")
		args = append(args, *patch.CurrentTask)
	}
	if patch.EndTime != nil {
		sets = append(sets, "ended_at = ?")
		args = append(args, *patch.EndTime)
	}
	if patch.ErrorMessage != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, *patch.ErrorMessage)
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := "UPDATE runs SET " + strings.Join(sets, ", ") + " WHERE id = ?"

	result, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found", id)
	}

	return nil
}

// AppendMemory writes one immutable memory entry for the run.
func (s *Store) AppendMemory(runID, content string, mtype types.MemoryType) (*types.MemoryEntry, error) {
	if !mtype.Valid() {
		return nil, fmt.Errorf("invalid memory type: %s", mtype)
	}

	createdAt := time.Now().UTC()
	result, err := s.db.Exec(
		`INSERT INTO memories (run_id, content, type, created_at) VALUES (?, ?, ?, ?)`,
		runID, content, string(mtype), createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append memory: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read memory id: %w", err)
	}

	return &types.MemoryEntry{
		ID:        id,
		RunID:     runID,
		Content:   content,
		Type:      mtype,
		CreatedAt: createdAt,
	}, nil
}

// GetMemories returns all memory entries for a run in insertion order.
func (s *Store) GetMemories(runID string) ([]types.MemoryEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, content, type, created_at FROM memories
		 WHERE run_id = ? ORDER BY id ASC`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	return scanMemories(rows)
}

// RecentMemories returns the most recent n entries for a run, oldest first,
// ready to feed into the planner prompt.
func (s *Store) RecentMemories(runID string, n int) ([]types.MemoryEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, content, type, created_at FROM (
			SELECT id, run_id, content, type, created_at FROM memories
			WHERE run_id = ? ORDER BY id DESC LIMIT ?
		 ) ORDER BY id ASC`, runID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent memories: %w", err)
	}
	defer rows.Close()

	return scanMemories(rows)
}

// CountMemories returns the number of memory entries for a run.
func (s *Store) CountMemories(runID string) (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM memories WHERE run_id = ?`, runID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count memories: %w", err)
	}
	return count, nil
}

func scanMemories(rows *sql.Rows) ([]types.MemoryEntry, error) {
	var entries []types.MemoryEntry
	for rows.Next() {
		var entry types.MemoryEntry
		var mtype string
		if err := rows.Scan(&entry.ID, &entry.RunID, &entry.Content, &mtype, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		entry.Type = types.MemoryType(mtype)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read memories: %w", err)
	}
	return entries, nil
}

// SaveTool inserts or replaces a tool definition.
func (s *Store) SaveTool(tool types.Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if tool.Version <= 0 {
		tool.Version = 1
	}

	_, err := s.db.Exec(
		`INSERT INTO tools (name, description, code, category, version, active)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			code = excluded.code,
			category = excluded.category,
			version = excluded.version,
			active = excluded.active`,
		tool.Name, tool.Description, tool.Code, tool.Category, tool.Version, boolToInt(tool.Active),
	)
	if err != nil {
		return fmt.Errorf("failed to save tool: %w", err)
	}
	return nil
}

// SetToolActive flips a tool's active flag.
func (s *Store) SetToolActive(name string, active bool) error {
	result, err := s.db.Exec(`UPDATE tools SET active = ? WHERE name = ?`, boolToInt(active), name)
	if err != nil {
		return fmt.Errorf("failed to update tool: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("tool %s not found", name)
	}
	return nil
}

// ListActiveTools returns all tools with the active flag set, ordered by name.
func (s *Store) ListActiveTools() ([]types.Tool, error) {
	rows, err := s.db.Query(
		`SELECT name, description, code, category, version, active FROM tools
		 WHERE active = 1 ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tools: %w", err)
	}
	defer rows.Close()

	var tools []types.Tool
	for rows.Next() {
		var tool types.Tool
		var active int
		if err := rows.Scan(&tool.Name, &tool.Description, &tool.Code, &tool.Category, &tool.Version, &active); err != nil {
			return nil, fmt.Errorf("failed to scan tool: %w", err)
		}
		tool.Active = active != 0
		tools = append(tools, tool)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tools: %w", err)
	}
	return tools, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
