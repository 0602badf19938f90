// Package types defines the core data model shared across webpilot packages:
// runs, memory entries, tools, and planner decisions.
package types

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxGoalLength is the maximum accepted length for a run goal, in characters.
const MaxGoalLength = 1000

// RunStatus captures the lifecycle state of a run.
//
// The state machine is: idle -> running -> {completed, error, stopped}.
// Terminal states have no outgoing transitions.
type RunStatus string

const (
	StatusIdle      RunStatus = "idle"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusError     RunStatus = "error"
	StatusStopped   RunStatus = "stopped"
)

// IsTerminal reports whether the status is a final state.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusStopped:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving from s to next is a legal transition.
func (s RunStatus) CanTransition(next RunStatus) bool {
	switch s {
	case StatusIdle:
		return next == StatusRunning
	case StatusRunning:
		return next.IsTerminal()
	default:
		return false
	}
}

// Run is one bounded execution of the decision loop toward a single goal.
// Created by the lifecycle manager; mutated only by its bound loop and Stop.
type Run struct {
	ID           string     `json:"id"`
	Goal         string     `json:"goal"`
	Status       RunStatus  `json:"status"`
	CurrentTask  string     `json:"current_task"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	MemoryCount  int        `json:"memory_count"`
	ActionCount  int        `json:"action_count"`
}

// ValidateGoal checks a goal string before a run is created. It returns the
// trimmed goal, or an error when the goal is empty or exceeds MaxGoalLength.
func ValidateGoal(goal string) (string, error) {
	trimmed := strings.TrimSpace(goal)
	if trimmed == "" {
		return "", fmt.Errorf("goal cannot be empty")
	}
	if n := utf8.RuneCountInString(trimmed); n > MaxGoalLength {
		return "", fmt.Errorf("goal exceeds maximum length of %d characters (got %d)", MaxGoalLength, n)
	}
	return trimmed, nil
}

// MemoryType classifies a memory entry.
type MemoryType string

const (
	MemoryObservation MemoryType = "observation"
	MemoryThought     MemoryType = "thought"
	MemoryAction      MemoryType = "action"
)

// Valid reports whether t is one of the known memory types.
func (t MemoryType) Valid() bool {
	switch t {
	case MemoryObservation, MemoryThought, MemoryAction:
		return true
	default:
		return false
	}
}

// MemoryEntry is one immutable, timestamped record of what happened during a
// run. Entries form both the audit trail and the context window fed back to
// the planner. Ordering is insertion order, which equals timestamp order.
type MemoryEntry struct {
	ID        int64      `json:"id"`
	RunID     string     `json:"run_id"`
	Content   string     `json:"content"`
	Type      MemoryType `json:"type"`
	CreatedAt time.Time  `json:"created_at"`
}

// Tool is a named, versioned unit of executable logic extending the built-in
// action set. The code field holds a Lua snippet run in a sandboxed
// interpreter. Tools are owned by the storage collaborator and read-only from
// the loop's perspective.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Code        string `json:"code"`
	Category    string `json:"category"`
	Version     int    `json:"version"`
	Active      bool   `json:"active"`
}
