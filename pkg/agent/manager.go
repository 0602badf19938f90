package agent

import (
	"context"
	"sync"
	"time"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/config"
	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/llm/tokenizer"
	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/store"
	toolslua "github.com/entrhq/webpilot/pkg/tools/lua"
	"github.com/entrhq/webpilot/pkg/types"
)

// Snapshot is a point-in-time view of the manager's state, safe to report
// without touching storage.
type Snapshot struct {
	Status      types.RunStatus
	CurrentTask string
	RunID       string
}

// Manager owns the run lifecycle: it admits at most one running run, spawns
// the decision loop for it, and finalizes the run record when the loop
// terminates. All methods are safe for concurrent use.
type Manager struct {
	store    *store.Store
	browser  browser.Controller
	provider llm.Provider
	registry *toolslua.Registry
	runtime  *toolslua.Runtime
	cfg      *config.Config
	urls     *config.URLMatcher
	logger   *logging.Logger
	tok      *tokenizer.Tokenizer

	mu            sync.Mutex
	current       *types.Run
	stopCh        chan struct{}
	stopRequested bool
	done          chan struct{}
}

// NewManager builds a manager over its collaborators. The tokenizer is
// optional; without one the loop falls back to approximate token counts.
func NewManager(s *store.Store, b browser.Controller, p llm.Provider, cfg *config.Config, logger *logging.Logger) (*Manager, error) {
	urls, err := config.NewURLMatcher(cfg.Navigation)
	if err != nil {
		return nil, err
	}

	tok, err := tokenizer.New()
	if err != nil {
		logger.Warnf("Tokenizer unavailable, using approximate counts: %v", err)
		tok = nil
	}

	return &Manager{
		store:    s,
		browser:  b,
		provider: p,
		registry: toolslua.NewRegistry(s),
		runtime:  toolslua.NewRuntime(cfg.ToolTimeout()),
		cfg:      cfg,
		urls:     urls,
		logger:   logger,
		tok:      tok,
	}, nil
}

// Start validates the goal, admits the run if no other run is active, and
// launches the decision loop in the background. It returns the new run's id
// without waiting for the loop.
func (m *Manager) Start(goal string) (string, error) {
	cleaned, err := types.ValidateGoal(goal)
	if err != nil {
		return "", &ValidationError{Reason: err.Error()}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.current.Status == types.StatusRunning {
		return "", ErrRunActive
	}

	run, err := m.store.CreateRun(cleaned)
	if err != nil {
		return "", err
	}

	memory := newMemoryLog(m.store, run.ID, m.logger)

	// The first entry is written before the loop exists so a caller reading
	// memory immediately after Start always sees it.
	if err := memory.Append("Agent started with goal: "+cleaned, types.MemoryThought); err != nil {
		return "", err
	}

	m.current = run
	m.stopCh = make(chan struct{})
	m.stopRequested = false
	m.done = make(chan struct{})

	loop := &decisionLoop{
		run:      run,
		browser:  m.browser,
		provider: m.provider,
		registry: m.registry,
		runtime:  m.runtime,
		executor: newExecutor(m.browser, memory, m.urls, m.cfg.Loop.SettleDelayMs, m.logger),
		memory:   memory,
		cfg:      m.cfg,
		logger:   m.logger,
		tok:      m.tok,
		stop:     m.stopCh,
		onTask:   func(task string) { m.setCurrentTask(run.ID, task) },
	}

	m.logger.Infof("Run %s started: %s", run.ID, cleaned)
	go m.execute(loop)

	return run.ID, nil
}

// Stop requests cancellation of the active run. It returns immediately; the
// run reaches its stopped status once the in-flight iteration finishes.
// Stopping twice is a no-op after the first request.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.current.Status != types.StatusRunning {
		return ErrNoActiveRun
	}

	if !m.stopRequested {
		m.stopRequested = true
		close(m.stopCh)
		m.logger.Infof("Run %s stop requested", m.current.ID)
	}

	return nil
}

// Status reports the manager's current state from memory alone.
func (m *Manager) Status() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return Snapshot{Status: types.StatusIdle}
	}

	return Snapshot{
		Status:      m.current.Status,
		CurrentTask: m.current.CurrentTask,
		RunID:       m.current.ID,
	}
}

// Done returns a channel closed when the most recently started run's loop
// has fully terminated and the run record is finalized. It is nil before the
// first Start.
func (m *Manager) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// execute runs the loop to termination and finalizes both the stored run row
// and the in-memory state.
func (m *Manager) execute(loop *decisionLoop) {
	result := loop.execute(context.Background())

	now := time.Now().UTC()
	patch := store.Patch{
		Status:  &result.status,
		EndTime: &now,
	}
	if result.errorMessage != "" {
		patch.ErrorMessage = &result.errorMessage
	}
	if err := m.store.UpdateRun(loop.run.ID, patch); err != nil {
		m.logger.Errorf("Failed to finalize run %s: %v", loop.run.ID, err)
	}

	m.mu.Lock()
	if m.current != nil && m.current.ID == loop.run.ID {
		m.current.Status = result.status
		m.current.EndTime = &now
		m.current.ErrorMessage = result.errorMessage
	}
	done := m.done
	m.mu.Unlock()

	m.logger.Infof("Run %s finished with status %s", loop.run.ID, result.status)
	close(done)
}

func (m *Manager) setCurrentTask(runID, task string) {
	m.mu.Lock()
	if m.current != nil && m.current.ID == runID {
		m.current.CurrentTask = task
	}
	m.mu.Unlock()

	if err := m.store.UpdateRun(runID, store.Patch{CurrentTask: &task}); err != nil {
		m.logger.Warnf("Failed to persist current task for run %s: %v", runID, err)
	}
}
