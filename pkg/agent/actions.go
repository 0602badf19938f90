package agent

import (
	"fmt"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/config"
	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/types"
)

const (
	// scrollOffsetPixels is the fixed offset for a scroll action.
	scrollOffsetPixels = 600

	// fixedWaitMs is the delay for a wait action without a target selector.
	fixedWaitMs = 2000

	// selectorWaitTimeoutMs bounds a wait action that names a selector.
	selectorWaitTimeoutMs = 10000
)

// Executor maps a structured decision to one browser operation. All branches
// are best-effort: action failures are logged as observations and never fail
// the run. The only error Execute returns is a memory append failure, which
// is fatal to the run.
type Executor struct {
	browser  browser.Controller
	memory   *MemoryLog
	urls     *config.URLMatcher
	settleMs int
	logger   *logging.Logger
}

func newExecutor(b browser.Controller, memory *MemoryLog, urls *config.URLMatcher, settleMs int, logger *logging.Logger) *Executor {
	return &Executor{
		browser:  b,
		memory:   memory,
		urls:     urls,
		settleMs: settleMs,
		logger:   logger,
	}
}

// Execute dispatches one decision to the browser. Every branch appends
// exactly one action or observation memory entry.
func (e *Executor) Execute(decision *types.Decision) error {
	switch decision.Action {
	case types.ActionClick:
		return e.executeClick(decision)
	case types.ActionTypeText:
		return e.executeType(decision)
	case types.ActionNavigate:
		return e.executeNavigate(decision)
	case types.ActionScroll:
		return e.executeScroll()
	case types.ActionWait:
		return e.executeWait(decision)
	default:
		return e.memory.Append(fmt.Sprintf("Unknown action requested: %s", decision.Action), types.MemoryObservation)
	}
}

func (e *Executor) executeClick(decision *types.Decision) error {
	if decision.Target == "" {
		return e.memory.Append("Skipped click: no target provided", types.MemoryObservation)
	}

	if err := e.browser.Click(decision.Target); err != nil {
		e.logger.Warnf("Click on %s failed: %v", decision.Target, err)
		return e.memory.Append(fmt.Sprintf("Failed to click %s: %v", decision.Target, err), types.MemoryObservation)
	}

	if err := e.memory.Append(fmt.Sprintf("Clicked on: %s", decision.Target), types.MemoryAction); err != nil {
		return err
	}

	// Let the page settle before the next observation
	e.browser.WaitFixed(e.settleMs)
	return nil
}

func (e *Executor) executeType(decision *types.Decision) error {
	if decision.Target == "" || decision.Value == "" {
		return e.memory.Append("Skipped type: target or value missing", types.MemoryObservation)
	}

	if err := e.browser.Type(decision.Target, decision.Value); err != nil {
		e.logger.Warnf("Type into %s failed: %v", decision.Target, err)
		return e.memory.Append(fmt.Sprintf("Failed to type into %s: %v", decision.Target, err), types.MemoryObservation)
	}

	return e.memory.Append(fmt.Sprintf("Typed '%s' into: %s", decision.Value, decision.Target), types.MemoryAction)
}

func (e *Executor) executeNavigate(decision *types.Decision) error {
	if decision.Target == "" {
		return e.memory.Append("Skipped navigate: no target provided", types.MemoryObservation)
	}

	if e.urls != nil && !e.urls.IsAllowed(decision.Target) {
		e.logger.Warnf("Navigation to %s blocked by allowlist", decision.Target)
		return e.memory.Append(fmt.Sprintf("Navigation blocked by allowlist: %s", decision.Target), types.MemoryObservation)
	}

	if err := e.browser.Navigate(decision.Target); err != nil {
		e.logger.Warnf("Navigation to %s failed: %v", decision.Target, err)
		return e.memory.Append(fmt.Sprintf("Failed to navigate to %s: %v", decision.Target, err), types.MemoryObservation)
	}

	if err := e.memory.Append(fmt.Sprintf("Navigated to: %s", decision.Target), types.MemoryAction); err != nil {
		return err
	}

	e.browser.WaitFixed(e.settleMs)
	return nil
}

func (e *Executor) executeScroll() error {
	if err := e.browser.ScrollBy(scrollOffsetPixels); err != nil {
		e.logger.Warnf("Scroll failed: %v", err)
		return e.memory.Append(fmt.Sprintf("Failed to scroll: %v", err), types.MemoryObservation)
	}

	return e.memory.Append("Scrolled down", types.MemoryAction)
}

func (e *Executor) executeWait(decision *types.Decision) error {
	// Prefer a condition-based wait when the planner names a selector; fall
	// back to a fixed delay otherwise.
	if decision.Target != "" {
		if err := e.browser.WaitForSelector(decision.Target, selectorWaitTimeoutMs); err != nil {
			e.logger.Warnf("Wait for %s failed: %v", decision.Target, err)
			return e.memory.Append(fmt.Sprintf("Wait for %s failed: %v", decision.Target, err), types.MemoryObservation)
		}
		return e.memory.Append(fmt.Sprintf("Waited for: %s", decision.Target), types.MemoryAction)
	}

	e.browser.WaitFixed(fixedWaitMs)
	return e.memory.Append("Waited", types.MemoryAction)
}
