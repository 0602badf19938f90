package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/webpilot/pkg/agent/prompts"
	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/config"
	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/llm/parser"
	"github.com/entrhq/webpilot/pkg/llm/tokenizer"
	"github.com/entrhq/webpilot/pkg/logging"
	toolslua "github.com/entrhq/webpilot/pkg/tools/lua"
	"github.com/entrhq/webpilot/pkg/types"
)

// loopResult is what a finished loop reports back to the manager.
type loopResult struct {
	status       types.RunStatus
	errorMessage string
}

// decisionLoop drives one run through the perceive-decide-act cycle until
// completion, cancellation, the iteration cap, or a fatal error.
//
// The loop is a single sequential worker: planner calls, browser calls, and
// delays all block it, and nothing else mutates the run or its memory while
// it is running. The stop channel is examined only at iteration boundaries;
// an iteration in flight always completes first.
type decisionLoop struct {
	run      *types.Run
	browser  browser.Controller
	provider llm.Provider
	registry *toolslua.Registry
	runtime  *toolslua.Runtime
	executor *Executor
	memory   *MemoryLog
	cfg      *config.Config
	logger   *logging.Logger
	tok      *tokenizer.Tokenizer
	stop     <-chan struct{}
	onTask   func(task string)
}

// execute drives the loop to termination and returns the final status.
func (l *decisionLoop) execute(ctx context.Context) loopResult {
	for iteration := 1; iteration <= l.cfg.Loop.MaxIterations; iteration++ {
		if l.stopRequested() {
			l.logger.Infof("Run %s stopped at iteration %d", l.run.ID, iteration)
			return loopResult{status: types.StatusStopped}
		}

		result, done := l.executeIteration(ctx, iteration)
		if done {
			return result
		}

		if l.stopRequested() {
			l.logger.Infof("Run %s stopped after iteration %d", l.run.ID, iteration)
			return loopResult{status: types.StatusStopped}
		}

		// Bound the external call rate
		time.Sleep(l.cfg.IterationDelay())
	}

	// Hitting the cap is an ordinary completion, not an error
	note := fmt.Sprintf("Reached maximum iterations (%d) without an explicit completion", l.cfg.Loop.MaxIterations)
	if err := l.memory.Append(note, types.MemoryThought); err != nil {
		return l.fatal(err)
	}
	return loopResult{status: types.StatusCompleted}
}

// executeIteration performs one decision cycle. The second return value is
// true when the loop should terminate with the given result.
func (l *decisionLoop) executeIteration(ctx context.Context, iteration int) (loopResult, bool) {
	// Step 1: observe the page
	if err := l.observe(iteration); err != nil {
		return l.fatal(err), true
	}

	// Step 2: assemble context and build the prompt
	prompt, err := l.buildPrompt(iteration)
	if err != nil {
		return l.fatal(err), true
	}

	// Step 3: ask the planner
	raw, err := l.callPlanner(ctx, prompt)
	if err != nil {
		return l.fatal(fmt.Errorf("planner call failed: %w", err)), true
	}

	if err := l.memory.Append(raw, types.MemoryThought); err != nil {
		return l.fatal(err), true
	}

	// Step 4: parse. A parse failure is recovered locally: log it and move
	// on to the next iteration without acting.
	parsed := parser.ParseDecision(raw)
	if !parsed.OK() {
		l.logger.Warnf("Run %s iteration %d: unparseable planner response: %s", l.run.ID, iteration, parsed.Reason)
		if err := l.memory.Append(fmt.Sprintf("Failed to parse planner response: %s", parsed.Reason), types.MemoryObservation); err != nil {
			return l.fatal(err), true
		}
		return loopResult{}, false
	}

	decision := parsed.Decision
	if err := l.memory.Append(decision.Thought, types.MemoryThought); err != nil {
		return l.fatal(err), true
	}
	l.setCurrentTask(decision.Thought)

	// Step 5: completion ends the loop this same iteration
	if decision.Complete || decision.Action == types.ActionComplete {
		note := fmt.Sprintf("Goal completed: %s", decision.Thought)
		if err := l.memory.Append(note, types.MemoryThought); err != nil {
			return l.fatal(err), true
		}
		l.logger.Infof("Run %s completed at iteration %d", l.run.ID, iteration)
		return loopResult{status: types.StatusCompleted}, true
	}

	// Step 6: act. Action failures are non-fatal and already recorded by the
	// executor; only a memory append failure propagates.
	if err := l.executor.Execute(decision); err != nil {
		return l.fatal(err), true
	}

	// Step 7: a named tool may run in the same iteration as the action
	if decision.Tool != "" {
		if err := l.executeTool(ctx, decision.Tool); err != nil {
			return l.fatal(err), true
		}
	}

	return loopResult{}, false
}

// observe captures page identity and appends the observation entry.
// A controller failure here is fatal: a loop that cannot see the page has
// nothing to feed the planner.
func (l *decisionLoop) observe(iteration int) error {
	if _, err := l.browser.Screenshot(); err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}

	title, err := l.browser.Title()
	if err != nil {
		return fmt.Errorf("title query failed: %w", err)
	}
	url := l.browser.CurrentURL()

	l.logger.Debugf("Run %s iteration %d: observing %s (%s)", l.run.ID, iteration, title, url)
	return l.memory.Append(fmt.Sprintf("Observing page: %s (%s)", title, url), types.MemoryObservation)
}

// buildPrompt assembles goal, progress, recent memory, tools, and the
// response schema into one planner prompt.
func (l *decisionLoop) buildPrompt(iteration int) (string, error) {
	memories, err := l.memory.Recent(l.cfg.Loop.MemoryWindow)
	if err != nil {
		return "", fmt.Errorf("failed to load recent memory: %w", err)
	}

	tools, err := l.registry.List()
	if err != nil {
		return "", fmt.Errorf("failed to list tools: %w", err)
	}

	prompt := newIterationPrompt(l.run.Goal, iteration, l.cfg.Loop.MaxIterations, memories, tools)

	promptTokens := tokenizer.Approximate(prompt)
	if l.tok != nil {
		promptTokens = l.tok.CountTokens(prompt)
	}
	l.logger.Debugf("Run %s iteration %d: prompt is %d tokens", l.run.ID, iteration, promptTokens)

	return prompt, nil
}

// callPlanner sends the prompt under the configured wall-clock bound. The
// bound keeps a stalled oracle from hanging the run forever; exceeding it is
// fatal rather than silently retried.
func (l *decisionLoop) callPlanner(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, l.cfg.PlannerTimeout())
	defer cancel()

	return l.provider.Generate(callCtx, prompt)
}

// executeTool resolves and runs a named tool. Resolution failures and
// execution failures are recovered locally with a single observation entry;
// success appends a single action entry naming the tool.
func (l *decisionLoop) executeTool(ctx context.Context, name string) error {
	tool, ok, err := l.registry.Resolve(name)
	if err != nil {
		return err
	}
	if !ok {
		l.logger.Warnf("Run %s: tool not found or inactive: %s", l.run.ID, name)
		return l.memory.Append(fmt.Sprintf("Tool not found or inactive: %s", name), types.MemoryObservation)
	}

	runCtx := &toolslua.RunContext{
		RunID:        l.run.ID,
		Goal:         l.run.Goal,
		AppendMemory: l.memory.Append,
	}

	if err := l.runtime.Execute(ctx, tool, l.browser, runCtx); err != nil {
		l.logger.Warnf("Run %s: %v", l.run.ID, err)
		return l.memory.Append(fmt.Sprintf("Tool execution failed: %v", err), types.MemoryObservation)
	}

	return l.memory.Append(fmt.Sprintf("Executed tool: %s", name), types.MemoryAction)
}

// fatal records an unrecoverable failure. The observation append is
// best-effort: the run is already lost and the error message is preserved on
// the run record regardless.
func (l *decisionLoop) fatal(err error) loopResult {
	l.logger.Errorf("Run %s aborted: %v", l.run.ID, err)
	_ = l.memory.Append(fmt.Sprintf("Run aborted: %v", err), types.MemoryObservation)
	return loopResult{status: types.StatusError, errorMessage: err.Error()}
}

func newIterationPrompt(goal string, iteration, maxIterations int, memories []types.MemoryEntry, tools []types.Tool) string {
	return prompts.NewPromptBuilder().
		WithGoal(goal).
		WithIteration(iteration, maxIterations).
		WithMemories(memories).
		WithTools(tools).
		Build()
}

func (l *decisionLoop) stopRequested() bool {
	select {
	case <-l.stop:
		return true
	default:
		return false
	}
}

func (l *decisionLoop) setCurrentTask(task string) {
	if l.onTask != nil && task != "" {
		l.onTask(task)
	}
}
