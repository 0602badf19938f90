package lua

import (
	"context"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/types"
)

// maxSleepMs caps a single sleep() call inside tool code so a tool cannot
// burn its whole timeout budget in one silent pause.
const maxSleepMs = 5000

// RunContext is what a tool sees of the run it executes in.
type RunContext struct {
	RunID string
	Goal  string

	// AppendMemory is the logging callback handed to tool code. Entries are
	// recorded as observations attributed to the tool.
	AppendMemory func(content string, mtype types.MemoryType) error
}

// Runtime executes tool code in a sandboxed Lua state.
type Runtime struct {
	timeout time.Duration
}

// NewRuntime creates a runtime that bounds every execution by timeout.
func NewRuntime(timeout time.Duration) *Runtime {
	return &Runtime{timeout: timeout}
}

// Execute runs the tool's code with access to exactly two things: the narrow
// browser session and the run context. Any script error or timeout is
// returned as an error; the caller decides how to record it.
func (r *Runtime) Execute(ctx context.Context, tool *types.Tool, session browser.ToolSession, runCtx *RunContext) error {
	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true, // Don't load any libraries by default
	})
	defer L.Close()
	L.SetContext(execCtx)

	openSafeLibs(L)
	registerAPI(L, session, runCtx)

	if err := L.DoString(tool.Code); err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("tool %s timed out after %s", tool.Name, r.timeout)
		}
		return fmt.Errorf("tool %s failed: %w", tool.Name, err)
	}

	return nil
}

// openSafeLibs loads only the safe standard libraries
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)

	// Remove dangerous base functions
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("load", lua.LNil)
	L.SetGlobal("loadstring", lua.LNil)
	L.SetGlobal("print", lua.LNil) // Use log() instead

	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Remove non-deterministic math functions
	math := L.GetGlobal("math")
	if tbl, ok := math.(*lua.LTable); ok {
		L.SetField(tbl, "random", lua.LNil)
		L.SetField(tbl, "randomseed", lua.LNil)
	}
}

// registerAPI exposes the declared capability set: a browser table with page
// verbs, a log callback, and a bounded sleep.
func registerAPI(L *lua.LState, session browser.ToolSession, runCtx *RunContext) {
	browserTbl := L.NewTable()
	L.SetField(browserTbl, "click", L.NewFunction(func(L *lua.LState) int {
		selector := L.CheckString(1)
		if err := session.Click(selector); err != nil {
			L.RaiseError("click failed: %v", err)
		}
		return 0
	}))
	L.SetField(browserTbl, "type", L.NewFunction(func(L *lua.LState) int {
		selector := L.CheckString(1)
		text := L.CheckString(2)
		if err := session.Type(selector, text); err != nil {
			L.RaiseError("type failed: %v", err)
		}
		return 0
	}))
	L.SetField(browserTbl, "navigate", L.NewFunction(func(L *lua.LState) int {
		url := L.CheckString(1)
		if err := session.Navigate(url); err != nil {
			L.RaiseError("navigate failed: %v", err)
		}
		return 0
	}))
	L.SetField(browserTbl, "eval", L.NewFunction(func(L *lua.LState) int {
		script := L.CheckString(1)
		result, err := session.Evaluate(script)
		if err != nil {
			L.RaiseError("eval failed: %v", err)
			return 0
		}
		L.Push(goValueToLua(L, result))
		return 1
	}))
	L.SetField(browserTbl, "text", L.NewFunction(func(L *lua.LState) int {
		selector := L.OptString(1, "")
		content, err := session.ExtractText(selector)
		if err != nil {
			L.RaiseError("text failed: %v", err)
			return 0
		}
		L.Push(lua.LString(content))
		return 1
	}))
	L.SetGlobal("browser", browserTbl)

	L.SetGlobal("goal", lua.LString(runCtx.Goal))

	L.SetGlobal("log", L.NewFunction(func(L *lua.LState) int {
		message := L.CheckString(1)
		if runCtx.AppendMemory != nil {
			if err := runCtx.AppendMemory(message, types.MemoryObservation); err != nil {
				L.RaiseError("log failed: %v", err)
			}
		}
		return 0
	}))

	L.SetGlobal("sleep", L.NewFunction(func(L *lua.LState) int {
		ms := L.CheckInt(1)
		if ms < 0 {
			ms = 0
		}
		if ms > maxSleepMs {
			ms = maxSleepMs
		}

		timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-L.Context().Done():
			L.RaiseError("sleep interrupted: %v", L.Context().Err())
		}
		return 0
	}))
}

// goValueToLua converts an Evaluate result into a Lua value. Composite values
// fall back to their string form; tools that need structure should return
// JSON from the page and decode it themselves.
func goValueToLua(L *lua.LState, value interface{}) lua.LValue {
	switch v := value.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case string:
		return lua.LString(v)
	case int:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	default:
		return lua.LString(fmt.Sprintf("%v", v))
	}
}
