package lua

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/types"
)

// fakeSession records tool calls against the browser capability set.
type fakeSession struct {
	clicks    []string
	typed     map[string]string
	navigated []string
	evalResp  interface{}
	textResp  string
	failAll   bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{typed: make(map[string]string)}
}

func (f *fakeSession) Click(selector string) error {
	if f.failAll {
		return fmt.Errorf("element not found")
	}
	f.clicks = append(f.clicks, selector)
	return nil
}

func (f *fakeSession) Type(selector, text string) error {
	if f.failAll {
		return fmt.Errorf("element not found")
	}
	f.typed[selector] = text
	return nil
}

func (f *fakeSession) Navigate(url string) error {
	if f.failAll {
		return fmt.Errorf("navigation failed")
	}
	f.navigated = append(f.navigated, url)
	return nil
}

func (f *fakeSession) Evaluate(script string) (interface{}, error) {
	if f.failAll {
		return nil, fmt.Errorf("evaluation failed")
	}
	return f.evalResp, nil
}

func (f *fakeSession) ExtractText(selector string) (string, error) {
	if f.failAll {
		return "", fmt.Errorf("extraction failed")
	}
	return f.textResp, nil
}

func testRunContext(logged *[]string) *RunContext {
	return &RunContext{
		RunID: "run-1",
		Goal:  "test goal",
		AppendMemory: func(content string, mtype types.MemoryType) error {
			*logged = append(*logged, content)
			return nil
		},
	}
}

func execute(t *testing.T, code string, session *fakeSession, logged *[]string) error {
	t.Helper()

	rt := NewRuntime(2 * time.Second)
	tool := &types.Tool{Name: "test_tool", Code: code, Active: true}
	return rt.Execute(context.Background(), tool, session, testRunContext(logged))
}

func TestExecuteBrowserAPI(t *testing.T) {
	session := newFakeSession()
	session.textResp = "Inbox (3 unread)"

	var logged []string
	code := `
		browser.navigate("https://example.com")
		browser.click("#login")
		browser.type("#user", "alice")
		local content = browser.text("body")
		log("page says: " .. content)
	`
	require.NoError(t, execute(t, code, session, &logged))

	assert.Equal(t, []string{"https://example.com"}, session.navigated)
	assert.Equal(t, []string{"#login"}, session.clicks)
	assert.Equal(t, "alice", session.typed["#user"])
	require.Len(t, logged, 1)
	assert.Equal(t, "page says: Inbox (3 unread)", logged[0])
}

func TestExecuteEvalConversion(t *testing.T) {
	session := newFakeSession()
	session.evalResp = float64(42)

	var logged []string
	code := `
		local n = browser.eval("6 * 7")
		if n == 42 then
			log("correct")
		end
	`
	require.NoError(t, execute(t, code, session, &logged))
	assert.Equal(t, []string{"correct"}, logged)
}

func TestExecuteGoalExposed(t *testing.T) {
	session := newFakeSession()

	var logged []string
	require.NoError(t, execute(t, `log("goal is: " .. goal)`, session, &logged))
	require.Len(t, logged, 1)
	assert.Equal(t, "goal is: test goal", logged[0])
}

func TestExecuteScriptError(t *testing.T) {
	session := newFakeSession()
	session.failAll = true

	var logged []string
	err := execute(t, `browser.click("#gone")`, session, &logged)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test_tool")
}

func TestExecuteSyntaxError(t *testing.T) {
	session := newFakeSession()

	var logged []string
	err := execute(t, `this is not lua`, session, &logged)
	assert.Error(t, err)
}

func TestExecuteTimeout(t *testing.T) {
	session := newFakeSession()
	rt := NewRuntime(100 * time.Millisecond)
	tool := &types.Tool{Name: "spinner", Code: `while true do end`, Active: true}

	var logged []string
	start := time.Now()
	err := rt.Execute(context.Background(), tool, session, testRunContext(&logged))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSandboxBlocksDangerousGlobals(t *testing.T) {
	session := newFakeSession()

	var logged []string
	for _, code := range []string{
		`os.execute("rm -rf /")`,
		`io.open("/etc/passwd")`,
		`loadstring("return 1")()`,
		`dofile("/tmp/x.lua")`,
		`print("direct output")`,
	} {
		err := execute(t, code, session, &logged)
		assert.Error(t, err, "expected sandbox to reject: %s", code)
	}
	assert.Empty(t, logged)
}

func TestSleepIsBounded(t *testing.T) {
	session := newFakeSession()
	rt := NewRuntime(10 * time.Second)
	tool := &types.Tool{Name: "napper", Code: `sleep(999999)`, Active: true}

	var logged []string
	start := time.Now()
	require.NoError(t, rt.Execute(context.Background(), tool, session, testRunContext(&logged)))
	elapsed := time.Since(start)
	assert.Less(t, elapsed, 7*time.Second, "sleep should be capped at %dms", maxSleepMs)
}
