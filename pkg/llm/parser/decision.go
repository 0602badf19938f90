// Package parser turns raw planner text into structured decisions.
//
// Planner output is untrusted free-form text. Parsing never panics and never
// returns a Go error: the result is a tagged value with an explicit
// unparseable variant, so recovery (log and continue) is a normal branch in
// the loop rather than an exception path.
package parser

import (
	"encoding/json"
	"strings"

	"github.com/entrhq/webpilot/pkg/types"
)

// Result is the outcome of parsing one planner response.
// Exactly one of Decision or Reason is meaningful: a nil Decision means the
// response was unparseable and Reason says why.
type Result struct {
	Decision *types.Decision
	Reason   string
}

// OK reports whether a decision was parsed.
func (r Result) OK() bool {
	return r.Decision != nil
}

// unparseable builds the failure variant.
func unparseable(reason string) Result {
	return Result{Reason: reason}
}

// wireDecision mirrors the JSON schema the planner is asked to produce.
type wireDecision struct {
	Thought  string `json:"thought"`
	Action   string `json:"action"`
	Target   string `json:"target"`
	Value    string `json:"value"`
	Tool     string `json:"tool"`
	Complete bool   `json:"complete"`
}

// ParseDecision extracts the first JSON object from raw planner text and
// decodes it as a decision. Markdown code fences are stripped first since
// models frequently wrap JSON in them despite instructions.
//
// An action outside the known set maps to ActionUnknown; that is a valid
// decision, not a parse failure.
func ParseDecision(raw string) Result {
	text := stripFences(strings.TrimSpace(raw))
	if text == "" {
		return unparseable("planner response was empty")
	}

	obj, ok := extractJSONObject(text)
	if !ok {
		return unparseable("no JSON object found in planner response")
	}

	var wire wireDecision
	if err := json.Unmarshal(obj, &wire); err != nil {
		return unparseable("invalid decision JSON: " + err.Error())
	}

	return Result{Decision: &types.Decision{
		Thought:  wire.Thought,
		Action:   types.ParseActionType(wire.Action),
		Target:   wire.Target,
		Value:    wire.Value,
		Tool:     wire.Tool,
		Complete: wire.Complete,
	}}
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	// Drop the language tag on the opening fence line
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(text[:idx])
		if !strings.ContainsAny(firstLine, "{}") {
			text = text[idx+1:]
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// extractJSONObject finds the first decodable top-level JSON object in text.
// Candidate start positions are every '{'; the JSON decoder tolerates
// trailing text after a complete value, so surrounding prose is ignored.
func extractJSONObject(text string) (json.RawMessage, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}

		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var obj json.RawMessage
		if err := dec.Decode(&obj); err != nil {
			continue
		}
		if len(obj) > 0 && obj[0] == '{' {
			return obj, true
		}
	}
	return nil, false
}
