// Package prompts constructs the planner prompt for each loop iteration.
package prompts

import (
	"fmt"
	"strings"

	"github.com/entrhq/webpilot/pkg/types"
)

// ResponseSchemaPrompt tells the planner exactly what shape of JSON to return.
const ResponseSchemaPrompt = `Respond with a single JSON object in exactly this format:
{
  "thought": "your reasoning about the current state and what to do next",
  "action": "click" | "type" | "navigate" | "scroll" | "wait" | "complete",
  "target": "CSS selector or URL (for click, type, navigate, wait)",
  "value": "text to type (for type)",
  "tool": "name of a tool to run this iteration (optional)",
  "complete": true when the goal is fully achieved, otherwise false
}
Return only the JSON object. Do not wrap it in markdown or add commentary.`

// PromptBuilder constructs the per-iteration planner prompt.
type PromptBuilder struct {
	goal          string
	iteration     int
	maxIterations int
	memories      []types.MemoryEntry
	tools         []types.Tool
}

// NewPromptBuilder creates a new prompt builder.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// WithGoal sets the run goal.
func (pb *PromptBuilder) WithGoal(goal string) *PromptBuilder {
	pb.goal = goal
	return pb
}

// WithIteration sets the current iteration index and the cap.
func (pb *PromptBuilder) WithIteration(iteration, maxIterations int) *PromptBuilder {
	pb.iteration = iteration
	pb.maxIterations = maxIterations
	return pb
}

// WithMemories sets the recent memory window, oldest first.
func (pb *PromptBuilder) WithMemories(memories []types.MemoryEntry) *PromptBuilder {
	pb.memories = memories
	return pb
}

// WithTools sets the available tools.
func (pb *PromptBuilder) WithTools(tools []types.Tool) *PromptBuilder {
	pb.tools = tools
	return pb
}

// Build constructs the complete planner prompt by assembling all sections.
func (pb *PromptBuilder) Build() string {
	var builder strings.Builder

	builder.WriteString("<goal>\n")
	builder.WriteString(pb.goal)
	builder.WriteString("\n</goal>\n\n")

	fmt.Fprintf(&builder, "<progress>\nIteration %d of %d.\n</progress>\n\n", pb.iteration, pb.maxIterations)

	if len(pb.memories) > 0 {
		builder.WriteString("<recent_memory>\n")
		for _, entry := range pb.memories {
			fmt.Fprintf(&builder, "[%s] %s\n", entry.Type, entry.Content)
		}
		builder.WriteString("</recent_memory>\n\n")
	}

	if len(pb.tools) > 0 {
		builder.WriteString("<available_tools>\n")
		for _, tool := range pb.tools {
			fmt.Fprintf(&builder, "- %s: %s\n", tool.Name, tool.Description)
		}
		builder.WriteString("</available_tools>\n\n")
	}

	builder.WriteString(ResponseSchemaPrompt)

	return builder.String()
}
