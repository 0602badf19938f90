// Package llm provides abstractions for planner integration.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("OPENAI_API_KEY"),
//	    openai.WithModel("gpt-4o"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	raw, err := provider.Generate(ctx, prompt)
package llm

import "context"

// Provider defines the interface for the planning oracle.
//
// Providers handle API communication with LLM services and return raw
// response text. The agent layer is responsible for parsing the text into a
// Decision and for all recovery behavior; providers never interpret the
// response.
type Provider interface {
	// Generate sends a prompt to the planner and returns the raw response
	// text. The response is expected, but not guaranteed, to contain a JSON
	// object matching the decision schema.
	//
	// Cancellation and deadlines come from ctx; a deadline exceeded error
	// surfaces like any other provider error.
	Generate(ctx context.Context, prompt string) (string, error)

	// GetModel returns the model name being used.
	GetModel() string
}
