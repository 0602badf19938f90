// Package tokenizer provides client-side token counting for prompt budgeting.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// encodingName is the BPE encoding used for counting. cl100k_base matches the
// GPT-4 family closely enough for budget logging.
const encodingName = "cl100k_base"

// Tokenizer counts tokens using a tiktoken encoding.
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
}

// New creates a tokenizer. Initialization can fail when the encoding data is
// unavailable (e.g., no network and no cache); callers should treat a nil
// tokenizer as "fall back to approximate counting".
func New() (*Tokenizer, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", encodingName, err)
	}
	return &Tokenizer{encoding: encoding}, nil
}

// CountTokens returns the number of tokens in the text.
func (t *Tokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.encoding.Encode(text, nil, nil))
}

// Approximate estimates a token count without an encoding, using the rough
// 1 token per 4 characters heuristic.
func Approximate(text string) int {
	return len(text) / 4
}
