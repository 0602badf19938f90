package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountTokens(t *testing.T) {
	tok, err := New()
	if err != nil {
		// Encoding data may be unavailable in offline environments
		t.Skipf("tokenizer initialization failed: %v", err)
	}

	assert.Equal(t, 0, tok.CountTokens(""))
	assert.Greater(t, tok.CountTokens("log into example.com and read my inbox"), 0)

	short := tok.CountTokens("hello")
	long := tok.CountTokens("hello world, this is a much longer sentence with more tokens")
	assert.Greater(t, long, short)
}

func TestApproximate(t *testing.T) {
	assert.Equal(t, 0, Approximate(""))
	assert.Equal(t, 10, Approximate("0123456789012345678901234567890123456789"))
}
