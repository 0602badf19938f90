package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 20, cfg.Loop.MaxIterations)
	assert.Equal(t, 10, cfg.Loop.MemoryWindow)
	assert.Equal(t, "gpt-4o", cfg.Planner.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Planner.APIKeyEnv)
	assert.True(t, cfg.Browser.Headless)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	content := `
planner:
  model: gpt-4o-mini
  timeout_seconds: 60
loop:
  max_iterations: 5
  settle_delay_ms: 100
navigation:
  allowed_patterns:
    - "https://example.com/*"
  denied_patterns:
    - "*logout*"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, "gpt-4o-mini", cfg.Planner.Model)
	assert.Equal(t, 5, cfg.Loop.MaxIterations)
	assert.Equal(t, 100*time.Millisecond, cfg.SettleDelay())
	assert.Equal(t, 60*time.Second, cfg.PlannerTimeout())

	// Defaults preserved for unset fields
	assert.Equal(t, 10, cfg.Loop.MemoryWindow)
	assert.Equal(t, "webpilot.db", cfg.Storage.Path)

	assert.Equal(t, []string{"https://example.com/*"}, cfg.Navigation.AllowedPatterns)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Loop.MaxIterations = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Planner.Model = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Loop.MemoryWindow = -1
	assert.Error(t, cfg.Validate())
}

func TestURLMatcher(t *testing.T) {
	tests := []struct {
		name    string
		nav     NavigationConfig
		url     string
		allowed bool
	}{
		{
			name:    "no patterns allows everything",
			nav:     NavigationConfig{},
			url:     "https://anywhere.com/page",
			allowed: true,
		},
		{
			name:    "allowed pattern matches",
			nav:     NavigationConfig{AllowedPatterns: []string{"https://example.com/*"}},
			url:     "https://example.com/inbox",
			allowed: true,
		},
		{
			name:    "allowed pattern does not match other hosts",
			nav:     NavigationConfig{AllowedPatterns: []string{"https://example.com/*"}},
			url:     "https://evil.com/inbox",
			allowed: false,
		},
		{
			name: "denied takes precedence over allowed",
			nav: NavigationConfig{
				AllowedPatterns: []string{"https://example.com/*"},
				DeniedPatterns:  []string{"*logout*"},
			},
			url:     "https://example.com/logout",
			allowed: false,
		},
		{
			name:    "denied only",
			nav:     NavigationConfig{DeniedPatterns: []string{"*://internal.*"}},
			url:     "https://internal.corp/secret",
			allowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewURLMatcher(tt.nav)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, m.IsAllowed(tt.url))
		})
	}
}

func TestURLMatcherInvalidPattern(t *testing.T) {
	_, err := NewURLMatcher(NavigationConfig{AllowedPatterns: []string{"[unclosed"}})
	assert.Error(t, err)
}
