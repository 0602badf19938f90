// Package config loads webpilot configuration from a YAML file and provides
// typed access with sane defaults for every section.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full webpilot configuration.
type Config struct {
	Planner    PlannerConfig    `yaml:"planner"`
	Loop       LoopConfig       `yaml:"loop"`
	Browser    BrowserConfig    `yaml:"browser"`
	Storage    StorageConfig    `yaml:"storage"`
	Navigation NavigationConfig `yaml:"navigation"`
}

// PlannerConfig configures the planning oracle client.
type PlannerConfig struct {
	Model string `yaml:"model"`
	// BaseURL enables OpenAI-compatible APIs (Azure, local models, proxies).
	BaseURL string `yaml:"base_url"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`
	// TimeoutSeconds bounds a single planner call. A timeout is fatal to the
	// run rather than silently stalling it.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// LoopConfig bounds the decision loop.
type LoopConfig struct {
	// MaxIterations caps decision cycles per run. Reaching it is a normal
	// completion, not an error.
	MaxIterations int `yaml:"max_iterations"`
	// MemoryWindow is the number of recent memory entries fed back into the
	// planner prompt.
	MemoryWindow int `yaml:"memory_window"`
	// SettleDelayMs is applied after state-changing actions (click, navigate)
	// before the next observation.
	SettleDelayMs int `yaml:"settle_delay_ms"`
	// IterationDelayMs is the fixed pause between iterations, bounding the
	// external call rate.
	IterationDelayMs int `yaml:"iteration_delay_ms"`
	// ToolTimeoutSeconds bounds a single tool execution.
	ToolTimeoutSeconds int `yaml:"tool_timeout_seconds"`
}

// BrowserConfig configures the Playwright session.
type BrowserConfig struct {
	Headless       bool `yaml:"headless"`
	ViewportWidth  int  `yaml:"viewport_width"`
	ViewportHeight int  `yaml:"viewport_height"`
	// TimeoutMs is the default timeout for page operations.
	TimeoutMs float64 `yaml:"timeout_ms"`
}

// StorageConfig configures the SQLite store.
type StorageConfig struct {
	// Path is the SQLite database file. ":memory:" keeps everything in-process.
	Path string `yaml:"path"`
}

// NavigationConfig restricts which URLs the agent may navigate to.
type NavigationConfig struct {
	// AllowedPatterns are glob patterns; empty means all URLs are allowed
	// (except denied ones).
	AllowedPatterns []string `yaml:"allowed_patterns"`
	// DeniedPatterns take precedence over allowed patterns.
	DeniedPatterns []string `yaml:"denied_patterns"`
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Planner: PlannerConfig{
			Model:          "gpt-4o",
			APIKeyEnv:      "OPENAI_API_KEY",
			TimeoutSeconds: 120,
		},
		Loop: LoopConfig{
			MaxIterations:      20,
			MemoryWindow:       10,
			SettleDelayMs:      2000,
			IterationDelayMs:   1000,
			ToolTimeoutSeconds: 30,
		},
		Browser: BrowserConfig{
			Headless:       true,
			ViewportWidth:  1280,
			ViewportHeight: 720,
			TimeoutMs:      30000,
		},
		Storage: StorageConfig{
			Path: "webpilot.db",
		},
	}
}

// Load reads a YAML config file and merges it over the defaults. Fields left
// unset in the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the loop cannot run with.
func (c *Config) Validate() error {
	if c.Loop.MaxIterations <= 0 {
		return fmt.Errorf("loop.max_iterations must be positive (got %d)", c.Loop.MaxIterations)
	}
	if c.Loop.MemoryWindow <= 0 {
		return fmt.Errorf("loop.memory_window must be positive (got %d)", c.Loop.MemoryWindow)
	}
	if c.Planner.Model == "" {
		return fmt.Errorf("planner.model cannot be empty")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path cannot be empty")
	}
	return nil
}

// PlannerTimeout returns the planner call timeout as a duration.
func (c *Config) PlannerTimeout() time.Duration {
	return time.Duration(c.Planner.TimeoutSeconds) * time.Second
}

// SettleDelay returns the post-action settle delay as a duration.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Loop.SettleDelayMs) * time.Millisecond
}

// IterationDelay returns the inter-iteration delay as a duration.
func (c *Config) IterationDelay() time.Duration {
	return time.Duration(c.Loop.IterationDelayMs) * time.Millisecond
}

// ToolTimeout returns the tool execution timeout as a duration.
func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.Loop.ToolTimeoutSeconds) * time.Second
}
