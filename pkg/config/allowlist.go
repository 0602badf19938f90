package config

import (
	"fmt"

	"github.com/gobwas/glob"
)

// URLMatcher handles glob pattern matching for navigation control.
type URLMatcher struct {
	allowedPatterns []glob.Glob
	deniedPatterns  []glob.Glob
}

// NewURLMatcher compiles the navigation patterns into a matcher.
func NewURLMatcher(nav NavigationConfig) (*URLMatcher, error) {
	m := &URLMatcher{}

	for _, pattern := range nav.AllowedPatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed pattern '%s': %w", pattern, err)
		}
		m.allowedPatterns = append(m.allowedPatterns, g)
	}

	for _, pattern := range nav.DeniedPatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid denied pattern '%s': %w", pattern, err)
		}
		m.deniedPatterns = append(m.deniedPatterns, g)
	}

	return m, nil
}

// IsAllowed returns true if the URL is allowed by the pattern rules.
func (m *URLMatcher) IsAllowed(url string) bool {
	// Denied patterns take precedence
	for _, pattern := range m.deniedPatterns {
		if pattern.Match(url) {
			return false
		}
	}

	// If no allowed patterns specified, allow all (except denied)
	if len(m.allowedPatterns) == 0 {
		return true
	}

	for _, pattern := range m.allowedPatterns {
		if pattern.Match(url) {
			return true
		}
	}

	return false
}
