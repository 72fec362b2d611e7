package config

import (
	"path"
	"strings"
)

// Normalize cleans exclude patterns and removes empty values.
func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.ExcludePaths = normalizePatterns(c.ExcludePaths)
}

// IsPathExcluded reports whether a repository-relative file path matches
// the configured exclude patterns. A pattern can match the full path, the
// base name, or any ancestor directory; excluding a directory excludes
// everything below it.
func (c *Config) IsPathExcluded(p string) bool {
	if c == nil || len(c.ExcludePaths) == 0 {
		return false
	}

	value := normalizePath(p)
	if value == "" {
		return false
	}
	base := path.Base(value)

	for _, pattern := range c.ExcludePaths {
		if patternMatches(pattern, value) {
			return true
		}
		if patternMatches(pattern, base) {
			return true
		}
		if matchesAncestor(pattern, value) {
			return true
		}
	}

	return false
}

func matchesAncestor(pattern, value string) bool {
	for dir := path.Dir(value); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if patternMatches(pattern, dir) {
			return true
		}
	}
	return false
}

func normalizePatterns(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}

	normalized := make([]string, 0, len(values))
	for _, pattern := range values {
		p := normalizePath(pattern)
		if p == "" {
			continue
		}
		normalized = append(normalized, p)
	}
	return normalized
}

func normalizePath(value string) string {
	trimmed := strings.Trim(strings.TrimSpace(value), "/")
	if trimmed == "" {
		return ""
	}
	cleaned := path.Clean(trimmed)
	if cleaned == "." {
		return ""
	}
	return cleaned
}

func patternMatches(pattern, value string) bool {
	if pattern == "" || value == "" {
		return false
	}

	// Invalid glob patterns are treated as exact matches.
	matched, err := path.Match(pattern, value)
	if err == nil {
		return matched
	}
	return pattern == value
}
