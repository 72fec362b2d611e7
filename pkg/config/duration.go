package config

import (
	"strconv"
	"strings"
	"time"
)

// ParseDuration parses a duration string with support for days (d)
// on top of the standard Go units.
// Examples: "90d", "7d", "168h", "5m", "30s"
func ParseDuration(s string) (time.Duration, error) {
	value := strings.TrimSpace(s)

	if digits, ok := strings.CutSuffix(value, "d"); ok {
		if days, err := strconv.Atoi(digits); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}

	// Fall back to standard Go duration parsing
	return time.ParseDuration(value)
}
