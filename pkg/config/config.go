package config

import "time"

// Config holds all runtime configuration
type Config struct {
	// Report store settings
	StoreURL       string
	StoreTimeout   time.Duration
	StoreRateLimit int

	// Repository settings
	DefaultRepository string

	// Index settings
	IndexRefreshInterval time.Duration

	// Cache settings
	CacheTTL     time.Duration
	CacheMaxSize int

	// Concurrency settings
	Concurrency int

	// Import settings
	ExcludePaths []string

	// Server settings
	ServerPort int

	// Operational flags
	Verbose bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		StoreTimeout:         30 * time.Second,
		StoreRateLimit:       20,
		IndexRefreshInterval: 5 * time.Minute,
		CacheTTL:             10 * time.Minute,
		CacheMaxSize:         4096,
		Concurrency:          5,
		ExcludePaths:         []string{},
		ServerPort:           8080,
		Verbose:              false,
	}
}
