package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{name: "StoreURL", got: cfg.StoreURL, want: ""},
		{name: "StoreTimeout", got: cfg.StoreTimeout, want: 30 * time.Second},
		{name: "StoreRateLimit", got: cfg.StoreRateLimit, want: 20},
		{name: "DefaultRepository", got: cfg.DefaultRepository, want: ""},
		{name: "IndexRefreshInterval", got: cfg.IndexRefreshInterval, want: 5 * time.Minute},
		{name: "CacheTTL", got: cfg.CacheTTL, want: 10 * time.Minute},
		{name: "CacheMaxSize", got: cfg.CacheMaxSize, want: 4096},
		{name: "Concurrency", got: cfg.Concurrency, want: 5},
		{name: "ExcludePaths", got: len(cfg.ExcludePaths), want: 0},
		{name: "ServerPort", got: cfg.ServerPort, want: 8080},
		{name: "Verbose", got: cfg.Verbose, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, tc.got)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "seconds", input: "30s", want: 30 * time.Second},
		{name: "minutes", input: "5m", want: 5 * time.Minute},
		{name: "hours", input: "2h", want: 2 * time.Hour},
		{name: "days", input: "7d", want: 7 * 24 * time.Hour},
		{name: "year_in_days", input: "365d", want: 365 * 24 * time.Hour},
		{name: "fallback_go_duration", input: "1.5h", want: time.Duration(1.5 * float64(time.Hour))},
		{name: "fractional_days_invalid", input: "1.5d", wantErr: true},
		{name: "invalid", input: "5x", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDuration(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for %q: %v", tc.input, err)
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
