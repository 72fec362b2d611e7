package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/covspect/covspect/internal/app"
)

const (
	// DefaultConfigFileYAML is the canonical config filename.
	DefaultConfigFileYAML = ".covspect.yaml"
	// DefaultConfigFileYML is a compatible alternate config filename.
	DefaultConfigFileYML = ".covspect.yml"
)

// FileConfig represents values loaded from a .covspect.yaml file.
type FileConfig struct {
	StoreURL          string   `yaml:"store_url"`
	Store             string   `yaml:"store"`
	DefaultRepository string   `yaml:"default_repository"`
	Repository        string   `yaml:"repository"`
	ExcludePaths      []string `yaml:"exclude_paths"`
	StoreTimeout      string   `yaml:"store_timeout"`
	Timeout           string   `yaml:"timeout"`
	StoreRateLimit    *int     `yaml:"store_rate_limit"`
	CacheTTL          string   `yaml:"cache_ttl"`
	RefreshInterval   string   `yaml:"refresh_interval"`
	Concurrency       *int     `yaml:"concurrency"`
	ServerPort        *int     `yaml:"port"`
}

// StoreEndpoint returns the first configured report store location.
func (fc *FileConfig) StoreEndpoint() string {
	if fc == nil {
		return ""
	}
	if url := strings.TrimSpace(fc.StoreURL); url != "" {
		return url
	}
	return strings.TrimSpace(fc.Store)
}

// RepositoryValue returns the repository from default_repository/repository fields.
func (fc *FileConfig) RepositoryValue() string {
	if fc == nil {
		return ""
	}
	if repo := strings.TrimSpace(fc.DefaultRepository); repo != "" {
		return repo
	}
	return strings.TrimSpace(fc.Repository)
}

// StoreTimeoutValue returns timeout from store_timeout/timeout fields.
func (fc *FileConfig) StoreTimeoutValue() string {
	if fc == nil {
		return ""
	}
	if timeout := strings.TrimSpace(fc.StoreTimeout); timeout != "" {
		return timeout
	}
	return strings.TrimSpace(fc.Timeout)
}

// Normalize trims and removes empty items from list fields.
func (fc *FileConfig) Normalize() {
	if fc == nil {
		return
	}
	fc.ExcludePaths = normalizeList(fc.ExcludePaths)
	fc.StoreURL = strings.TrimSpace(fc.StoreURL)
	fc.Store = strings.TrimSpace(fc.Store)
	fc.DefaultRepository = strings.TrimSpace(fc.DefaultRepository)
	fc.Repository = strings.TrimSpace(fc.Repository)
	fc.StoreTimeout = strings.TrimSpace(fc.StoreTimeout)
	fc.Timeout = strings.TrimSpace(fc.Timeout)
	fc.CacheTTL = strings.TrimSpace(fc.CacheTTL)
	fc.RefreshInterval = strings.TrimSpace(fc.RefreshInterval)
}

// AutoLoadFile discovers and loads the first available config file,
// checking the working directory, then the home directory, then the
// per-user covspect config directory.
func AutoLoadFile() (*FileConfig, string, error) {
	candidates := []string{
		DefaultConfigFileYAML,
		DefaultConfigFileYML,
	}

	if homeDir, err := os.UserHomeDir(); err == nil && strings.TrimSpace(homeDir) != "" {
		candidates = append(candidates,
			filepath.Join(homeDir, DefaultConfigFileYAML),
			filepath.Join(homeDir, DefaultConfigFileYML),
		)
	}

	if appDir, err := app.ConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(appDir, "config.yaml"))
	}

	return LoadFirstExistingFile(candidates)
}

// LoadFirstExistingFile loads the first config file that exists in paths.
func LoadFirstExistingFile(paths []string) (*FileConfig, string, error) {
	for _, path := range paths {
		candidate := strings.TrimSpace(path)
		if candidate == "" {
			continue
		}

		info, err := os.Stat(candidate)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, "", fmt.Errorf("failed to access config file %q: %w", candidate, err)
		}
		if info.IsDir() {
			return nil, "", fmt.Errorf("config path %q is a directory, expected a file", candidate)
		}

		cfg, err := LoadFile(candidate)
		if err != nil {
			return nil, "", err
		}
		return cfg, candidate, nil
	}

	return nil, "", nil
}

// LoadFile loads config values from a specific YAML file path.
func LoadFile(path string) (*FileConfig, error) {
	filename := strings.TrimSpace(path)
	if filename == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", filename, err)
	}

	cfg := &FileConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", filename, err)
	}

	cfg.Normalize()
	return cfg, nil
}

func normalizeList(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}

	normalized := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		normalized = append(normalized, trimmed)
	}
	return normalized
}
