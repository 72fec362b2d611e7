// Package app holds per-user application state: the covspect config
// directory and the first-run marker inside it.
package app

import (
	"log/slog"
	"os"
	"path/filepath"
)

const (
	appName        = "covspect"
	markerFileName = "first_run_completed"
)

// ConfigDir returns the per-user covspect configuration directory.
// The directory is not created by this call.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appName), nil
}

// IsFirstRun reports whether this is the first covspect invocation for
// this user. The first call creates a marker file so later calls
// return false. On any error the answer is false.
func IsFirstRun() bool {
	dir, err := ConfigDir()
	if err != nil {
		slog.Error("failed to locate user config directory", slog.String("error", err.Error()))
		return false
	}

	marker := filepath.Join(dir, markerFileName)

	if _, err := os.Stat(marker); err == nil {
		return false
	} else if !os.IsNotExist(err) {
		slog.Error("failed to check first run marker", slog.String("path", marker), slog.String("error", err.Error()))
		return false
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("failed to create config directory", slog.String("path", dir), slog.String("error", err.Error()))
		return false
	}
	f, err := os.Create(marker)
	if err != nil {
		slog.Error("failed to create first run marker", slog.String("path", marker), slog.String("error", err.Error()))
		return false
	}
	_ = f.Close()

	slog.Debug("first run marker created", slog.String("path", marker))
	return true
}
