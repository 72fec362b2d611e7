package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsFirstRunCreatesMarkerOnce(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if !IsFirstRun() {
		t.Fatal("expected first call to report first run")
	}
	if IsFirstRun() {
		t.Fatal("expected second call to report not first run")
	}

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir failed: %v", err)
	}
	if filepath.Base(dir) != appName {
		t.Fatalf("expected config dir named %q, got %q", appName, dir)
	}
	if _, err := os.Stat(filepath.Join(dir, markerFileName)); err != nil {
		t.Fatalf("expected marker file to exist: %v", err)
	}
}
