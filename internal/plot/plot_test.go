package plot

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/covspect/covspect/internal/service"
)

func sampleSeries() []service.HistoryPoint {
	return []service.HistoryPoint{
		{Changeset: "rev1", Date: 1700003600, Coverage: 50.0},
		{Changeset: "rev2", Date: 1700007200, Coverage: 62.5},
		{Changeset: "rev3", Date: 1700010800, Coverage: 80.0},
	}
}

func TestHistoryChartRenders(t *testing.T) {
	var buf bytes.Buffer
	chart := History("mozilla-central coverage", "netwerk/", sampleSeries())
	if err := chart.Render(&buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	html := buf.String()
	for _, want := range []string{"mozilla-central coverage", "netwerk/", "rev1", "2023-11-14"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in the rendered chart", want)
		}
	}
}

func TestWriteHistoryCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.html")
	if err := WriteHistory(path, "coverage", "", sampleSeries()); err != nil {
		t.Fatalf("WriteHistory failed: %v", err)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read chart file: %v", err)
	}
	if !strings.Contains(string(body), "<html") {
		t.Errorf("expected an HTML document, got %q", string(body[:min(len(body), 64)]))
	}
}

func TestHistoryChartEmptySeries(t *testing.T) {
	var buf bytes.Buffer
	if err := History("coverage", "", nil).Render(&buf); err != nil {
		t.Fatalf("Render of empty series failed: %v", err)
	}
}
