package covdir

import (
	"math"
	"testing"

	"github.com/covspect/covspect/internal/errdefs"
)

const sampleReport = `{
	"name": "",
	"linesCovered": 999,
	"linesTotal": 1000,
	"coveragePercent": 99.9,
	"children": {
		"a.js": {
			"name": "a.js",
			"linesCovered": 8,
			"linesMissed": 2,
			"linesTotal": 10,
			"coveragePercent": 80.0,
			"coverage": [-1, 1, 1, 1, 1, 0, 0, 1, 1, 1, 1]
		},
		"b": {
			"name": "b",
			"children": {
				"c.js": {
					"name": "c.js",
					"linesCovered": 0,
					"linesMissed": 5,
					"linesTotal": 5,
					"coveragePercent": 0.0
				}
			}
		},
		"empty": {
			"name": "empty",
			"children": {}
		}
	}
}`

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func mustDecode(t *testing.T, data string) *Node {
	t.Helper()
	root, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return root
}

func TestEncodeRoundTrip(t *testing.T) {
	root := mustDecode(t, sampleReport)

	data, err := Encode(root)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	again, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode of encoded tree failed: %v", err)
	}

	summary, err := PercentForPath(again, "a.js")
	if err != nil {
		t.Fatalf("PercentForPath failed: %v", err)
	}
	if !almostEqual(summary.CoveragePercent, 80.0) {
		t.Fatalf("expected a.js to keep 80%% after round trip, got %f", summary.CoveragePercent)
	}
	if len(summary.Coverage) != 11 {
		t.Fatalf("expected per-line coverage to survive round trip, got %d entries", len(summary.Coverage))
	}

	if _, err := Encode(nil); err == nil {
		t.Fatal("expected error encoding a nil tree")
	}
}

func TestDecodeRejectsNonObjectRoot(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{name: "array", input: `[1, 2]`},
		{name: "string", input: `"coverage"`},
		{name: "null", input: `null`},
		{name: "empty", input: ``},
		{name: "truncated", input: `{"name": "x"`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode([]byte(tc.input)); err == nil {
				t.Fatalf("expected decode error for %q", tc.input)
			}
		})
	}
}

func TestPercentForPathRootIsWeighted(t *testing.T) {
	root := mustDecode(t, sampleReport)

	summary, err := PercentForPath(root, "")
	if err != nil {
		t.Fatalf("PercentForPath failed: %v", err)
	}
	if summary.Type != TypeDirectory {
		t.Fatalf("expected directory, got %s", summary.Type)
	}
	// 8 covered of 15 total lines, never the flat mean of child percents.
	if !almostEqual(summary.CoveragePercent, 100.0*8.0/15.0) {
		t.Fatalf("expected 53.33, got %v", summary.CoveragePercent)
	}

	if len(summary.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(summary.Children))
	}
	wantChildren := []struct {
		name    string
		kind    NodeType
		percent float64
	}{
		{name: "a.js", kind: TypeFile, percent: 80.0},
		{name: "b", kind: TypeDirectory, percent: 0.0},
		{name: "empty", kind: TypeDirectory, percent: 100.0},
	}
	for i, want := range wantChildren {
		got := summary.Children[i]
		if got.Name != want.name || got.Type != want.kind || !almostEqual(got.CoveragePercent, want.percent) {
			t.Fatalf("child %d: expected %+v, got %+v", i, want, got)
		}
	}
}

func TestPercentForPathIgnoresDirectoryCounters(t *testing.T) {
	// The root carries bogus stored counters (999/1000); the result must
	// come from the file leaves only.
	root := mustDecode(t, sampleReport)

	totals, err := Summarize(root)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if totals.Covered != 8 || totals.Total != 15 {
		t.Fatalf("expected 8/15 from leaves, got %d/%d", totals.Covered, totals.Total)
	}
}

func TestPercentForPathFile(t *testing.T) {
	root := mustDecode(t, sampleReport)

	summary, err := PercentForPath(root, "a.js")
	if err != nil {
		t.Fatalf("PercentForPath failed: %v", err)
	}
	if summary.Type != TypeFile {
		t.Fatalf("expected file, got %s", summary.Type)
	}
	if !almostEqual(summary.CoveragePercent, 80.0) {
		t.Fatalf("expected 80, got %v", summary.CoveragePercent)
	}
	if len(summary.Coverage) != 11 || summary.Coverage[0] != -1 || summary.Coverage[5] != 0 {
		t.Fatalf("expected per-line data to pass through, got %v", summary.Coverage)
	}
	if len(summary.Children) != 0 {
		t.Fatalf("expected no children for a file, got %v", summary.Children)
	}
}

func TestPercentForPathUncoveredSubtree(t *testing.T) {
	root := mustDecode(t, sampleReport)

	summary, err := PercentForPath(root, "b")
	if err != nil {
		t.Fatalf("PercentForPath failed: %v", err)
	}
	if !almostEqual(summary.CoveragePercent, 0.0) {
		t.Fatalf("expected 0, got %v", summary.CoveragePercent)
	}
}

func TestPercentForPathEmptyDirectory(t *testing.T) {
	root := mustDecode(t, sampleReport)

	summary, err := PercentForPath(root, "empty")
	if err != nil {
		t.Fatalf("PercentForPath failed: %v", err)
	}
	if summary.Type != TypeDirectory {
		t.Fatalf("expected directory, got %s", summary.Type)
	}
	if !almostEqual(summary.CoveragePercent, 100.0) {
		t.Fatalf("expected 100 for empty directory, got %v", summary.CoveragePercent)
	}
	if len(summary.Children) != 0 {
		t.Fatalf("expected no children, got %v", summary.Children)
	}
}

func TestPercentForPathZeroTotalFile(t *testing.T) {
	root := mustDecode(t, `{"name": "", "children": {
		"gen.js": {"name": "gen.js", "linesCovered": 0, "linesMissed": 0, "linesTotal": 0, "coveragePercent": 0}
	}}`)

	summary, err := PercentForPath(root, "gen.js")
	if err != nil {
		t.Fatalf("PercentForPath failed: %v", err)
	}
	if !almostEqual(summary.CoveragePercent, 100.0) {
		t.Fatalf("expected 100 for zero-total file, got %v", summary.CoveragePercent)
	}
}

func TestPercentForPathWeightedNotFlat(t *testing.T) {
	root := mustDecode(t, `{"name": "", "children": {
		"big.c": {"name": "big.c", "linesCovered": 1000, "linesMissed": 0, "linesTotal": 1000},
		"small.c": {"name": "small.c", "linesCovered": 0, "linesMissed": 10, "linesTotal": 10}
	}}`)

	summary, err := PercentForPath(root, "")
	if err != nil {
		t.Fatalf("PercentForPath failed: %v", err)
	}
	// 1000/1010, not the flat mean 50.
	if !almostEqual(summary.CoveragePercent, 100.0*1000.0/1010.0) {
		t.Fatalf("expected ~99.0099, got %v", summary.CoveragePercent)
	}
}

func TestLookupMissingPath(t *testing.T) {
	root := mustDecode(t, sampleReport)

	cases := []struct {
		name string
		path string
	}{
		{name: "unknown_top_level", path: "nope"},
		{name: "unknown_nested", path: "b/missing.js"},
		{name: "descend_through_file", path: "a.js/deeper"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PercentForPath(root, tc.path)
			if err == nil {
				t.Fatalf("expected error for path %q", tc.path)
			}
			if !errdefs.IsPathNotFound(err) {
				t.Fatalf("expected path-not-found error, got %v", err)
			}
		})
	}
}

func TestLookupNormalizesSlashes(t *testing.T) {
	root := mustDecode(t, sampleReport)

	for _, path := range []string{"b/c.js", "/b/c.js", "b/c.js/", "b//c.js"} {
		node, err := Lookup(root, path)
		if err != nil {
			t.Fatalf("Lookup(%q) failed: %v", path, err)
		}
		if node.Name != "c.js" {
			t.Fatalf("Lookup(%q) returned %q", path, node.Name)
		}
	}
}

func TestSummarizeDepthGuard(t *testing.T) {
	root := &Node{Children: map[string]*Node{}}
	node := root
	for i := 0; i < maxTreeDepth+10; i++ {
		child := &Node{Name: "d", Children: map[string]*Node{}}
		node.Children["d"] = child
		node = child
	}

	if _, err := Summarize(root); err == nil {
		t.Fatal("expected depth guard error for a pathological tree")
	} else if errdefs.IsPathNotFound(err) {
		t.Fatalf("depth guard must not be a client error, got %v", err)
	}
}

func TestSupportedExtensions(t *testing.T) {
	exts := SupportedExtensions()
	if len(exts) == 0 {
		t.Fatal("expected a non-empty extension list")
	}

	seen := map[string]bool{}
	for _, ext := range exts {
		seen[ext] = true
	}
	for _, want := range []string{"c", "cpp", "js", "rs"} {
		if !seen[want] {
			t.Fatalf("expected extension %q in %v", want, exts)
		}
	}

	exts[0] = "mutated"
	if fresh := SupportedExtensions(); fresh[0] == "mutated" {
		t.Fatal("expected SupportedExtensions to return a copy")
	}
}
