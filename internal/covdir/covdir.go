// Package covdir models coverage reports in the covdir JSON format: a
// tree of directories and files where every file carries line counters
// and an optional per-line hit array.
package covdir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/covspect/covspect/internal/errdefs"
)

// maxTreeDepth bounds aggregation recursion. Source trees are nowhere
// near this deep; exceeding it means the report is malformed.
const maxTreeDepth = 256

// Node is a single element of a covdir tree. A node with a non-nil
// Children map is a directory, otherwise it is a file.
//
// Counters on directory nodes are ignored when reading a report;
// aggregates are always recomputed from file leaves.
type Node struct {
	Name            string           `json:"name"`
	Children        map[string]*Node `json:"children,omitempty"`
	Coverage        []int            `json:"coverage,omitempty"`
	LinesCovered    int              `json:"linesCovered"`
	LinesMissed     int              `json:"linesMissed"`
	LinesTotal      int              `json:"linesTotal"`
	CoveragePercent float64          `json:"coveragePercent"`
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool {
	return n != nil && n.Children != nil
}

// NodeType distinguishes files from directories in query results.
type NodeType string

const (
	TypeFile      NodeType = "file"
	TypeDirectory NodeType = "directory"
)

// Totals accumulates line counters over file leaves.
type Totals struct {
	Covered int
	Total   int
}

// Percent returns the covered ratio as a percentage. A zero total means
// there is nothing instrumentable, which counts as fully covered.
func (t Totals) Percent() float64 {
	if t.Total == 0 {
		return 100.0
	}
	return float64(t.Covered) / float64(t.Total) * 100.0
}

// ChildSummary describes one direct child of a directory result, with
// the coverage percent of its whole subtree.
type ChildSummary struct {
	Name            string   `json:"name"`
	Type            NodeType `json:"type"`
	CoveragePercent float64  `json:"coveragePercent"`
}

// PathSummary is the aggregation result for one path in a report.
// Children is non-nil for directories, so an empty directory still
// serializes as "children": []. Files leave it nil and the key is
// omitted.
type PathSummary struct {
	Type            NodeType       `json:"type"`
	Path            string         `json:"path"`
	CoveragePercent float64        `json:"coveragePercent"`
	Children        []ChildSummary `json:"children,omitzero"`
	Coverage        []int          `json:"coverage,omitzero"`
}

// Decode parses covdir JSON into a tree. The root must be an object.
func Decode(data []byte) (*Node, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("covdir root must be a JSON object")
	}

	root := &Node{}
	if err := json.Unmarshal(data, root); err != nil {
		return nil, fmt.Errorf("failed to decode covdir report: %w", err)
	}
	return root, nil
}

// Encode serializes a tree back to covdir JSON.
func Encode(root *Node) ([]byte, error) {
	if root == nil {
		return nil, fmt.Errorf("covdir tree is nil")
	}
	return json.Marshal(root)
}

// Lookup walks the tree along a /-separated path and returns the node
// it names. An empty path returns the root.
func Lookup(root *Node, path string) (*Node, error) {
	if root == nil {
		return nil, fmt.Errorf("covdir tree is nil")
	}

	node := root
	for _, segment := range splitPath(path) {
		if !node.IsDir() {
			return nil, errdefs.PathNotFoundf("path %q not found in report", path)
		}
		child, ok := node.Children[segment]
		if !ok || child == nil {
			return nil, errdefs.PathNotFoundf("path %q not found in report", path)
		}
		node = child
	}
	return node, nil
}

// Summarize computes weighted line totals over every file in the
// subtree rooted at node.
func Summarize(node *Node) (Totals, error) {
	return summarize(node, 0)
}

func summarize(node *Node, depth int) (Totals, error) {
	if depth > maxTreeDepth {
		return Totals{}, fmt.Errorf("coverage tree exceeds maximum depth %d", maxTreeDepth)
	}
	if node == nil {
		return Totals{}, nil
	}
	if !node.IsDir() {
		return Totals{Covered: node.LinesCovered, Total: node.LinesTotal}, nil
	}

	var totals Totals
	for _, child := range node.Children {
		childTotals, err := summarize(child, depth+1)
		if err != nil {
			return Totals{}, err
		}
		totals.Covered += childTotals.Covered
		totals.Total += childTotals.Total
	}
	return totals, nil
}

// PercentForPath aggregates coverage at path. Files report their own
// percent and per-line data; directories report the line-weighted
// percent of their subtree plus one weighted entry per direct child,
// sorted by name.
func PercentForPath(root *Node, path string) (PathSummary, error) {
	node, err := Lookup(root, path)
	if err != nil {
		return PathSummary{}, err
	}

	if !node.IsDir() {
		totals := Totals{Covered: node.LinesCovered, Total: node.LinesTotal}
		return PathSummary{
			Type:            TypeFile,
			Path:            path,
			CoveragePercent: totals.Percent(),
			Coverage:        node.Coverage,
		}, nil
	}

	totals, err := Summarize(node)
	if err != nil {
		return PathSummary{}, err
	}

	names := make([]string, 0, len(node.Children))
	for name := range node.Children {
		names = append(names, name)
	}
	sort.Strings(names)

	children := make([]ChildSummary, 0, len(names))
	for _, name := range names {
		child := node.Children[name]
		childTotals, err := Summarize(child)
		if err != nil {
			return PathSummary{}, err
		}
		childType := TypeFile
		if child.IsDir() {
			childType = TypeDirectory
		}
		children = append(children, ChildSummary{
			Name:            name,
			Type:            childType,
			CoveragePercent: childTotals.Percent(),
		})
	}

	return PathSummary{
		Type:            TypeDirectory,
		Path:            path,
		CoveragePercent: totals.Percent(),
		Children:        children,
	}, nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}

	parts := strings.Split(trimmed, "/")
	segments := parts[:0]
	for _, part := range parts {
		if part == "" {
			continue
		}
		segments = append(segments, part)
	}
	return segments
}
