package covdir

import (
	"strings"

	"golang.org/x/tools/cover"
)

// FromProfiles builds a covdir tree from Go cover profiles. File names
// are made repository-relative by stripping prefix, and files for which
// exclude returns true are dropped. Directory counters are rolled up
// from the leaves so the result is a complete report.
func FromProfiles(profiles []*cover.Profile, prefix string, exclude func(string) bool) *Node {
	root := &Node{Children: map[string]*Node{}}

	for _, profile := range profiles {
		relPath := profile.FileName
		if prefix != "" {
			relPath = strings.TrimPrefix(relPath, strings.TrimSuffix(prefix, "/")+"/")
		}
		if exclude != nil && exclude(relPath) {
			continue
		}

		segments := splitPath(relPath)
		if len(segments) == 0 {
			continue
		}

		leaf := fileNode(segments[len(segments)-1], profile.Blocks)
		insert(root, segments, leaf)
	}

	rollup(root)
	return root
}

func fileNode(name string, blocks []cover.ProfileBlock) *Node {
	maxLine := 0
	for _, b := range blocks {
		if b.NumStmt == 0 {
			continue
		}
		if b.EndLine > maxLine {
			maxLine = b.EndLine
		}
	}

	coverage := make([]int, maxLine)
	for i := range coverage {
		coverage[i] = -1
	}

	for _, b := range blocks {
		if b.NumStmt == 0 {
			continue
		}
		for line := b.StartLine; line <= b.EndLine && line <= maxLine; line++ {
			idx := line - 1
			if idx < 0 {
				continue
			}
			if b.Count > coverage[idx] {
				coverage[idx] = b.Count
			}
		}
	}

	covered, total := 0, 0
	for _, c := range coverage {
		if c < 0 {
			continue
		}
		total++
		if c > 0 {
			covered++
		}
	}

	return &Node{
		Name:            name,
		Coverage:        coverage,
		LinesCovered:    covered,
		LinesMissed:     total - covered,
		LinesTotal:      total,
		CoveragePercent: Totals{Covered: covered, Total: total}.Percent(),
	}
}

func insert(root *Node, segments []string, leaf *Node) {
	node := root
	for _, segment := range segments[:len(segments)-1] {
		child, ok := node.Children[segment]
		if !ok || !child.IsDir() {
			child = &Node{Name: segment, Children: map[string]*Node{}}
			node.Children[segment] = child
		}
		node = child
	}
	node.Children[segments[len(segments)-1]] = leaf
}

func rollup(node *Node) Totals {
	if !node.IsDir() {
		return Totals{Covered: node.LinesCovered, Total: node.LinesTotal}
	}

	var totals Totals
	for _, child := range node.Children {
		childTotals := rollup(child)
		totals.Covered += childTotals.Covered
		totals.Total += childTotals.Total
	}

	node.LinesCovered = totals.Covered
	node.LinesTotal = totals.Total
	node.LinesMissed = totals.Total - totals.Covered
	node.CoveragePercent = totals.Percent()
	return totals
}
