// Package store reads coverage report blobs from their backing
// storage: a Google Cloud Storage bucket in production, a local
// directory for development and tests.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultFilter is the synthetic platform/suite value for the
// pre-merged cross-configuration report every complete ingestion has.
const DefaultFilter = "all"

// ZeroCoverageObject is the per-repository blob listing files that no
// test ever touches.
const ZeroCoverageObject = "zero_coverage_report.json"

// pushSidecar marks one changeset per directory and carries its push
// ordering. It exists even for pushes that never got a report, so the
// index can order every revision without consulting version control.
const pushSidecar = "push.json"

const reportSuffix = ".json.zstd"

// ReportID identifies one stored coverage report.
type ReportID struct {
	Repository string
	Changeset  string
	Platform   string
	Suite      string
}

// Key returns the blob path of the report relative to the store root.
func (id ReportID) Key() string {
	return fmt.Sprintf("%s/%s/%s:%s%s", id.Repository, id.Changeset, id.Platform, id.Suite, reportSuffix)
}

func (id ReportID) String() string {
	return id.Key()
}

// Filter is one (platform, suite) combination a revision was ingested
// with.
type Filter struct {
	Platform string
	Suite    string
}

// RevisionReports describes the reports available for one changeset.
type RevisionReports struct {
	Changeset string
	PushID    int64
	Timestamp time.Time
	Filters   []Filter
}

// HasFilter reports whether the revision was ingested with the given
// platform/suite combination.
func (r RevisionReports) HasFilter(platform, suite string) bool {
	for _, f := range r.Filters {
		if f.Platform == platform && f.Suite == suite {
			return true
		}
	}
	return false
}

// Store lists and fetches coverage reports for repositories.
type Store interface {
	// ListReports returns every revision with reports for the
	// repository, ordered by push id ascending. A repository with no
	// reports yields an empty list, not an error.
	ListReports(ctx context.Context, repository string) ([]RevisionReports, error)

	// FetchReport returns the decompressed covdir JSON for id.
	FetchReport(ctx context.Context, id ReportID) ([]byte, error)

	// FetchZeroCoverage returns the repository's zero coverage report.
	FetchZeroCoverage(ctx context.Context, repository string) ([]byte, error)

	// Close releases any resources held by the store.
	Close() error
}

// Options tunes store behavior.
type Options struct {
	// Timeout bounds every individual storage call.
	Timeout time.Duration
	// RateLimit caps upstream calls per second. Ignored by the local
	// backend.
	RateLimit int
}

// Open builds a store for a gs://bucket[/prefix] URL, a file:// URL or
// a plain directory path.
func Open(ctx context.Context, rawURL string, opts Options) (Store, error) {
	trimmed := strings.TrimSpace(rawURL)
	switch {
	case trimmed == "":
		return nil, fmt.Errorf("store URL is empty")
	case strings.HasPrefix(trimmed, "gs://"):
		return OpenGCS(ctx, trimmed, opts)
	case strings.HasPrefix(trimmed, "file://"):
		return OpenLocal(strings.TrimPrefix(trimmed, "file://"), opts)
	default:
		return OpenLocal(trimmed, opts)
	}
}

// parseReportName extracts platform and suite from a report file name
// like "linux:web-platform-tests.json.zstd".
func parseReportName(name string) (Filter, bool) {
	base, ok := strings.CutSuffix(name, reportSuffix)
	if !ok {
		return Filter{}, false
	}
	platform, suite, ok := strings.Cut(base, ":")
	if !ok || platform == "" || suite == "" {
		return Filter{}, false
	}
	return Filter{Platform: platform, Suite: suite}, true
}

func sortRevisions(revisions []RevisionReports) {
	sort.Slice(revisions, func(i, j int) bool {
		a, b := revisions[i], revisions[j]
		if a.PushID != b.PushID {
			return a.PushID < b.PushID
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.Changeset < b.Changeset
	})
}

func sortFilters(filters []Filter) {
	sort.Slice(filters, func(i, j int) bool {
		a, b := filters[i], filters[j]
		if a.Platform != b.Platform {
			return a.Platform < b.Platform
		}
		return a.Suite < b.Suite
	})
}
