// Package index maintains the per-repository revision index: every
// changeset with its push ordering and the filters it was ingested
// with, in memory, refreshed from the report store.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/covspect/covspect/internal/errdefs"
	"github.com/covspect/covspect/internal/store"
)

// Revision is one indexed changeset.
type Revision = store.RevisionReports

// Index answers revision resolution and filter catalog queries over
// immutable per-repository snapshots. Readers never block a refresh;
// a refresh swaps the whole snapshot at once.
type Index struct {
	store store.Store

	// onRefresh, when set, runs after every successful refresh with the
	// number of changesets not seen before. The service uses it to count
	// refreshes and invalidate cached results when new revisions land.
	onRefresh func(repository string, added int)

	mu    sync.RWMutex
	repos map[string]*snapshot

	group singleflight.Group
}

type snapshot struct {
	revisions []Revision     // push id ascending
	positions map[string]int // changeset -> index into revisions
	platforms []string
	suites    []string
	refreshed time.Time
}

// New creates an index over st. onRefresh may be nil.
func New(st store.Store, onRefresh func(repository string, added int)) *Index {
	return &Index{
		store:     st,
		onRefresh: onRefresh,
		repos:     map[string]*snapshot{},
	}
}

// Refresh re-lists the repository from the store and swaps in a fresh
// snapshot. Concurrent refreshes of one repository share a single
// listing.
func (ix *Index) Refresh(ctx context.Context, repository string) error {
	_, err, _ := ix.group.Do(repository, func() (any, error) {
		return nil, ix.refresh(ctx, repository)
	})
	return err
}

func (ix *Index) refresh(ctx context.Context, repository string) error {
	revisions, err := ix.store.ListReports(ctx, repository)
	if err != nil {
		return fmt.Errorf("failed to refresh index for %s: %w", repository, err)
	}

	snap := buildSnapshot(revisions)

	ix.mu.Lock()
	previous := ix.repos[repository]
	ix.repos[repository] = snap
	ix.mu.Unlock()

	added := snap.countNew(previous)
	slog.Debug("index refreshed",
		"repository", repository, "revisions", len(snap.revisions), "new", added)

	if ix.onRefresh != nil {
		ix.onRefresh(repository, added)
	}
	return nil
}

// RefreshAll refreshes every known repository.
func (ix *Index) RefreshAll(ctx context.Context) {
	for _, repository := range ix.Repositories() {
		if err := ix.Refresh(ctx, repository); err != nil {
			slog.Warn("index refresh failed", "repository", repository, "error", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// Run refreshes known repositories on the interval until the context
// is canceled.
func (ix *Index) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ix.RefreshAll(ctx)
		}
	}
}

// Repositories returns every repository the index has seen, sorted.
func (ix *Index) Repositories() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]string, 0, len(ix.repos))
	for repository := range ix.repos {
		out = append(out, repository)
	}
	sort.Strings(out)
	return out
}

func (ix *Index) snapshotFor(repository string) (*snapshot, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	snap, ok := ix.repos[repository]
	return snap, ok
}

// ensure returns the repository snapshot, refreshing once if the
// repository has never been listed.
func (ix *Index) ensure(ctx context.Context, repository string) (*snapshot, error) {
	if snap, ok := ix.snapshotFor(repository); ok {
		return snap, nil
	}
	if err := ix.Refresh(ctx, repository); err != nil {
		return nil, err
	}
	snap, ok := ix.snapshotFor(repository)
	if !ok {
		return nil, errdefs.NotFoundf("no reports indexed for repository %s", repository)
	}
	return snap, nil
}

// ResolveClosest returns the report for changeset under the given
// filter, or the nearest strictly-earlier push that has it. It never
// resolves forward; a changeset with nothing at or before it fails
// with a not-found error.
func (ix *Index) ResolveClosest(ctx context.Context, repository, changeset, platform, suite string) (store.ReportID, error) {
	snap, err := ix.ensure(ctx, repository)
	if err != nil {
		return store.ReportID{}, err
	}

	pos, ok := snap.positions[changeset]
	if !ok {
		return store.ReportID{}, errdefs.NotFoundf("changeset %s not indexed for repository %s", changeset, repository)
	}

	for i := pos; i >= 0; i-- {
		revision := snap.revisions[i]
		if revision.HasFilter(platform, suite) {
			return store.ReportID{
				Repository: repository,
				Changeset:  revision.Changeset,
				Platform:   platform,
				Suite:      suite,
			}, nil
		}
	}
	return store.ReportID{}, errdefs.NotFoundf(
		"no report at or before %s for %s/%s in repository %s", changeset, platform, suite, repository)
}

// ResolveLatest returns the most recent report under the given filter.
func (ix *Index) ResolveLatest(ctx context.Context, repository, platform, suite string) (store.ReportID, error) {
	snap, err := ix.ensure(ctx, repository)
	if err != nil {
		return store.ReportID{}, err
	}

	for i := len(snap.revisions) - 1; i >= 0; i-- {
		revision := snap.revisions[i]
		if revision.HasFilter(platform, suite) {
			return store.ReportID{
				Repository: repository,
				Changeset:  revision.Changeset,
				Platform:   platform,
				Suite:      suite,
			}, nil
		}
	}
	return store.ReportID{}, errdefs.NotFoundf(
		"no report for %s/%s in repository %s", platform, suite, repository)
}

// ListLatest returns up to n revisions that have at least one report,
// most recent first.
func (ix *Index) ListLatest(ctx context.Context, repository string, n int) ([]Revision, error) {
	snap, err := ix.ensure(ctx, repository)
	if err != nil {
		return nil, err
	}

	if n <= 0 {
		n = len(snap.revisions)
	}
	out := make([]Revision, 0, n)
	for i := len(snap.revisions) - 1; i >= 0 && len(out) < n; i-- {
		if len(snap.revisions[i].Filters) == 0 {
			continue
		}
		out = append(out, snap.revisions[i])
	}
	return out, nil
}

// Between returns revisions with push timestamps in [start, end] in
// push order. A zero bound leaves that side open.
func (ix *Index) Between(ctx context.Context, repository string, start, end time.Time) ([]Revision, error) {
	snap, err := ix.ensure(ctx, repository)
	if err != nil {
		return nil, err
	}

	var out []Revision
	for _, revision := range snap.revisions {
		if !start.IsZero() && revision.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && revision.Timestamp.After(end) {
			continue
		}
		out = append(out, revision)
	}
	return out, nil
}

// Platforms returns the platform catalog for the repository, sorted,
// excluding the "all" aggregate.
func (ix *Index) Platforms(ctx context.Context, repository string) ([]string, error) {
	snap, err := ix.ensure(ctx, repository)
	if err != nil {
		return nil, err
	}
	return slices.Clone(snap.platforms), nil
}

// Suites returns the suite catalog for the repository, sorted,
// excluding the "all" aggregate.
func (ix *Index) Suites(ctx context.Context, repository string) ([]string, error) {
	snap, err := ix.ensure(ctx, repository)
	if err != nil {
		return nil, err
	}
	return slices.Clone(snap.suites), nil
}

func buildSnapshot(revisions []Revision) *snapshot {
	snap := &snapshot{
		revisions: revisions,
		positions: make(map[string]int, len(revisions)),
		refreshed: time.Now(),
	}

	platforms := map[string]struct{}{}
	suites := map[string]struct{}{}
	for i, revision := range revisions {
		snap.positions[revision.Changeset] = i
		for _, filter := range revision.Filters {
			if filter.Platform != store.DefaultFilter {
				platforms[filter.Platform] = struct{}{}
			}
			if filter.Suite != store.DefaultFilter {
				suites[filter.Suite] = struct{}{}
			}
		}
	}

	snap.platforms = sortedKeys(platforms)
	snap.suites = sortedKeys(suites)
	return snap
}

func (s *snapshot) countNew(previous *snapshot) int {
	if previous == nil {
		return len(s.revisions)
	}

	added := 0
	for changeset := range s.positions {
		if _, ok := previous.positions[changeset]; !ok {
			added++
		}
	}
	return added
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
