package index

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/covspect/covspect/internal/errdefs"
	"github.com/covspect/covspect/internal/store"
)

type fakeStore struct {
	mu        sync.Mutex
	revisions map[string][]store.RevisionReports
	listCalls int
	listErr   error
	entered   chan struct{}
	gate      chan struct{}
}

func (f *fakeStore) ListReports(_ context.Context, repository string) ([]store.RevisionReports, error) {
	f.mu.Lock()
	f.listCalls++
	err := f.listErr
	revisions := append([]store.RevisionReports(nil), f.revisions[repository]...)
	entered, gate := f.entered, f.gate
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return revisions, nil
}

func (f *fakeStore) FetchReport(_ context.Context, id store.ReportID) ([]byte, error) {
	return nil, errdefs.NotFoundf("report %s not found", id)
}

func (f *fakeStore) FetchZeroCoverage(_ context.Context, repository string) ([]byte, error) {
	return nil, errdefs.NotFoundf("no zero coverage report for %s", repository)
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeStore) add(repository string, revision store.RevisionReports) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revisions[repository] = append(f.revisions[repository], revision)
}

var (
	allAll   = store.Filter{Platform: "all", Suite: "all"}
	linuxAll = store.Filter{Platform: "linux", Suite: "all"}
	winAll   = store.Filter{Platform: "windows", Suite: "all"}
)

func rev(changeset string, pushID int64, filters ...store.Filter) store.RevisionReports {
	return store.RevisionReports{
		Changeset: changeset,
		PushID:    pushID,
		Timestamp: time.Unix(1700000000+pushID*3600, 0).UTC(),
		Filters:   filters,
	}
}

func centralStore(revisions ...store.RevisionReports) *fakeStore {
	return &fakeStore{revisions: map[string][]store.RevisionReports{
		"mozilla-central": revisions,
	}}
}

func TestResolveClosestExactMatch(t *testing.T) {
	ix := New(centralStore(
		rev("rev1", 1, allAll, linuxAll),
		rev("rev2", 2, allAll, linuxAll),
	), nil)

	id, err := ix.ResolveClosest(context.Background(), "mozilla-central", "rev2", "linux", "all")
	if err != nil {
		t.Fatalf("ResolveClosest failed: %v", err)
	}
	if id.Changeset != "rev2" || id.Platform != "linux" || id.Suite != "all" {
		t.Fatalf("unexpected report id: %+v", id)
	}
}

func TestResolveClosestSkipsReportlessPush(t *testing.T) {
	ix := New(centralStore(
		rev("rev1", 1, allAll, linuxAll),
		rev("rev2", 2),
		rev("rev3", 3, allAll, linuxAll),
	), nil)

	id, err := ix.ResolveClosest(context.Background(), "mozilla-central", "rev2", "linux", "all")
	if err != nil {
		t.Fatalf("ResolveClosest failed: %v", err)
	}
	if id.Changeset != "rev1" {
		t.Fatalf("expected the nearest earlier push, got %+v", id)
	}
}

func TestResolveClosestNeverLooksForward(t *testing.T) {
	// windows coverage only exists at push 3; a query at push 2 must
	// not resolve to it.
	ix := New(centralStore(
		rev("rev1", 1, allAll),
		rev("rev2", 2),
		rev("rev3", 3, allAll, winAll),
	), nil)

	_, err := ix.ResolveClosest(context.Background(), "mozilla-central", "rev2", "windows", "all")
	if err == nil {
		t.Fatal("expected not-found, got a report")
	}
	if !errdefs.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestResolveClosestUnknownChangeset(t *testing.T) {
	ix := New(centralStore(rev("rev1", 1, allAll)), nil)

	_, err := ix.ResolveClosest(context.Background(), "mozilla-central", "deadbeef", "all", "all")
	if !errdefs.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestResolveLatestPicksNewestWithFilter(t *testing.T) {
	ix := New(centralStore(
		rev("rev1", 1, allAll, linuxAll),
		rev("rev2", 2, allAll),
	), nil)

	id, err := ix.ResolveLatest(context.Background(), "mozilla-central", "all", "all")
	if err != nil {
		t.Fatalf("ResolveLatest failed: %v", err)
	}
	if id.Changeset != "rev2" {
		t.Fatalf("expected rev2, got %+v", id)
	}

	// linux coverage stops at rev1, so latest for linux is older.
	id, err = ix.ResolveLatest(context.Background(), "mozilla-central", "linux", "all")
	if err != nil {
		t.Fatalf("ResolveLatest failed: %v", err)
	}
	if id.Changeset != "rev1" {
		t.Fatalf("expected rev1 for linux, got %+v", id)
	}
}

func TestResolveLatestEmptyRepository(t *testing.T) {
	ix := New(&fakeStore{revisions: map[string][]store.RevisionReports{}}, nil)

	_, err := ix.ResolveLatest(context.Background(), "mozilla-central", "all", "all")
	if !errdefs.IsNotFound(err) {
		t.Fatalf("expected not-found for empty repository, got %v", err)
	}
}

func TestListLatestOrderLimitAndSkips(t *testing.T) {
	ix := New(centralStore(
		rev("rev1", 1, allAll),
		rev("rev2", 2, allAll),
		rev("rev3", 3, allAll),
		rev("rev4", 4),
		rev("rev5", 5, allAll),
	), nil)

	latest, err := ix.ListLatest(context.Background(), "mozilla-central", 3)
	if err != nil {
		t.Fatalf("ListLatest failed: %v", err)
	}
	if len(latest) != 3 {
		t.Fatalf("expected 3 revisions, got %d", len(latest))
	}
	want := []string{"rev5", "rev3", "rev2"}
	for i, revision := range latest {
		if revision.Changeset != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], revision.Changeset)
		}
	}
}

func TestBetweenBounds(t *testing.T) {
	ix := New(centralStore(
		rev("rev1", 1, allAll),
		rev("rev2", 2, allAll),
		rev("rev3", 3, allAll),
	), nil)

	start := time.Unix(1700000000+90*60, 0)
	end := time.Unix(1700000000+150*60, 0)
	revisions, err := ix.Between(context.Background(), "mozilla-central", start, end)
	if err != nil {
		t.Fatalf("Between failed: %v", err)
	}
	if len(revisions) != 1 || revisions[0].Changeset != "rev2" {
		t.Fatalf("expected only rev2 in window, got %v", revisions)
	}

	all, err := ix.Between(context.Background(), "mozilla-central", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Between failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected open bounds to return everything, got %d", len(all))
	}
}

func TestFilterCatalogExcludesAggregate(t *testing.T) {
	ix := New(centralStore(
		rev("rev1", 1, allAll, winAll, store.Filter{Platform: "all", Suite: "web-platform-tests"}),
		rev("rev2", 2, allAll, linuxAll, store.Filter{Platform: "linux", Suite: "cppunit"}),
	), nil)

	platforms, err := ix.Platforms(context.Background(), "mozilla-central")
	if err != nil {
		t.Fatalf("Platforms failed: %v", err)
	}
	if len(platforms) != 2 || platforms[0] != "linux" || platforms[1] != "windows" {
		t.Fatalf("unexpected platforms: %v", platforms)
	}

	suites, err := ix.Suites(context.Background(), "mozilla-central")
	if err != nil {
		t.Fatalf("Suites failed: %v", err)
	}
	if len(suites) != 2 || suites[0] != "cppunit" || suites[1] != "web-platform-tests" {
		t.Fatalf("unexpected suites: %v", suites)
	}
}

func TestQueriesReuseSnapshot(t *testing.T) {
	fake := centralStore(rev("rev1", 1, allAll))
	ix := New(fake, nil)

	for i := 0; i < 5; i++ {
		if _, err := ix.ResolveLatest(context.Background(), "mozilla-central", "all", "all"); err != nil {
			t.Fatalf("ResolveLatest failed: %v", err)
		}
	}

	if fake.calls() != 1 {
		t.Fatalf("expected a single store listing, got %d", fake.calls())
	}
}

func TestConcurrentRefreshShared(t *testing.T) {
	fake := centralStore(rev("rev1", 1, allAll))
	fake.entered = make(chan struct{}, 16)
	fake.gate = make(chan struct{})
	ix := New(fake, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = ix.Refresh(context.Background(), "mozilla-central")
		}()
	}

	// Wait for the first refresh to be inside the store call, give the
	// rest a moment to pile onto it, then release.
	<-fake.entered
	time.Sleep(20 * time.Millisecond)
	close(fake.gate)
	wg.Wait()

	if fake.calls() != 1 {
		t.Fatalf("expected concurrent refreshes to share one listing, got %d", fake.calls())
	}
}

func TestRefreshReportsNewRevisions(t *testing.T) {
	fake := centralStore(rev("rev1", 1, allAll), rev("rev2", 2, allAll))

	var added []int
	ix := New(fake, func(repository string, n int) {
		if repository != "mozilla-central" {
			t.Errorf("unexpected repository %q", repository)
		}
		added = append(added, n)
	})

	if err := ix.Refresh(context.Background(), "mozilla-central"); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(added) != 1 || added[0] != 2 {
		t.Fatalf("expected first refresh to report 2 new revisions, got %v", added)
	}

	// Same listing again: idempotent, the callback sees zero new.
	if err := ix.Refresh(context.Background(), "mozilla-central"); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(added) != 2 || added[1] != 0 {
		t.Fatalf("expected an unchanged listing to report 0 new revisions, got %v", added)
	}

	fake.add("mozilla-central", rev("rev3", 3, allAll))
	if err := ix.Refresh(context.Background(), "mozilla-central"); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(added) != 3 || added[2] != 1 {
		t.Fatalf("expected the new revision to be reported, got %v", added)
	}
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	fake := centralStore(rev("rev1", 1, allAll))
	ix := New(fake, nil)

	if err := ix.Refresh(context.Background(), "mozilla-central"); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	fake.mu.Lock()
	fake.listErr = errdefs.StoreUnavailablef("bucket down")
	fake.mu.Unlock()

	if err := ix.Refresh(context.Background(), "mozilla-central"); err == nil {
		t.Fatal("expected refresh to fail")
	}

	// Old snapshot still answers queries.
	id, err := ix.ResolveLatest(context.Background(), "mozilla-central", "all", "all")
	if err != nil {
		t.Fatalf("expected stale snapshot to keep serving, got %v", err)
	}
	if id.Changeset != "rev1" {
		t.Fatalf("unexpected report id: %+v", id)
	}
}
