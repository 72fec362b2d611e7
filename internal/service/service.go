// Package service orchestrates revision resolution, report fetching
// and tree aggregation behind a shared cache. The HTTP handlers and
// the CLI commands both sit on top of it.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/covspect/covspect/internal/cache"
	"github.com/covspect/covspect/internal/covdir"
	"github.com/covspect/covspect/internal/errdefs"
	"github.com/covspect/covspect/internal/index"
	"github.com/covspect/covspect/internal/metrics"
	"github.com/covspect/covspect/internal/store"
	"github.com/covspect/covspect/pkg/config"
)

// defaultLatestCount is how many reports a latest listing returns when
// the caller does not say.
const defaultLatestCount = 10

// ReportSummary is one row of a latest-reports listing.
type ReportSummary struct {
	Revision  string    `json:"revision"`
	Push      int64     `json:"push"`
	Timestamp time.Time `json:"-"`
}

// PathQuery names one coverage lookup. Empty fields pick the defaults:
// the configured repository, the latest revision, the tree root and the
// "all" aggregate filter.
type PathQuery struct {
	Repository string
	Changeset  string
	Path       string
	Platform   string
	Suite      string
}

// PathCoverage is an aggregation result plus the changeset whose report
// produced it, which may be older than the requested one.
type PathCoverage struct {
	covdir.PathSummary
	Changeset string `json:"changeset"`
}

// HistoryQuery bounds a coverage time series. Zero Start or End leave
// that side of the window open.
type HistoryQuery struct {
	Repository string
	Path       string
	Start      time.Time
	End        time.Time
	Platform   string
	Suite      string
}

// HistoryPoint is one sample of a coverage time series.
type HistoryPoint struct {
	Changeset string  `json:"changeset"`
	Date      int64   `json:"date"`
	Coverage  float64 `json:"coverage"`
}

// FilterSet lists the platforms and suites a repository has reports
// for, excluding the synthetic "all" aggregate.
type FilterSet struct {
	Platforms []string `json:"platforms"`
	Suites    []string `json:"suites"`
}

// Service answers coverage queries. All results are served from an
// in-process cache when possible and must be treated as read-only by
// callers. Safe for concurrent use.
type Service struct {
	config  *config.Config
	store   store.Store
	index   *index.Index
	cache   *cache.Cache
	metrics *metrics.Metrics

	fetches singleflight.Group
}

// New creates a service over st. The revision index starts empty and
// fills on first use or via Warmup and Run.
func New(cfg *config.Config, st store.Store, m *metrics.Metrics) *Service {
	s := &Service{
		config:  cfg,
		store:   st,
		cache:   cache.New(cfg.CacheTTL, cfg.CacheMaxSize),
		metrics: m,
	}
	s.index = index.New(st, s.handleRefresh)
	return s
}

// handleRefresh runs after every successful index refresh. New
// revisions invalidate every cached result for the repository so a
// fresh ingestion is visible before cache TTLs expire.
func (s *Service) handleRefresh(repository string, added int) {
	s.metrics.IndexRefreshes.Inc()
	if added == 0 {
		return
	}
	invalidated := s.cache.DeletePrefix(repository + "|")
	slog.Debug("invalidated cached results after refresh",
		"repository", repository, "new_revisions", added, "entries", invalidated)
}

// Warmup primes the revision index for the default repository so the
// first request does not pay cold-start latency. Best effort: failures
// are logged, never fatal.
func (s *Service) Warmup(ctx context.Context) {
	repository := s.config.DefaultRepository
	if repository == "" {
		return
	}
	if err := s.index.Refresh(ctx, repository); err != nil {
		slog.Warn("index warmup failed", "repository", repository, "error", err)
		return
	}
	slog.Debug("index warmed", "repository", repository)
}

// Run refreshes the revision index on the configured interval until ctx
// is done.
func (s *Service) Run(ctx context.Context) {
	s.index.Run(ctx, s.config.IndexRefreshInterval)
}

// Ready reports whether the default repository has an index snapshot.
// Without a configured default repository there is nothing to wait for.
func (s *Service) Ready() bool {
	if s.config.DefaultRepository == "" {
		return true
	}
	return slices.Contains(s.index.Repositories(), s.config.DefaultRepository)
}

// Close releases the underlying store client.
func (s *Service) Close() error {
	return s.store.Close()
}

// LatestReports lists the most recent revisions with reports, newest
// first. n <= 0 selects the default count.
func (s *Service) LatestReports(ctx context.Context, repository string, n int) ([]ReportSummary, error) {
	repository, err := s.repository(repository)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = defaultLatestCount
	}

	key := repository + "|latest|" + strconv.Itoa(n)
	if v, ok := s.cacheGet(key, "latest"); ok {
		return v.([]ReportSummary), nil
	}

	revisions, err := s.index.ListLatest(ctx, repository, n)
	if err != nil {
		return nil, err
	}

	out := make([]ReportSummary, 0, len(revisions))
	for _, rev := range revisions {
		out = append(out, ReportSummary{
			Revision:  rev.Changeset,
			Push:      rev.PushID,
			Timestamp: rev.Timestamp,
		})
	}
	s.cache.Set(key, out)
	return out, nil
}

// CoverageForPath aggregates coverage at one path of one report. An
// empty changeset resolves to the latest report; a known changeset
// without a report for the filter resolves backward to the nearest
// older one.
func (s *Service) CoverageForPath(ctx context.Context, q PathQuery) (PathCoverage, error) {
	repository, err := s.repository(q.Repository)
	if err != nil {
		return PathCoverage{}, err
	}
	platform, suite := normalizeFilter(q.Platform, q.Suite)
	path := canonicalPath(q.Path)

	key := strings.Join([]string{repository, "path", q.Changeset, platform + ":" + suite, path}, "|")
	if v, ok := s.cacheGet(key, "path"); ok {
		return v.(PathCoverage), nil
	}

	if err := s.validateFilter(ctx, repository, platform, suite); err != nil {
		return PathCoverage{}, err
	}

	var id store.ReportID
	if q.Changeset == "" {
		id, err = s.index.ResolveLatest(ctx, repository, platform, suite)
	} else {
		id, err = s.index.ResolveClosest(ctx, repository, q.Changeset, platform, suite)
	}
	if err != nil {
		return PathCoverage{}, err
	}

	root, err := s.reportTree(ctx, id)
	if err != nil {
		return PathCoverage{}, err
	}

	summary, err := covdir.PercentForPath(root, path)
	if err != nil {
		return PathCoverage{}, err
	}

	result := PathCoverage{PathSummary: summary, Changeset: id.Changeset}
	s.cache.Set(key, result)
	return result, nil
}

// Filters returns the platform and suite catalog for a repository.
func (s *Service) Filters(ctx context.Context, repository string) (FilterSet, error) {
	repository, err := s.repository(repository)
	if err != nil {
		return FilterSet{}, err
	}

	key := repository + "|filters"
	if v, ok := s.cacheGet(key, "filters"); ok {
		return v.(FilterSet), nil
	}

	platforms, err := s.index.Platforms(ctx, repository)
	if err != nil {
		return FilterSet{}, err
	}
	suites, err := s.index.Suites(ctx, repository)
	if err != nil {
		return FilterSet{}, err
	}

	catalog := FilterSet{Platforms: platforms, Suites: suites}
	s.cache.Set(key, catalog)
	return catalog, nil
}

// ZeroCoverage returns the repository's zero coverage report verbatim.
// The report is produced by the ingestion pipeline and served as-is.
func (s *Service) ZeroCoverage(ctx context.Context, repository string) (json.RawMessage, error) {
	repository, err := s.repository(repository)
	if err != nil {
		return nil, err
	}

	key := repository + "|zero_coverage"
	if v, ok := s.cacheGet(key, "zero_coverage"); ok {
		return v.(json.RawMessage), nil
	}

	v, err, _ := s.fetches.Do(key, func() (any, error) {
		if v, ok := s.cache.Get(key); ok {
			return v, nil
		}
		s.metrics.StoreFetches.Inc()
		raw, err := s.store.FetchZeroCoverage(ctx, repository)
		if err != nil {
			return nil, err
		}
		payload := json.RawMessage(raw)
		s.cache.Set(key, payload)
		return payload, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}

// SupportedExtensions lists the file extensions the ingestion pipeline
// covers.
func (s *Service) SupportedExtensions() []string {
	return covdir.SupportedExtensions()
}

// reportTree returns the decoded tree for one report, fetching and
// decompressing it at most once no matter how many callers want it at
// the same time.
func (s *Service) reportTree(ctx context.Context, id store.ReportID) (*covdir.Node, error) {
	key := strings.Join([]string{id.Repository, "report", id.Changeset, id.Platform + ":" + id.Suite}, "|")
	if v, ok := s.cacheGet(key, "report"); ok {
		return v.(*covdir.Node), nil
	}

	v, err, _ := s.fetches.Do(key, func() (any, error) {
		if v, ok := s.cache.Get(key); ok {
			return v, nil
		}
		s.metrics.StoreFetches.Inc()
		raw, err := s.store.FetchReport(ctx, id)
		if err != nil {
			return nil, err
		}
		root, err := covdir.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode report %s: %w", id, err)
		}
		s.cache.Set(key, root)
		return root, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*covdir.Node), nil
}

// repository applies the configured default when the caller did not
// name a repository.
func (s *Service) repository(requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	if s.config.DefaultRepository != "" {
		return s.config.DefaultRepository, nil
	}
	return "", errdefs.InvalidFilterf("repository is required")
}

// validateFilter rejects platforms and suites the repository has never
// been ingested with. The "all" sentinel is always valid.
func (s *Service) validateFilter(ctx context.Context, repository, platform, suite string) error {
	if platform == store.DefaultFilter && suite == store.DefaultFilter {
		return nil
	}

	catalog, err := s.Filters(ctx, repository)
	if err != nil {
		return err
	}
	if platform != store.DefaultFilter && !slices.Contains(catalog.Platforms, platform) {
		return errdefs.InvalidFilterf("unknown platform %q for repository %s", platform, repository)
	}
	if suite != store.DefaultFilter && !slices.Contains(catalog.Suites, suite) {
		return errdefs.InvalidFilterf("unknown suite %q for repository %s", suite, repository)
	}
	return nil
}

// cacheGet looks up a cached result and records the hit or miss for the
// operation.
func (s *Service) cacheGet(key, operation string) (any, bool) {
	if v, ok := s.cache.Get(key); ok {
		s.metrics.CacheHits.WithLabelValues(operation).Inc()
		return v, true
	}
	s.metrics.CacheMisses.WithLabelValues(operation).Inc()
	return nil, false
}

func normalizeFilter(platform, suite string) (string, string) {
	if platform == "" {
		platform = store.DefaultFilter
	}
	if suite == "" {
		suite = store.DefaultFilter
	}
	return platform, suite
}

func canonicalPath(path string) string {
	return strings.Trim(strings.TrimSpace(path), "/")
}
