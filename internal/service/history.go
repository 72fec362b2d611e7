package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/covspect/covspect/internal/covdir"
	"github.com/covspect/covspect/internal/errdefs"
	"github.com/covspect/covspect/internal/store"
)

// History computes a coverage time series for one path, ascending by
// push id. Revisions without a report for the filter are skipped, as
// are revisions whose report does not contain the path yet. A revision
// whose report cannot be read is skipped with a warning rather than
// failing the whole series.
func (s *Service) History(ctx context.Context, q HistoryQuery) ([]HistoryPoint, error) {
	repository, err := s.repository(q.Repository)
	if err != nil {
		return nil, err
	}
	if !q.Start.IsZero() && !q.End.IsZero() && q.End.Before(q.Start) {
		return nil, errdefs.InvalidFilterf("history start %d is after end %d", q.Start.Unix(), q.End.Unix())
	}
	platform, suite := normalizeFilter(q.Platform, q.Suite)
	path := canonicalPath(q.Path)

	key := strings.Join([]string{
		repository, "history", boundKey(q.Start), boundKey(q.End), platform + ":" + suite, path,
	}, "|")
	if v, ok := s.cacheGet(key, "history"); ok {
		return v.([]HistoryPoint), nil
	}

	if err := s.validateFilter(ctx, repository, platform, suite); err != nil {
		return nil, err
	}

	revisions, err := s.index.Between(ctx, repository, q.Start, q.End)
	if err != nil {
		return nil, err
	}

	// Reports are fetched concurrently; each point lands in its
	// revision's slot so the series stays ordered by push id.
	points := make([]*HistoryPoint, len(revisions))
	var skippedFetch atomic.Bool

	g, gctx := errgroup.WithContext(ctx)
	limit := s.config.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, rev := range revisions {
		if !rev.HasFilter(platform, suite) {
			continue
		}
		g.Go(func() error {
			id := store.ReportID{
				Repository: repository,
				Changeset:  rev.Changeset,
				Platform:   platform,
				Suite:      suite,
			}
			root, err := s.reportTree(gctx, id)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				skippedFetch.Store(true)
				slog.Warn("skipping unreadable revision in history scan",
					"report", id, "error", err)
				return nil
			}
			summary, err := covdir.PercentForPath(root, path)
			if err != nil {
				if !errdefs.IsPathNotFound(err) {
					skippedFetch.Store(true)
					slog.Warn("skipping revision in history scan",
						"report", id, "error", err)
				}
				return nil
			}
			points[i] = &HistoryPoint{
				Changeset: rev.Changeset,
				Date:      timestampSeconds(rev.Timestamp),
				Coverage:  summary.CoveragePercent,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	series := make([]HistoryPoint, 0, len(points))
	for _, p := range points {
		if p != nil {
			series = append(series, *p)
		}
	}

	// A series missing revisions because their reports failed to load
	// is not cached; the next call retries them.
	if !skippedFetch.Load() {
		s.cache.Set(key, series)
	}
	return series, nil
}

func boundKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.Unix(), 10)
}

func timestampSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
