package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/covspect/covspect/internal/errdefs"
)

// Local serves coverage reports from a directory tree with the same
// layout as the GCS backend. Unlike the GCS backend it also writes,
// which is what "covspect import" uses to seed a store.
type Local struct {
	root string
}

type pushMetadata struct {
	PushID    int64 `json:"push_id"`
	Timestamp int64 `json:"push_timestamp"`
}

// OpenLocal opens a directory as a report store. The directory does
// not have to exist yet; writes create it.
func OpenLocal(root string, _ Options) (*Local, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return nil, fmt.Errorf("local store root is empty")
	}
	return &Local{root: trimmed}, nil
}

// ListReports implements Store.
func (s *Local) ListReports(ctx context.Context, repository string) ([]RevisionReports, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(s.root, repository))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errdefs.StoreUnavailablef("failed to list reports for %s: %v", repository, err)
	}

	revisions := make([]RevisionReports, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			// zero_coverage_report.json lives at this level.
			continue
		}

		// A changeset with a sidecar but no blobs is a push that was
		// never ingested; it still occupies its slot in the ordering.
		revision, err := s.readRevision(repository, entry.Name())
		if err != nil {
			slog.Warn("skipping changeset with unreadable metadata",
				"repository", repository, "changeset", entry.Name(), "error", err)
			continue
		}
		revisions = append(revisions, revision)
	}

	sortRevisions(revisions)
	return revisions, nil
}

func (s *Local) readRevision(repository, changeset string) (RevisionReports, error) {
	dir := filepath.Join(s.root, repository, changeset)

	raw, err := os.ReadFile(filepath.Join(dir, pushSidecar))
	if err != nil {
		return RevisionReports{}, fmt.Errorf("missing push metadata: %w", err)
	}
	var meta pushMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return RevisionReports{}, fmt.Errorf("invalid push metadata: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return RevisionReports{}, err
	}

	var filters []Filter
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filter, ok := parseReportName(entry.Name()); ok {
			filters = append(filters, filter)
		}
	}
	sortFilters(filters)

	return RevisionReports{
		Changeset: changeset,
		PushID:    meta.PushID,
		Timestamp: time.Unix(meta.Timestamp, 0).UTC(),
		Filters:   filters,
	}, nil
}

// FetchReport implements Store.
func (s *Local) FetchReport(ctx context.Context, id ReportID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(id.Key())))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errdefs.NotFoundf("report %s not found", id)
		}
		return nil, errdefs.StoreUnavailablef("failed to read report %s: %v", id, err)
	}
	return decompressReport(data)
}

// FetchZeroCoverage implements Store.
func (s *Local) FetchZeroCoverage(ctx context.Context, repository string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.root, repository, ZeroCoverageObject))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errdefs.NotFoundf("no zero coverage report for %s", repository)
		}
		return nil, errdefs.StoreUnavailablef("failed to read zero coverage report for %s: %v", repository, err)
	}
	return data, nil
}

// Close implements Store. The local backend holds no resources.
func (s *Local) Close() error {
	return nil
}

// WriteReport compresses and stores covdir JSON under id, recording
// push metadata in the changeset sidecar.
func (s *Local) WriteReport(id ReportID, pushID int64, timestamp time.Time, covdirJSON []byte) error {
	if id.Repository == "" || id.Changeset == "" || id.Platform == "" || id.Suite == "" {
		return fmt.Errorf("incomplete report id %+v", id)
	}

	dir := filepath.Join(s.root, id.Repository, id.Changeset)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	blob, err := compressReport(covdirJSON)
	if err != nil {
		return err
	}
	blobName := fmt.Sprintf("%s:%s%s", id.Platform, id.Suite, reportSuffix)
	if err := os.WriteFile(filepath.Join(dir, blobName), blob, 0o644); err != nil {
		return fmt.Errorf("failed to write report blob: %w", err)
	}

	meta, err := json.Marshal(pushMetadata{PushID: pushID, Timestamp: timestamp.Unix()})
	if err != nil {
		return fmt.Errorf("failed to encode push metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, pushSidecar), meta, 0o644); err != nil {
		return fmt.Errorf("failed to write push metadata: %w", err)
	}
	return nil
}
