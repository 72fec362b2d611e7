package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/covspect/covspect/internal/errdefs"
)

// GCS serves coverage reports from a Google Cloud Storage bucket.
// Report objects carry their push ordering as object metadata
// (push_id, push_timestamp), written at ingestion time.
type GCS struct {
	client  *gcs.Client
	bucket  *gcs.BucketHandle
	prefix  string
	timeout time.Duration
	limiter *RateLimiter
	retry   retryConfig
}

// OpenGCS connects to the bucket named by a gs://bucket[/prefix] URL.
func OpenGCS(ctx context.Context, rawURL string, opts Options) (*GCS, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(rawURL), "gs://")
	bucketName, prefix, _ := strings.Cut(trimmed, "/")
	if bucketName == "" {
		return nil, fmt.Errorf("invalid store URL %q: missing bucket name", rawURL)
	}

	client, err := gcs.NewClient(ctx, option.WithScopes(gcs.ScopeReadOnly))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCS{
		client:  client,
		bucket:  client.Bucket(bucketName),
		prefix:  strings.Trim(prefix, "/"),
		timeout: opts.Timeout,
		limiter: NewRateLimiter(opts.RateLimit),
		retry:   defaultRetryConfig(),
	}, nil
}

func (s *GCS) objectName(relative string) string {
	if s.prefix == "" {
		return relative
	}
	return s.prefix + "/" + relative
}

// ListReports implements Store. Listing is a single pass over the
// repository prefix and is not retried. The push.json marker object of
// each changeset carries the push ordering as object metadata; report
// blobs only contribute filters.
func (s *GCS) ListReports(ctx context.Context, repository string) ([]RevisionReports, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := withCallTimeout(ctx, s.timeout)
	defer cancel()

	prefix := s.objectName(repository) + "/"
	markers := map[string]RevisionReports{}
	filters := map[string][]Filter{}

	it := s.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errdefs.StoreUnavailablef("failed to list reports for %s: %v", repository, err)
		}

		changeset, file, ok := strings.Cut(strings.TrimPrefix(attrs.Name, prefix), "/")
		if !ok || changeset == "" {
			continue
		}

		if file == pushSidecar {
			pushID, timestamp, err := parsePushMetadata(attrs.Metadata)
			if err != nil {
				slog.Warn("skipping changeset with bad push metadata",
					"object", attrs.Name, "error", err)
				continue
			}
			markers[changeset] = RevisionReports{
				Changeset: changeset,
				PushID:    pushID,
				Timestamp: timestamp,
			}
			continue
		}

		if filter, ok := parseReportName(file); ok {
			filters[changeset] = append(filters[changeset], filter)
		}
	}

	revisions := make([]RevisionReports, 0, len(markers))
	for changeset, revision := range markers {
		revision.Filters = filters[changeset]
		sortFilters(revision.Filters)
		revisions = append(revisions, revision)
		delete(filters, changeset)
	}
	for changeset := range filters {
		slog.Warn("skipping changeset with reports but no push marker",
			"repository", repository, "changeset", changeset)
	}

	sortRevisions(revisions)
	return revisions, nil
}

// FetchReport implements Store.
func (s *GCS) FetchReport(ctx context.Context, id ReportID) ([]byte, error) {
	blob, err := s.readObject(ctx, s.objectName(id.Key()))
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, errdefs.NotFoundf("report %s not found", id)
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errdefs.StoreUnavailablef("failed to fetch report %s: %v", id, err)
	}
	return decompressReport(blob)
}

// FetchZeroCoverage implements Store.
func (s *GCS) FetchZeroCoverage(ctx context.Context, repository string) ([]byte, error) {
	name := s.objectName(repository + "/" + ZeroCoverageObject)
	blob, err := s.readObject(ctx, name)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, errdefs.NotFoundf("no zero coverage report for %s", repository)
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errdefs.StoreUnavailablef("failed to fetch zero coverage report for %s: %v", repository, err)
	}
	return blob, nil
}

// Close releases the underlying storage client.
func (s *GCS) Close() error {
	return s.client.Close()
}

func (s *GCS) readObject(ctx context.Context, name string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := withCallTimeout(ctx, s.timeout)
	defer cancel()

	var data []byte
	err := executeWithRetry(ctx, s.retry, func() error {
		reader, err := s.bucket.Object(name).NewReader(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = reader.Close() }()

		data, err = io.ReadAll(reader)
		return err
	})
	return data, err
}

func parsePushMetadata(metadata map[string]string) (int64, time.Time, error) {
	raw, ok := metadata["push_id"]
	if !ok {
		return 0, time.Time{}, fmt.Errorf("object metadata missing push_id")
	}
	pushID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("invalid push_id %q", raw)
	}

	var timestamp time.Time
	if rawTimestamp, ok := metadata["push_timestamp"]; ok {
		seconds, err := strconv.ParseInt(rawTimestamp, 10, 64)
		if err != nil {
			return 0, time.Time{}, fmt.Errorf("invalid push_timestamp %q", rawTimestamp)
		}
		timestamp = time.Unix(seconds, 0).UTC()
	}
	return pushID, timestamp, nil
}
