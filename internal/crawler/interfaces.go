package crawler

import (
	"context"

	"waycrawl/pkg/wayback"
)

// IndexQuerier queries the archive's snapshot index
type IndexQuerier interface {
	Query(ctx context.Context, resolvedURL, startDate, endDate, collapse string) ([]wayback.SnapshotRef, error)
}

// SnapshotFetcher retrieves a snapshot's body from the replay endpoint
type SnapshotFetcher interface {
	Fetch(ctx context.Context, ref wayback.SnapshotRef) (string, error)
}

// ContentWriter accumulates snapshot contents into the output dataset.
// Close flushes whatever remains buffered.
type ContentWriter interface {
	Add(domain, date, content string) error
	Close() error
}
