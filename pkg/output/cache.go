package output

import (
	"fmt"
	"os"
	"path/filepath"

	"waycrawl/pkg/logger"
	"waycrawl/pkg/urlutil"
)

// SnapshotCache is an on-disk cache of fetched snapshot bodies, keyed by
// (resolved URL, capture timestamp). Re-runs consult it before issuing a
// network fetch, so already-fetched snapshots are served locally.
//
// Layout: {baseDir}/{sanitized-url}/{timestamp}.html, the same layout
// earlier runs produced, so their caches are picked up as-is.
type SnapshotCache struct {
	baseDir string
	logger  logger.Logger
}

// NewSnapshotCache creates the cache root directory if needed
func NewSnapshotCache(baseDir string, log logger.Logger) (*SnapshotCache, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshots directory: %w", err)
	}
	return &SnapshotCache{baseDir: baseDir, logger: log}, nil
}

// Has reports whether the snapshot body for (url, timestamp) is cached
func (c *SnapshotCache) Has(url, timestamp string) bool {
	_, err := os.Stat(c.pathFor(url, timestamp))
	return err == nil
}

// Load returns the cached snapshot body
func (c *SnapshotCache) Load(url, timestamp string) (string, error) {
	data, err := os.ReadFile(c.pathFor(url, timestamp))
	if err != nil {
		return "", fmt.Errorf("failed to read cached snapshot: %w", err)
	}
	return string(data), nil
}

// Save writes a snapshot body to the cache atomically
func (c *SnapshotCache) Save(url, timestamp, content string) error {
	dir := filepath.Join(c.baseDir, urlutil.Sanitize(url))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	path := c.pathFor(url, timestamp)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, []byte(content), 0644); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to finalize snapshot: %w", err)
	}

	c.logger.DebugWithFields("snapshot cached", map[string]interface{}{
		"url":       url,
		"timestamp": timestamp,
		"path":      path,
	})
	return nil
}

func (c *SnapshotCache) pathFor(url, timestamp string) string {
	return filepath.Join(c.baseDir, urlutil.Sanitize(url), timestamp+".html")
}
