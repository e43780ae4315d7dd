package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"waycrawl/pkg/logger"
	"waycrawl/pkg/snapshot"
	"waycrawl/pkg/urlutil"
)

// StatsSink persists change-rate records, one JSON file per URL under the
// stats directory. Existing files let re-runs skip URLs already counted.
type StatsSink struct {
	dir    string
	logger logger.Logger
}

// NewStatsSink creates the stats directory if needed
func NewStatsSink(dir string, log logger.Logger) (*StatsSink, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create stats directory: %w", err)
	}
	return &StatsSink{dir: dir, logger: log}, nil
}

// Exists reports whether a change record for the URL was already persisted
func (s *StatsSink) Exists(url string) bool {
	_, err := os.Stat(s.pathFor(url))
	return err == nil
}

// Save writes the change record atomically
func (s *StatsSink) Save(record snapshot.ChangeRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal change record: %w", err)
	}

	path := s.pathFor(record.URL)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write change record: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to finalize change record: %w", err)
	}

	s.logger.DebugWithFields("change record saved", map[string]interface{}{
		"url":  record.URL,
		"path": path,
	})
	return nil
}

func (s *StatsSink) pathFor(url string) string {
	return filepath.Join(s.dir, urlutil.Sanitize(url)+".json")
}
