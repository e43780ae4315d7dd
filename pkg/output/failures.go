package output

import (
	"fmt"
	"os"
	"sync"

	"waycrawl/pkg/logger"
)

// FailedRequest records one request that exhausted its retries. Timestamp
// is empty for index queries and set for snapshot fetches. Recorded
// failures are never retried automatically.
type FailedRequest struct {
	URL       string
	Timestamp string
	Reason    string
}

// FailureSink appends failed requests to a persistent, append-only log,
// one line per failure. Safe for concurrent use by all workers.
type FailureSink struct {
	mu     sync.Mutex
	file   *os.File
	path   string
	count  int
	logger logger.Logger
}

// NewFailureSink opens (or creates) the failure log for appending
func NewFailureSink(path string, log logger.Logger) (*FailureSink, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open failure log: %w", err)
	}

	return &FailureSink{
		file:   file,
		path:   path,
		logger: log,
	}, nil
}

// Record appends one failure line. Failures to write the log itself are
// logged but do not abort the run: the failure was already surfaced.
func (s *FailureSink) Record(req FailedRequest) {
	line := req.URL
	if req.Timestamp != "" {
		line += "@" + req.Timestamp
	}
	line += " --> error: " + req.Reason + "\n"

	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	if _, err := s.file.WriteString(line); err != nil {
		s.logger.ErrorWithFields("failed to write failure log entry", map[string]interface{}{
			"path":  s.path,
			"url":   req.URL,
			"error": err.Error(),
		})
	}
}

// Count returns the number of failures recorded during this run
func (s *FailureSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Path returns the failure log location
func (s *FailureSink) Path() string {
	return s.path
}

// Close closes the underlying log file
func (s *FailureSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
