package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"waycrawl/pkg/logger"
)

// entryOverhead approximates the JSON framing per entry (quotes, colons,
// commas, indentation) on top of the key/value byte lengths.
const entryOverhead = 16

// ChunkedWriter accumulates (domain, date, content) entries and flushes
// them to a new numbered JSON file whenever the serialized size estimate
// crosses the configured threshold. Memory stays bounded, and everything
// flushed so far remains valid output if the run is interrupted.
//
// Each chunk file independently follows the full output schema:
// domain -> date (YYYY-MM-DD) -> content. Consumers merge chunk files to
// obtain the complete dataset.
type ChunkedWriter struct {
	mu           sync.Mutex
	stem         string // output path without extension
	ext          string
	maxBytes     int64
	dataset      map[string]map[string]string
	sizeEstimate int64
	chunkIndex   int
	written      []string
	logger       logger.Logger
}

// NewChunkedWriter creates a writer that chunks at maxChunkMB megabytes.
// The chunk files are derived from path: "data.json" produces
// "data_0001.json", "data_0002.json", and so on.
func NewChunkedWriter(path string, maxChunkMB int, log logger.Logger) (*ChunkedWriter, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	ext := filepath.Ext(path)
	return &ChunkedWriter{
		stem:     strings.TrimSuffix(path, ext),
		ext:      ext,
		maxBytes: int64(maxChunkMB) * 1024 * 1024,
		dataset:  make(map[string]map[string]string),
		logger:   log,
	}, nil
}

// Add records one snapshot's content under its domain and date. If the
// accumulated estimate crosses the chunk threshold, the current dataset is
// flushed first. A flush failure is returned unchanged and is fatal to the
// run: accumulating into a writer that cannot persist loses data silently.
func (w *ChunkedWriter) Add(domain, date, content string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	dates, ok := w.dataset[domain]
	if !ok {
		dates = make(map[string]string)
		w.dataset[domain] = dates
	}
	dates[date] = content
	w.sizeEstimate += int64(len(domain) + len(date) + len(content) + entryOverhead)

	if w.sizeEstimate >= w.maxBytes {
		return w.flushLocked()
	}
	return nil
}

// Close flushes whatever remains in memory. Must be called once all
// workers have finished adding entries.
func (w *ChunkedWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

// ChunkPaths returns the paths of all chunk files written so far
func (w *ChunkedWriter) ChunkPaths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	paths := make([]string, len(w.written))
	copy(paths, w.written)
	return paths
}

// EntryCount returns the number of entries currently held in memory
func (w *ChunkedWriter) EntryCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, dates := range w.dataset {
		n += len(dates)
	}
	return n
}

// flushLocked writes the in-memory dataset to the next chunk file.
// The dataset is cleared only after the file is durably in place, so a
// failed flush preserves the in-memory state for retry.
func (w *ChunkedWriter) flushLocked() error {
	if len(w.dataset) == 0 {
		return nil
	}

	data, err := json.MarshalIndent(w.dataset, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output dataset: %w", err)
	}

	path := fmt.Sprintf("%s_%04d%s", w.stem, w.chunkIndex+1, w.ext)
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write output chunk: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to finalize output chunk: %w", err)
	}

	w.logger.InfoWithFields("output chunk flushed", map[string]interface{}{
		"path":    path,
		"domains": len(w.dataset),
		"bytes":   len(data),
	})

	w.chunkIndex++
	w.written = append(w.written, path)
	w.dataset = make(map[string]map[string]string)
	w.sizeEstimate = 0

	return nil
}
