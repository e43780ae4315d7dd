package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func readChunk(t *testing.T, path string) map[string]map[string]string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read chunk %s: %v", path, err)
	}
	var dataset map[string]map[string]string
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Chunk %s is not valid JSON: %v", path, err)
	}
	return dataset
}

func TestChunkedWriterSingleChunk(t *testing.T) {
	dir := t.TempDir()
	w, err := NewChunkedWriter(filepath.Join(dir, "data.json"), 100, nil)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}

	if err := w.Add("example.com", "2023-01-05", "january content"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := w.Add("example.com", "2023-03-10", "march content"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := w.Add("other.org", "2023-01-05", "other content"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	paths := w.ChunkPaths()
	if len(paths) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(paths))
	}
	if !strings.HasSuffix(paths[0], "data_0001.json") {
		t.Errorf("Unexpected chunk name %s", paths[0])
	}

	dataset := readChunk(t, paths[0])
	if dataset["example.com"]["2023-01-05"] != "january content" {
		t.Error("Expected january entry under example.com")
	}
	if dataset["example.com"]["2023-03-10"] != "march content" {
		t.Error("Expected march entry under example.com")
	}
	if dataset["other.org"]["2023-01-05"] != "other content" {
		t.Error("Expected entry under other.org")
	}
}

func TestChunkedWriterSplitsChunks(t *testing.T) {
	dir := t.TempDir()
	w, err := NewChunkedWriter(filepath.Join(dir, "data.json"), 1, nil) // 1 MB threshold
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}

	// ~300 KB per entry, so a flush should trigger every 4th entry
	content := strings.Repeat("x", 300*1024)
	total := 10
	for i := 0; i < total; i++ {
		date := fmt.Sprintf("2023-01-%02d", i+1)
		if err := w.Add("example.com", date, content); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	paths := w.ChunkPaths()
	if len(paths) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(paths))
	}

	// The union of all chunks must contain every entry exactly once
	merged := make(map[string]string)
	for _, path := range paths {
		dataset := readChunk(t, path)
		for date, c := range dataset["example.com"] {
			if _, dup := merged[date]; dup {
				t.Errorf("Entry %s appears in more than one chunk", date)
			}
			merged[date] = c
		}
	}
	if len(merged) != total {
		t.Errorf("Expected %d entries across chunks, got %d", total, len(merged))
	}
}

func TestChunkedWriterEmptyClose(t *testing.T) {
	dir := t.TempDir()
	w, err := NewChunkedWriter(filepath.Join(dir, "data.json"), 100, nil)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close on empty writer failed: %v", err)
	}
	if len(w.ChunkPaths()) != 0 {
		t.Error("Expected no chunk files for an empty writer")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Expected no files in output dir, found %d", len(entries))
	}
}

func TestChunkedWriterConcurrentAdds(t *testing.T) {
	dir := t.TempDir()
	w, err := NewChunkedWriter(filepath.Join(dir, "data.json"), 100, nil)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			domain := fmt.Sprintf("site%d.com", worker)
			for j := 0; j < 20; j++ {
				date := fmt.Sprintf("2023-01-%02d", j+1)
				if err := w.Add(domain, date, "content"); err != nil {
					t.Errorf("Add failed: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	count := 0
	for _, path := range w.ChunkPaths() {
		for _, dates := range readChunk(t, path) {
			count += len(dates)
		}
	}
	if count != 8*20 {
		t.Errorf("Expected %d entries, got %d", 8*20, count)
	}
}

func TestChunkedWriterNoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	w, err := NewChunkedWriter(filepath.Join(dir, "data.json"), 100, nil)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	w.Add("example.com", "2023-01-01", "content")
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("Temp file %s left behind", e.Name())
		}
	}
}
