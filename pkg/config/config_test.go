package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	// Test default values
	if config.RateLimit.Calls != 3 {
		t.Errorf("Expected default rate limit calls to be 3, got %d", config.RateLimit.Calls)
	}

	if config.RateLimit.Period != time.Second {
		t.Errorf("Expected default rate limit period to be 1s, got %v", config.RateLimit.Period)
	}

	if config.Crawl.Frequency != "monthly" {
		t.Errorf("Expected default frequency to be monthly, got %s", config.Crawl.Frequency)
	}

	if !config.Crawl.ProcessToJSON {
		t.Error("Expected process-to-json to be enabled by default")
	}

	if config.Crawl.NumWorkers < 1 {
		t.Errorf("Expected at least one worker by default, got %d", config.Crawl.NumWorkers)
	}

	if config.Output.JSONPath != "wayback_data.json" {
		t.Errorf("Expected default output path to be wayback_data.json, got %s", config.Output.JSONPath)
	}

	if config.Output.MaxChunkMB != 5000 {
		t.Errorf("Expected default max chunk size to be 5000 MB, got %d", config.Output.MaxChunkMB)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("WAYCRAWL_START_DATE", "20200101")
	os.Setenv("WAYCRAWL_END_DATE", "20201231")
	os.Setenv("WAYCRAWL_FREQUENCY", "daily")
	os.Setenv("WAYCRAWL_NUM_WORKERS", "7")
	os.Setenv("WAYCRAWL_RATE_LIMIT_CALLS", "5")
	os.Setenv("WAYCRAWL_LOG_LEVEL", "debug")

	defer func() {
		os.Unsetenv("WAYCRAWL_START_DATE")
		os.Unsetenv("WAYCRAWL_END_DATE")
		os.Unsetenv("WAYCRAWL_FREQUENCY")
		os.Unsetenv("WAYCRAWL_NUM_WORKERS")
		os.Unsetenv("WAYCRAWL_RATE_LIMIT_CALLS")
		os.Unsetenv("WAYCRAWL_LOG_LEVEL")
	}()

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.Crawl.StartDate != "20200101" {
		t.Errorf("Expected start date 20200101, got %s", config.Crawl.StartDate)
	}
	if config.Crawl.EndDate != "20201231" {
		t.Errorf("Expected end date 20201231, got %s", config.Crawl.EndDate)
	}
	if config.Crawl.Frequency != "daily" {
		t.Errorf("Expected frequency daily, got %s", config.Crawl.Frequency)
	}
	if config.Crawl.NumWorkers != 7 {
		t.Errorf("Expected 7 workers, got %d", config.Crawl.NumWorkers)
	}
	if config.RateLimit.Calls != 5 {
		t.Errorf("Expected 5 rate limit calls, got %d", config.RateLimit.Calls)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", config.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "waycrawl.yaml")

	content := `crawl:
  start_date: "20190101"
  end_date: "20191231"
  frequency: annually
  site_type: tos
rate_limit:
  calls: 2
  period: 2s
output:
  json_path: out/data.json
  max_chunk_mb: 100
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	if config.Crawl.StartDate != "20190101" {
		t.Errorf("Expected start date 20190101, got %s", config.Crawl.StartDate)
	}
	if config.Crawl.Frequency != "annually" {
		t.Errorf("Expected frequency annually, got %s", config.Crawl.Frequency)
	}
	if config.Crawl.SiteType != "tos" {
		t.Errorf("Expected site type tos, got %s", config.Crawl.SiteType)
	}
	if config.RateLimit.Calls != 2 {
		t.Errorf("Expected 2 rate limit calls, got %d", config.RateLimit.Calls)
	}
	if config.RateLimit.Period != 2*time.Second {
		t.Errorf("Expected period 2s, got %v", config.RateLimit.Period)
	}
	if config.Output.JSONPath != "out/data.json" {
		t.Errorf("Expected output path out/data.json, got %s", config.Output.JSONPath)
	}
	if config.Output.MaxChunkMB != 100 {
		t.Errorf("Expected max chunk size 100, got %d", config.Output.MaxChunkMB)
	}

	// Fields absent from the file keep their defaults
	if config.Retry.MaxAttempts != 3 {
		t.Errorf("Expected retry defaults to survive, got %d attempts", config.Retry.MaxAttempts)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	config := DefaultConfig()
	if err := config.LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for missing config file")
	}

	// Empty path with no config file in default locations is not an error
	if err := config.LoadFromFile(""); err != nil {
		t.Errorf("Expected no error for unspecified config file, got %v", err)
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()
	config.Crawl.StartDate = "20200101"
	config.Crawl.EndDate = "20201231"

	config.MergeCommandLineFlags(map[string]interface{}{
		"frequency":       "daily",
		"workers":         4,
		"count-changes":   true,
		"process-to-json": false,
		"output-json":     "custom.json",
		"max-chunk-size":  50,
	})

	if config.Crawl.Frequency != "daily" {
		t.Errorf("Expected frequency daily, got %s", config.Crawl.Frequency)
	}
	if config.Crawl.NumWorkers != 4 {
		t.Errorf("Expected 4 workers, got %d", config.Crawl.NumWorkers)
	}
	if !config.Crawl.CountChanges {
		t.Error("Expected count-changes to be enabled")
	}
	if config.Crawl.ProcessToJSON {
		t.Error("Expected process-to-json to be disabled")
	}
	if config.Output.JSONPath != "custom.json" {
		t.Errorf("Expected output path custom.json, got %s", config.Output.JSONPath)
	}
	if config.Output.MaxChunkMB != 50 {
		t.Errorf("Expected max chunk size 50, got %d", config.Output.MaxChunkMB)
	}

	// Unset flags leave values untouched
	if config.Crawl.StartDate != "20200101" {
		t.Errorf("Expected start date to be untouched, got %s", config.Crawl.StartDate)
	}
}
