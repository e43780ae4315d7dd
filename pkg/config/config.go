package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the snapshot pipeline
type Config struct {
	// Crawl run parameters
	Crawl CrawlConfig `yaml:"crawl" json:"crawl"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry policy for archive requests
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// CrawlConfig holds the parameters of a single crawl run
type CrawlConfig struct {
	StartDate      string        `yaml:"start_date" json:"start_date"` // YYYYMMDD
	EndDate        string        `yaml:"end_date" json:"end_date"`     // YYYYMMDD
	Frequency      string        `yaml:"frequency" json:"frequency"`   // daily, monthly, annually
	SiteType       string        `yaml:"site_type" json:"site_type"`   // tos, robots, main
	NumWorkers     int           `yaml:"num_workers" json:"num_workers"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	CountChanges   bool          `yaml:"count_changes" json:"count_changes"`
	SaveSnapshots  bool          `yaml:"save_snapshots" json:"save_snapshots"`
	ProcessToJSON  bool          `yaml:"process_to_json" json:"process_to_json"`
}

// RateLimitConfig holds the shared archive call budget
type RateLimitConfig struct {
	Calls    int           `yaml:"calls" json:"calls"`
	Period   time.Duration `yaml:"period" json:"period"`
	Strategy string        `yaml:"strategy" json:"strategy"` // window or bucket
}

// RetryConfig holds the retry/backoff policy for archive requests
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay    time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
	JitterFactor float64       `yaml:"jitter_factor" json:"jitter_factor"`
}

// OutputConfig holds output path configuration
type OutputConfig struct {
	JSONPath     string `yaml:"json_path" json:"json_path"`
	SnapshotsDir string `yaml:"snapshots_dir" json:"snapshots_dir"`
	StatsDir     string `yaml:"stats_dir" json:"stats_dir"`
	FailureLog   string `yaml:"failure_log" json:"failure_log"`
	MaxChunkMB   int    `yaml:"max_chunk_mb" json:"max_chunk_mb"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Crawl: CrawlConfig{
			Frequency:      "monthly",
			SiteType:       "robots",
			NumWorkers:     defaultWorkers(),
			RequestTimeout: 30 * time.Second,
			ProcessToJSON:  true,
		},
		RateLimit: RateLimitConfig{
			Calls:    3,
			Period:   time.Second,
			Strategy: "window",
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			BaseDelay:    time.Second,
			MaxDelay:     60 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		Output: OutputConfig{
			JSONPath:     "wayback_data.json",
			SnapshotsDir: "snapshots",
			StatsDir:     "stats",
			FailureLog:   "failed_urls.txt",
			MaxChunkMB:   5000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultWorkers() int {
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}

// LoadFromEnv loads configuration overrides from environment variables
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("WAYCRAWL_START_DATE"); v != "" {
		c.Crawl.StartDate = v
	}
	if v := os.Getenv("WAYCRAWL_END_DATE"); v != "" {
		c.Crawl.EndDate = v
	}
	if v := os.Getenv("WAYCRAWL_FREQUENCY"); v != "" {
		c.Crawl.Frequency = v
	}
	if v := os.Getenv("WAYCRAWL_SITE_TYPE"); v != "" {
		c.Crawl.SiteType = v
	}
	if v := os.Getenv("WAYCRAWL_NUM_WORKERS"); v != "" {
		var val int
		fmt.Sscanf(v, "%d", &val)
		if val > 0 {
			c.Crawl.NumWorkers = val
		}
	}
	if v := os.Getenv("WAYCRAWL_RATE_LIMIT_CALLS"); v != "" {
		var val int
		fmt.Sscanf(v, "%d", &val)
		if val > 0 {
			c.RateLimit.Calls = val
		}
	}
	if v := os.Getenv("WAYCRAWL_OUTPUT_JSON"); v != "" {
		c.Output.JSONPath = v
	}
	if v := os.Getenv("WAYCRAWL_SNAPSHOTS_DIR"); v != "" {
		c.Output.SnapshotsDir = v
	}
	if v := os.Getenv("WAYCRAWL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".waycrawl.yaml",
		".waycrawl.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "waycrawl", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "waycrawl", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

var (
	validFrequencies = map[string]bool{
		"daily": true, "monthly": true, "annually": true,
	}
	validSiteTypes = map[string]bool{
		"tos": true, "robots": true, "main": true,
	}
	validStrategies = map[string]bool{
		"window": true, "bucket": true,
	}
	validLogLevels = map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
)

// Validate checks if the configuration is valid. A non-nil error here is
// fatal: no tasks run against an invalid configuration.
func (c *Config) Validate() error {
	var errs []error

	start, err := time.Parse("20060102", c.Crawl.StartDate)
	if err != nil {
		errs = append(errs, fmt.Errorf("start date must be YYYYMMDD, got %q", c.Crawl.StartDate))
	}
	end, err2 := time.Parse("20060102", c.Crawl.EndDate)
	if err2 != nil {
		errs = append(errs, fmt.Errorf("end date must be YYYYMMDD, got %q", c.Crawl.EndDate))
	}
	if err == nil && err2 == nil && end.Before(start) {
		errs = append(errs, fmt.Errorf("start date %s is after end date %s", c.Crawl.StartDate, c.Crawl.EndDate))
	}

	if !validFrequencies[strings.ToLower(c.Crawl.Frequency)] {
		errs = append(errs, fmt.Errorf("unknown frequency %q", c.Crawl.Frequency))
	}
	if !validSiteTypes[strings.ToLower(c.Crawl.SiteType)] {
		errs = append(errs, fmt.Errorf("unknown site type %q", c.Crawl.SiteType))
	}
	if c.Crawl.NumWorkers <= 0 {
		errs = append(errs, errors.New("number of workers must be positive"))
	}
	if c.Crawl.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if !c.Crawl.ProcessToJSON && !c.Crawl.CountChanges {
		errs = append(errs, errors.New("nothing to do: enable process-to-json or count-changes"))
	}

	if c.RateLimit.Calls <= 0 {
		errs = append(errs, errors.New("rate limit calls must be positive"))
	}
	if c.RateLimit.Period <= 0 {
		errs = append(errs, errors.New("rate limit period must be positive"))
	}
	if !validStrategies[strings.ToLower(c.RateLimit.Strategy)] {
		errs = append(errs, fmt.Errorf("unknown rate limit strategy %q", c.RateLimit.Strategy))
	}

	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("retry max attempts must be positive"))
	}

	if c.Output.JSONPath == "" {
		errs = append(errs, errors.New("output JSON path is required"))
	}
	if c.Output.FailureLog == "" {
		errs = append(errs, errors.New("failure log path is required"))
	}
	if c.Output.MaxChunkMB <= 0 {
		errs = append(errs, errors.New("max chunk size must be positive"))
	}

	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["start-date"].(string); ok && v != "" {
		c.Crawl.StartDate = v
	}
	if v, ok := flags["end-date"].(string); ok && v != "" {
		c.Crawl.EndDate = v
	}
	if v, ok := flags["frequency"].(string); ok && v != "" {
		c.Crawl.Frequency = v
	}
	if v, ok := flags["site-type"].(string); ok && v != "" {
		c.Crawl.SiteType = v
	}
	if v, ok := flags["workers"].(int); ok && v > 0 {
		c.Crawl.NumWorkers = v
	}
	if v, ok := flags["count-changes"].(bool); ok {
		c.Crawl.CountChanges = v
	}
	if v, ok := flags["save-snapshots"].(bool); ok {
		c.Crawl.SaveSnapshots = v
	}
	if v, ok := flags["process-to-json"].(bool); ok {
		c.Crawl.ProcessToJSON = v
	}
	if v, ok := flags["output-json"].(string); ok && v != "" {
		c.Output.JSONPath = v
	}
	if v, ok := flags["snapshots-dir"].(string); ok && v != "" {
		c.Output.SnapshotsDir = v
	}
	if v, ok := flags["stats-dir"].(string); ok && v != "" {
		c.Output.StatsDir = v
	}
	if v, ok := flags["failure-log"].(string); ok && v != "" {
		c.Output.FailureLog = v
	}
	if v, ok := flags["max-chunk-size"].(int); ok && v > 0 {
		c.Output.MaxChunkMB = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".waycrawl.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
