package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"waycrawl/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage Waycrawl configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (WAYCRAWL_*)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'waycrawl.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the current configuration including values from all sources:
  - Command line flags
  - Environment variables
  - Configuration file
  - Default values`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Required fields
  - Value types and ranges
  - Path accessibility`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = "waycrawl.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintln(os.Stderr, "Configuration file already exists:", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	exampleConfig := `# Waycrawl Configuration File
#
# This file contains all available configuration options.
# You can also use environment variables prefixed with WAYCRAWL_
# For example: WAYCRAWL_START_DATE, WAYCRAWL_FREQUENCY

# Crawl configuration
crawl:
  # Start of the capture range (YYYYMMDD)
  start_date: "20200101"

  # End of the capture range (YYYYMMDD)
  end_date: "20231231"

  # Sampling frequency: daily, monthly, annually
  frequency: "monthly"

  # Which page to crawl per site: tos, robots, main
  site_type: "main"

  # Number of concurrent workers
  # Default: number of CPUs - 1
  num_workers: 0

  # Per-request timeout in seconds
  request_timeout: 30s

  # Fetch snapshot bodies and write them to JSON chunks
  process_to_json: true

  # Count content changes per URL from capture digests
  count_changes: false

  # Keep raw snapshot bodies on disk and reuse them on reruns
  save_snapshots: false

# Rate limiting configuration
rate_limit:
  # Maximum archive requests per period, shared by all workers
  calls: 3

  # Period over which calls are counted
  period: 1s

  # Limiting strategy: window, bucket
  strategy: "window"

# Retry configuration
retry:
  # Maximum number of attempts per request
  max_attempts: 3

  # Initial backoff delay
  base_delay: 1s

  # Maximum backoff delay
  max_delay: 60s

  # Backoff multiplier
  multiplier: 2.0

  # Jitter factor applied to each delay
  jitter_factor: 0.1

# Output configuration
output:
  # Path for the aggregated JSON output
  # Chunks are numbered: wayback_data_0000.json, wayback_data_0001.json, ...
  json_path: "wayback_data.json"

  # Directory for cached snapshot bodies (with save_snapshots)
  snapshots_dir: "snapshots"

  # Directory for per-URL change statistics (with count_changes)
  stats_dir: "stats"

  # Path for the failed request log
  failure_log: "failed_urls.txt"

  # Maximum output chunk size in MB
  max_chunk_mb: 5000

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log file path (optional)
  # Leave empty to log to stderr only
  file: ""
`

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to create configuration file:", err)
		os.Exit(1)
	}

	fmt.Println("Configuration file created:", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the configuration file to set your date range and frequency")
	fmt.Println("2. Run 'waycrawl config validate' to check the configuration")
	fmt.Println("3. Start crawling with 'waycrawl crawl --input sites.csv'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to format configuration:", err)
		os.Exit(1)
	}

	fmt.Println("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (WAYCRAWL_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (not specified)")
	}
	fmt.Println("4. Default values")
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if configFile == "" {
		possiblePaths := []string{
			"waycrawl.yaml",
			"waycrawl.yml",
			".waycrawl.yaml",
			".waycrawl.yml",
			filepath.Join(os.Getenv("HOME"), ".waycrawl.yaml"),
			filepath.Join(os.Getenv("HOME"), ".config", "waycrawl", "config.yaml"),
		}

		for _, path := range possiblePaths {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}

		if configFile == "" {
			fmt.Fprintln(os.Stderr, "No configuration file found. Specify a file with --config flag")
			os.Exit(1)
		}
	}

	fmt.Println("Validating configuration:", configFile)

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Configuration validation failed:", err)
		os.Exit(1)
	}

	var problems []string

	if dir := filepath.Dir(cfg.Output.JSONPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create output directory: %v", err))
		}
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}

	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintln(os.Stderr, "Error:", p)
		}
		os.Exit(1)
	}

	fmt.Println("Configuration is valid")
}
