package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"waycrawl/internal/crawler"
	"waycrawl/internal/input"
	"waycrawl/pkg/config"
	"waycrawl/pkg/logger"
)

var (
	// Crawl command flags
	inputFile     string
	outputJSON    string
	startDate     string
	endDate       string
	frequency     string
	siteType      string
	workers       int
	snapshotsDir  string
	statsDir      string
	failureLog    string
	maxChunkSize  int
	countChanges  bool
	processToJSON bool
	saveSnapshots bool
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Collect historical snapshots for URLs from a CSV file",
	Long: `Collect historical snapshots from the Wayback Machine for every URL
listed in a CSV file.

For each URL the crawler queries the CDX index for the requested date
range, selects one capture per daily, monthly, or annual bucket, fetches
the snapshot bodies, and writes them to size-bounded JSON chunks. URLs
that fail are recorded in the failure log and never abort the run.`,
	Example: `  # Collect monthly snapshots of terms-of-service pages
  waycrawl crawl --input sites.csv --site-type tos --start-date 20200101 --end-date 20231231 --frequency monthly

  # Count content changes instead of collecting bodies
  waycrawl crawl --input sites.csv --count-changes --process-to-json=false

  # Keep raw snapshot bodies on disk for resumable runs
  waycrawl crawl --input sites.csv --save-snapshots --snapshots-dir ./snapshots`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runCrawl(cmd)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringVarP(&inputFile, "input", "i", "", "CSV file containing the URLs to crawl (required)")
	crawlCmd.Flags().StringVarP(&outputJSON, "output-json", "o", "", "path for the aggregated JSON output")
	crawlCmd.Flags().StringVar(&startDate, "start-date", "", "start of the capture range (YYYYMMDD)")
	crawlCmd.Flags().StringVar(&endDate, "end-date", "", "end of the capture range (YYYYMMDD)")
	crawlCmd.Flags().StringVarP(&frequency, "frequency", "f", "", "sampling frequency: daily, monthly, or annually")
	crawlCmd.Flags().StringVar(&siteType, "site-type", "", "which page to crawl per site: tos, robots, or main")
	crawlCmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of concurrent workers (default: CPUs - 1)")
	crawlCmd.Flags().StringVar(&snapshotsDir, "snapshots-dir", "", "directory for cached snapshot bodies")
	crawlCmd.Flags().StringVar(&statsDir, "stats-dir", "", "directory for per-URL change statistics")
	crawlCmd.Flags().StringVar(&failureLog, "failure-log", "", "path for the failed request log")
	crawlCmd.Flags().IntVar(&maxChunkSize, "max-chunk-size", 0, "maximum output chunk size in MB")
	crawlCmd.Flags().BoolVar(&countChanges, "count-changes", false, "count content changes per URL from capture digests")
	crawlCmd.Flags().BoolVar(&processToJSON, "process-to-json", true, "fetch snapshot bodies and write them to JSON chunks")
	crawlCmd.Flags().BoolVar(&saveSnapshots, "save-snapshots", false, "keep raw snapshot bodies on disk and reuse them on reruns")

	crawlCmd.MarkFlagRequired("input")
}

func runCrawl(cmd *cobra.Command) {
	// Build flags map from command line, only passing what was set
	flags := make(map[string]interface{})
	if outputJSON != "" {
		flags["output-json"] = outputJSON
	}
	if startDate != "" {
		flags["start-date"] = startDate
	}
	if endDate != "" {
		flags["end-date"] = endDate
	}
	if frequency != "" {
		flags["frequency"] = frequency
	}
	if siteType != "" {
		flags["site-type"] = siteType
	}
	if workers > 0 {
		flags["workers"] = workers
	}
	if snapshotsDir != "" {
		flags["snapshots-dir"] = snapshotsDir
	}
	if statsDir != "" {
		flags["stats-dir"] = statsDir
	}
	if failureLog != "" {
		flags["failure-log"] = failureLog
	}
	if maxChunkSize > 0 {
		flags["max-chunk-size"] = maxChunkSize
	}
	if cmd.Flags().Changed("count-changes") {
		flags["count-changes"] = countChanges
	}
	if cmd.Flags().Changed("process-to-json") {
		flags["process-to-json"] = processToJSON
	}
	if cmd.Flags().Changed("save-snapshots") {
		flags["save-snapshots"] = saveSnapshots
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	// Load configuration
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Initialize(&cfg.Logging)
	log := logger.GetLogger()
	log.WithField("version", version).Info("Waycrawl starting")

	urls, err := input.ExtractURLs(inputFile, cfg.Crawl.SiteType)
	if err != nil {
		log.WithError(err).WithField("input", inputFile).Error("Failed to read input file")
		fmt.Fprintln(os.Stderr, "Failed to read input file:", err)
		os.Exit(1)
	}
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "No URLs found in", inputFile)
		os.Exit(1)
	}

	st, err := crawler.ParseSiteType(cfg.Crawl.SiteType)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	tasks := crawler.BuildTasks(urls, st)

	log.InfoWithFields("Starting crawl", map[string]interface{}{
		"urls":      len(tasks),
		"workers":   cfg.Crawl.NumWorkers,
		"frequency": cfg.Crawl.Frequency,
		"range":     cfg.Crawl.StartDate + "-" + cfg.Crawl.EndDate,
	})

	c, err := crawler.New(cfg, log)
	if err != nil {
		log.WithError(err).Error("Failed to initialize crawler")
		fmt.Fprintln(os.Stderr, "Failed to initialize crawler:", err)
		os.Exit(1)
	}
	defer c.Close()

	// Cancel on SIGINT/SIGTERM so in-flight work drains cleanly
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := c.Run(ctx, tasks)
	if err != nil {
		log.WithError(err).Error("Crawl aborted")
		fmt.Fprintln(os.Stderr, "Crawl aborted:", err)
		os.Exit(1)
	}

	fmt.Printf("Processed %d URLs, wrote %d snapshots\n", summary.TasksProcessed, summary.SnapshotsWritten)
	if summary.Failures > 0 {
		fmt.Printf("%d requests failed, see %s\n", summary.Failures, summary.FailureLogPath)
	}
}
