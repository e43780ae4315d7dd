package crawler

import (
	"context"
	"fmt"
	"time"

	"waycrawl/pkg/config"
	"waycrawl/pkg/logger"
	"waycrawl/pkg/output"
	"waycrawl/pkg/ratelimit"
	"waycrawl/pkg/retry"
	"waycrawl/pkg/snapshot"
	"waycrawl/pkg/urlutil"
	"waycrawl/pkg/wayback"
)

// Crawler orchestrates the snapshot acquisition pipeline: one worker per
// in-flight URL, every archive call behind a shared rate limiter, results
// streamed into the chunked writer and failures into the failure sink.
type Crawler struct {
	index    IndexQuerier
	fetcher  SnapshotFetcher
	writer   ContentWriter
	failures *output.FailureSink
	stats    *output.StatsSink
	cache    *output.SnapshotCache
	cfg      *config.Config
	freq     snapshot.Frequency
	start    time.Time
	end      time.Time
	logger   logger.Logger
}

// Summary reports the outcome of a run
type Summary struct {
	TasksProcessed   int
	SnapshotsWritten int
	Failures         int
	FailureLogPath   string
}

// New wires a Crawler from configuration: shared limiter, archive client,
// retry policy, and the output sinks. The snapshot cache is only attached
// when save-snapshots is enabled.
func New(cfg *config.Config, log logger.Logger) (*Crawler, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	freq, err := snapshot.ParseFrequency(cfg.Crawl.Frequency)
	if err != nil {
		return nil, err
	}
	start, err := time.Parse("20060102", cfg.Crawl.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := time.Parse("20060102", cfg.Crawl.EndDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date: %w", err)
	}

	limiter := ratelimit.New(cfg.RateLimit.Calls, cfg.RateLimit.Period, cfg.RateLimit.Strategy)

	retryCfg := &retry.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Backoff: &retry.ExponentialBackoff{
			BaseDelay:    cfg.Retry.BaseDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
			Multiplier:   cfg.Retry.Multiplier,
			JitterFactor: cfg.Retry.JitterFactor,
		},
		RetryIf: retry.DefaultRetryIf,
		Context: context.Background(),
		Logger:  log,
	}

	client := wayback.NewClient(cfg.Crawl.RequestTimeout, log)
	if cfg.Crawl.SiteType == string(SiteTypeRobots) {
		// some origins served robots.txt per user agent
		client.SetHeader("User-Agent", wayback.DefaultUserAgent)
	}

	writer, err := output.NewChunkedWriter(cfg.Output.JSONPath, cfg.Output.MaxChunkMB, log)
	if err != nil {
		return nil, err
	}
	failures, err := output.NewFailureSink(cfg.Output.FailureLog, log)
	if err != nil {
		return nil, err
	}
	stats, err := output.NewStatsSink(cfg.Output.StatsDir, log)
	if err != nil {
		return nil, err
	}

	var cache *output.SnapshotCache
	if cfg.Crawl.SaveSnapshots {
		cache, err = output.NewSnapshotCache(cfg.Output.SnapshotsDir, log)
		if err != nil {
			return nil, err
		}
	}

	return &Crawler{
		index:    wayback.NewIndexClient(client, limiter, retryCfg, log),
		fetcher:  wayback.NewContentFetcher(client, limiter, retryCfg, log),
		writer:   writer,
		failures: failures,
		stats:    stats,
		cache:    cache,
		cfg:      cfg,
		freq:     freq,
		start:    start,
		end:      end,
		logger:   log,
	}, nil
}

// Run processes all tasks through the worker pool, draining fully before
// returning. Per-URL failures never abort the run; an output flush failure
// does, since continuing would accumulate into a writer that cannot
// persist. The returned Summary is valid either way: chunks flushed before
// a fatal error remain usable.
func (c *Crawler) Run(ctx context.Context, tasks []UrlTask) (Summary, error) {
	pool := NewWorkerPool(ctx, c.cfg.Crawl.NumWorkers, c, c.logger)
	pool.Start()

	summary := Summary{FailureLogPath: c.failures.Path()}
	var fatalErr error

	done := make(chan struct{})
	go func() {
		defer close(done)
		for result := range pool.Results() {
			summary.TasksProcessed++
			summary.SnapshotsWritten += result.Emitted
			if result.Err != nil && fatalErr == nil {
				fatalErr = result.Err
				c.logger.WithError(result.Err).Error("fatal error, aborting run")
				pool.Abort()
			}
		}
	}()

	for _, task := range tasks {
		if err := pool.Submit(task); err != nil {
			break
		}
	}

	pool.Stop()
	<-done

	summary.Failures = c.failures.Count()

	if fatalErr != nil {
		return summary, fatalErr
	}

	if err := c.writer.Close(); err != nil {
		return summary, err
	}

	c.logger.InfoWithFields("run completed", map[string]interface{}{
		"tasks":             summary.TasksProcessed,
		"snapshots_written": summary.SnapshotsWritten,
		"failures":          summary.Failures,
		"failure_log":       summary.FailureLogPath,
	})

	return summary, nil
}

// Close releases the sinks held by the crawler
func (c *Crawler) Close() error {
	return c.failures.Close()
}

// Process handles one task end-to-end. Panics and per-request errors are
// converted to FailedRequests so one URL can never take down its siblings;
// only writer flush failures escape through TaskResult.Err.
func (c *Crawler) Process(ctx context.Context, task UrlTask) (result TaskResult) {
	begin := time.Now()
	result.Task = TaskInfo{RawURL: task.RawURL, ResolvedURL: task.ResolvedURL}

	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprintf("panic: %v", r)
			c.failures.Record(output.FailedRequest{URL: task.ResolvedURL, Reason: reason})
			c.logger.ErrorWithFields("task panicked", map[string]interface{}{
				"url":    task.ResolvedURL,
				"reason": reason,
			})
			result.Failed++
		}
		result.Duration = time.Since(begin)
	}()

	if c.cfg.Crawl.CountChanges {
		result.Failed += c.countChanges(ctx, task)
	}

	if c.cfg.Crawl.ProcessToJSON {
		emitted, failed, err := c.collectSnapshots(ctx, task)
		result.Emitted += emitted
		result.Failed += failed
		if err != nil {
			result.Err = err
			return result
		}
	}

	return result
}

// collectSnapshots runs the fetch pipeline for one URL: index query,
// bucket selection, then one fetch per selected capture. A failed fetch is
// recorded and the remaining timestamps are still attempted. The returned
// error is fatal (output flush failure) and aborts the run.
func (c *Crawler) collectSnapshots(ctx context.Context, task UrlTask) (emitted, failed int, fatal error) {
	collapse := wayback.CollapseFilter(string(c.freq))
	refs, err := c.index.Query(ctx, task.ResolvedURL, c.cfg.Crawl.StartDate, c.cfg.Crawl.EndDate, collapse)
	if err != nil {
		c.failures.Record(output.FailedRequest{URL: task.ResolvedURL, Reason: err.Error()})
		c.logger.WarnWithFields("index query failed, skipping URL", map[string]interface{}{
			"url":   task.ResolvedURL,
			"error": err.Error(),
		})
		return 0, 1, nil
	}

	selected := snapshot.Select(refs, c.start, c.end, c.freq)
	if len(selected) == 0 {
		c.logger.InfoWithFields("no snapshots available", map[string]interface{}{
			"url":   task.ResolvedURL,
			"range": c.cfg.Crawl.StartDate + "-" + c.cfg.Crawl.EndDate,
		})
		return 0, 0, nil
	}

	domain := urlutil.Domain(task.ResolvedURL)

	for _, ref := range selected {
		if ctx.Err() != nil {
			return emitted, failed, nil
		}

		content, ok := c.cachedContent(task.ResolvedURL, ref.Raw)
		if !ok {
			content, err = c.fetcher.Fetch(ctx, ref)
			if err != nil {
				c.failures.Record(output.FailedRequest{
					URL:       task.ResolvedURL,
					Timestamp: ref.Raw,
					Reason:    err.Error(),
				})
				failed++
				continue
			}
			if c.cache != nil {
				if err := c.cache.Save(task.ResolvedURL, ref.Raw, content); err != nil {
					c.logger.WithError(err).WithField("url", task.ResolvedURL).Warn("failed to cache snapshot")
				}
			}
		}

		if err := c.writer.Add(domain, ref.Date(), content); err != nil {
			return emitted, failed, err
		}
		emitted++
	}

	c.logger.InfoWithFields("processed snapshots", map[string]interface{}{
		"url":      task.ResolvedURL,
		"selected": len(selected),
		"written":  emitted,
		"failed":   failed,
	})

	return emitted, failed, nil
}

// cachedContent serves a snapshot body from the on-disk cache when
// save-snapshots is on and an earlier run already fetched it
func (c *Crawler) cachedContent(url, timestamp string) (string, bool) {
	if c.cache == nil || !c.cache.Has(url, timestamp) {
		return "", false
	}
	content, err := c.cache.Load(url, timestamp)
	if err != nil {
		c.logger.WithError(err).WithField("url", url).Warn("failed to load cached snapshot, refetching")
		return "", false
	}
	c.logger.DebugWithFields("snapshot served from cache", map[string]interface{}{
		"url":       url,
		"timestamp": timestamp,
	})
	return content, true
}

// countChanges measures the URL's content-change frequency from the full
// (daily-collapsed) index sequence, independent of sampling frequency.
// Returns the number of failures recorded.
func (c *Crawler) countChanges(ctx context.Context, task UrlTask) int {
	if c.stats.Exists(task.ResolvedURL) {
		c.logger.DebugWithFields("change record already exists, skipping", map[string]interface{}{
			"url": task.ResolvedURL,
		})
		return 0
	}

	collapse := wayback.CollapseFilter(string(snapshot.Daily))
	refs, err := c.index.Query(ctx, task.ResolvedURL, c.cfg.Crawl.StartDate, c.cfg.Crawl.EndDate, collapse)
	if err != nil {
		c.failures.Record(output.FailedRequest{URL: task.ResolvedURL, Reason: err.Error()})
		return 1
	}

	record := snapshot.CountChanges(task.ResolvedURL, refs)
	if err := c.stats.Save(record); err != nil {
		c.failures.Record(output.FailedRequest{URL: task.ResolvedURL, Reason: err.Error()})
		return 1
	}

	c.logger.InfoWithFields("change record saved", map[string]interface{}{
		"url":          task.ResolvedURL,
		"change_count": record.ChangeCount,
	})
	return 0
}
