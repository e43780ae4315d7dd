package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"waycrawl/pkg/logger"
)

// TaskResult reports the outcome of one task's processing
type TaskResult struct {
	Task TaskInfo
	// Emitted is the number of snapshot contents written to output
	Emitted int
	// Failed is the number of failed requests recorded for this task
	Failed int
	// Err is a fatal error (an output flush failure) that must abort the run
	Err      error
	Duration time.Duration
}

// TaskInfo carries the identity of the processed task into results
type TaskInfo struct {
	RawURL      string
	ResolvedURL string
}

// Processor handles one UrlTask end-to-end: index query, selection,
// fetch-or-count, emit. Implementations must isolate per-URL failures and
// only return an error through TaskResult.Err for run-fatal conditions.
type Processor interface {
	Process(ctx context.Context, task UrlTask) TaskResult
}

// WorkerPool distributes UrlTasks across a fixed set of concurrent
// workers. Each worker owns its task's working set exclusively; the only
// shared state is behind the processor's sinks and the rate limiter.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan UrlTask
	resultQueue chan TaskResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	processor   Processor
	logger      logger.Logger
}

// NewWorkerPool creates a pool of numWorkers workers backed by processor
func NewWorkerPool(ctx context.Context, numWorkers int, processor Processor, log logger.Logger) *WorkerPool {
	poolCtx, cancel := context.WithCancel(ctx)

	if log == nil {
		log = logger.GetLogger()
	}

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan UrlTask, numWorkers*2),
		resultQueue: make(chan TaskResult, numWorkers),
		ctx:         poolCtx,
		cancel:      cancel,
		processor:   processor,
		logger:      log,
	}
}

// Start launches all workers
func (wp *WorkerPool) Start() {
	wp.logger.InfoWithFields("starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the job queue, waits for all in-flight tasks to finish, and
// closes the result queue. The pool drains fully: results already produced
// remain consumable after Stop returns.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	wp.logger.Info("worker pool stopped")
}

// Abort cancels the pool context so in-flight tasks wind down early.
// Used when a fatal error makes further work pointless.
func (wp *WorkerPool) Abort() {
	wp.cancel()
}

// Submit adds a task to the queue
func (wp *WorkerPool) Submit(task UrlTask) error {
	select {
	case wp.jobQueue <- task:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Results returns the channel of task outcomes
func (wp *WorkerPool) Results() <-chan TaskResult {
	return wp.resultQueue
}

// worker is the main worker loop
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	wp.logger.DebugWithFields("worker started", map[string]interface{}{
		"worker_id": id,
	})

	for task := range wp.jobQueue {
		select {
		case <-wp.ctx.Done():
			wp.logger.DebugWithFields("worker stopping, context cancelled", map[string]interface{}{
				"worker_id": id,
			})
			return
		default:
		}

		result := wp.processor.Process(wp.ctx, task)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}
