// Package ratelimit gates all outbound calls to the archive's services.
//
// A single Limiter instance is shared by every component that issues HTTP
// requests (index queries and snapshot fetches alike), so the configured
// budget holds across the whole worker pool.
//
// Two implementations are provided:
//
// Sliding Window (default):
//   - Tracks admission times within a moving window
//   - Guarantees no more than N calls in any T-length interval
//
// Token Bucket:
//   - Fixed capacity bucket refilled once per period
//   - Allows short bursts at window boundaries
//
// All limiters implement the Limiter interface:
//   - Allow() bool - admit a call if the budget permits right now
//   - Wait() - block until a call is admitted
//   - Reset() - clear the limiter state
//
// Usage:
//
//	// 3 calls per second, shared by all workers
//	limiter := ratelimit.NewSlidingWindow(3, time.Second)
//
//	limiter.Wait()
//	// issue the HTTP request
package ratelimit
