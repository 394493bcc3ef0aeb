// Package tasks runs named background tasks on an in-process worker pool.
//
// Schedule never blocks on the work itself: it enqueues the task and
// returns. Workers retry a failing handler with exponential backoff until
// it succeeds, returns a retry.Fatal error, or runs out of attempts, so
// handlers must tolerate running more than once.
package tasks
