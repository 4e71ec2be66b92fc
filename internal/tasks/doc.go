// Package tasks provides a bounded best-effort task runner.
//
// The ingestion pipeline must never block on side effects: telemetry
// writes, activity logging, notification fan-out. Those are submitted
// here and run on a fixed worker pool behind a bounded queue. When the
// queue is full the task is dropped and logged; a dropped side effect
// is preferable to a stalled message loop. Task failures and panics
// are captured and logged, never propagated.
package tasks
