// Package request owns the service-request lifecycle.
//
// A request moves through a small state machine:
//
//	pending → serving → completed
//	pending → cancelled
//	serving → cancelled
//
// pending is initial; completed and cancelled are terminal. Every
// transition is a database-level compare-and-set keyed on the source
// state, so duplicate or racing transition attempts reject cleanly
// with a conflict instead of double-applying.
//
// The Manager wraps the repository with guest auto-resolution, timing
// metrics on completion, transition history records, and fire-and-forget
// hooks for notification fan-out and UI broadcast. Hook failures never
// roll back or block a transition.
package request
