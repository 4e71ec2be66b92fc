// Package logging provides structured logging for Steward Core.
//
// It wraps log/slog with configuration-driven level, format and output
// selection, plus default service/version attributes on every record.
// Domain packages do not import this package directly; they declare a
// minimal Logger interface and receive this implementation at wiring time.
package logging
