// Package logging assembles structured slog loggers used across mediaconv.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so orchestrator and catalog code
// can tag log lines with request IDs, job IDs, and surfaces. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
