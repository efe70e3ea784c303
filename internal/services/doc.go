// Package services defines shared utilities consumed by the conversion
// orchestrator, the artifact catalog, and the HTTP plumbing beneath them.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, job IDs, and surface names for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper so callers can classify a
//     failure (validation vs request vs artifact retrieval) with errors.Is.
//
// Keep this package free of HTTP and domain types so every other package can
// depend on it without cycles.
package services
