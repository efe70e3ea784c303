// Package conversion drives one-shot conversion jobs (text to speech and
// video to extracted audio) from submission to a locally held artifact.
//
// Each conversion surface owns an Orchestrator. A job moves through
// idle → submitting → awaiting_artifact → ready, or ends in failed. The
// submission call only returns a reference to the produced audio; the
// Orchestrator then performs a second authenticated fetch and wraps the bytes
// in an artifact.Handle, releasing the handle of any superseded job.
//
// Only one job is in flight per surface. A second Submit while one is active
// is rejected with services.ErrBusy. Completions are applied only when their
// job token still matches the surface's current token, so a response that
// arrives after Clear or Close never overwrites newer state.
package conversion
