// Package workflow is the weft execution engine: it schedules a
// dependency-ordered graph of typed steps into concurrent batches,
// routes named port values between steps, dispatches each step to a
// registered handler, and accumulates results, logs, and metrics in a
// per-run context with fail-fast error semantics.
package workflow
