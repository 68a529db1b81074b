// Package types holds the shared data structures of the weft engine:
// the error taxonomy, run results, log entries, metrics, and token
// accounting. It has no dependencies on the engine packages so that
// hosts can consume results without importing the engine.
package types
