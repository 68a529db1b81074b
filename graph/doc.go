// Package graph defines the immutable workflow graph: typed steps
// (nodes) and directed, port-labeled connections (edges). The engine
// reads graphs, it never mutates them; per-run state lives in the
// workflow package's run context.
package graph
