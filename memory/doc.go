// Package memory implements the three memory kinds an agent can be configured
// with: the ordered conversation log, similarity-retrieved vector memory and
// the per-thread session scratchpad. The Manager fronts all three behind one
// facade, serializes appends per thread and assembles provider context under a
// token budget.
//
// The in-memory stores below are process local and suited for tests and
// single-node deployments; swap in database-backed implementations of the same
// interfaces for production retrieval.
package memory
