// Package partition assigns each vertex of a loaded graph to one of P
// ranks, the Go-native stand-in for the external partitioning library
// (Zoltan/ParMETIS in original_source) spec.md §6 treats as an opaque
// collaborator. Source mirrors Zoltan's query-function registration
// model: number of objects, per-object degree, and a neighbor list
// carrying each neighbor's (not-yet-assigned) global id.
package partition

import "context"

// Neighbor is one adjacency of a vertex, in either edge direction, used
// only to steer partitioning toward locality; it carries no capacity.
type Neighbor struct {
	GlobalID uint64
}

// Source exposes the graph to a Partitioner without requiring the
// partitioner to know how the graph is stored.
type Source interface {
	NumObjects() int
	GlobalID(i int) uint64
	Degree(i int) int
	Neighbors(i int) []Neighbor
}

// Plan is the one-shot partition-and-migrate result: RankOf maps a
// global id to the rank that will own it.
type Plan struct {
	RankOf map[uint64]int32
}

// Partitioner computes a Plan for a fixed number of ranks. Implementations
// may use ctx to bound the time spent on speculative trial runs.
type Partitioner interface {
	Partition(ctx context.Context, src Source, numRanks int) (Plan, error)
}
