// Package graphstore holds the per-rank in-memory partition: the vertex
// list, the label slots used by the labeling search, and the global-id
// bookkeeping needed to route a message to the rank that owns a vertex.
package graphstore

import (
	"sync/atomic"
)

// GlobalID identifies a vertex across the whole graph, stable for the
// program's lifetime once assigned by the loader.
type GlobalID = uint64

// NoRank is used where a rank is not yet known (e.g. a label's previous
// rank, before any label has been set).
const NoRank int32 = -1

// NoLocal is the sentinel local index meaning "not found" or "not
// applicable", mirroring the original's (local_id)-1.
const NoLocal uint32 = ^uint32(0)

// OutEdge is a forward edge this vertex owns. Flow is mutated only by the
// backtracking protocol (§4.6); everywhere else it is read-only.
type OutEdge struct {
	DestGlobalID GlobalID
	DestRank     int32
	DestLocal    uint32 // valid only when DestRank == owning rank
	Capacity     int32
	Flow         int32
}

// InEdge is the reverse of some other vertex's OutEdge. It carries no flow
// of its own -- flow lives on the forward edge at the source end.
type InEdge struct {
	SourceGlobalID GlobalID
	SourceRank     int32
	SourceLocal    uint32
}

// Vertex is a single locally-owned node: its global id plus its two edge
// lists. Vertices are created once at load time and never deleted.
type Vertex struct {
	GlobalID GlobalID
	OutEdges []OutEdge
	InEdges  []InEdge
}

// Label is the per-vertex annotation the labeling search produces: a
// residual-bottleneck value and a back-pointer to the predecessor on the
// candidate augmenting path. The zero value means "empty". A label is
// written at most once per pass: TrySet wins the race via CAS on Value and
// only the winner may fill the back-pointer fields, so nothing else reads
// them until after the pass barrier that follows step 2.
type Label struct {
	Value          int32 // atomic; 0 means empty
	PrevGlobalID   GlobalID
	PrevRank       int32
	PrevLocalIndex uint32
}

// TrySet attempts to transition this label from empty to value via CAS.
// Returns true if this call won the race and the back-pointer fields have
// been filled in; false means some other caller already set this label
// first pass and the caller should do nothing further.
func (l *Label) TrySet(value int32, prevGlobalID GlobalID, prevRank int32, prevLocal uint32) bool {
	if value == 0 {
		panic("label value must be non-zero")
	}
	if !atomic.CompareAndSwapInt32(&l.Value, 0, value) {
		return false
	}
	l.PrevGlobalID = prevGlobalID
	l.PrevRank = prevRank
	l.PrevLocalIndex = prevLocal
	return true
}

// Peek returns the current label value without attempting to set it.
func (l *Label) Peek() int32 {
	return atomic.LoadInt32(&l.Value)
}

// Reset wipes the label back to empty. Only safe between passes, after the
// inter-pass barrier, with no other goroutine touching it concurrently.
func (l *Label) Reset() {
	l.Value = 0
	l.PrevGlobalID = 0
	l.PrevRank = NoRank
	l.PrevLocalIndex = NoLocal
}

// Store is the partition owned by one rank: a dense, locally-indexed
// vertex array, a parallel label array, and the global-id bookkeeping
// needed to route cross-rank messages.
type Store struct {
	Rank           int32
	Vertices       []Vertex
	Labels         []Label
	GlobalToLocal  map[GlobalID]uint32 // bijective onto [0, len(Vertices)) for local vertices
	GlobalIDToRank []int32             // identical on every rank after bootstrap; indexed by GlobalID
}

// NewStore allocates a store for the given locally-owned vertices.
// globalIDToRank must already be the full, bootstrapped rank table.
func NewStore(rank int32, vertices []Vertex, globalIDToRank []int32) *Store {
	s := &Store{
		Rank:           rank,
		Vertices:       vertices,
		Labels:         make([]Label, len(vertices)),
		GlobalToLocal:  make(map[GlobalID]uint32, len(vertices)),
		GlobalIDToRank: globalIDToRank,
	}
	for i := range vertices {
		s.GlobalToLocal[vertices[i].GlobalID] = uint32(i)
	}
	return s
}

// Lookup maps a global id to this rank's local index, if owned locally.
func (s *Store) Lookup(id GlobalID) (uint32, bool) {
	idx, ok := s.GlobalToLocal[id]
	return idx, ok
}

// RankOf returns the owning rank of a global id, using the bootstrapped
// rank table (valid for every vertex in the graph, not just local ones).
func (s *Store) RankOf(id GlobalID) int32 {
	return s.GlobalIDToRank[id]
}

// ResetLabels wipes every label slot; called once at the start of each
// pass (§4.7 step 1), before any worker can observe the old values.
func (s *Store) ResetLabels() {
	for i := range s.Labels {
		s.Labels[i].Reset()
	}
}
