// Package bootstrap wires the loader, partitioner, and graphstore
// together: it adapts a loaded graph to partition.Source and turns a
// partition.Plan into the per-rank Vertex slices internal/engine consumes,
// the "Bootstrap" half of the external-collaborator plumbing spec.md §6
// describes (the CLI half lives in cmd/distmaxflow).
package bootstrap

import (
	"fmt"

	"github.com/rpi-parallel/distmaxflow/internal/graphstore"
	"github.com/rpi-parallel/distmaxflow/internal/loader"
	"github.com/rpi-parallel/distmaxflow/internal/partition"
)

// LoaderSource adapts a loaded graph to partition.Source, building the
// reverse adjacency once so Degree/Neighbors see both edge directions --
// the partitioner cares about locality, not direction.
type LoaderSource struct {
	graph   *loader.Graph
	inEdges [][]uint64
}

// NewLoaderSource builds a partition.Source over an already-loaded graph.
func NewLoaderSource(g *loader.Graph) *LoaderSource {
	in := make([][]uint64, g.NumVertices)
	for u, edges := range g.OutEdges {
		for _, e := range edges {
			in[e.Dest] = append(in[e.Dest], uint64(u))
		}
	}
	return &LoaderSource{graph: g, inEdges: in}
}

func (s *LoaderSource) NumObjects() int       { return s.graph.NumVertices }
func (s *LoaderSource) GlobalID(i int) uint64 { return uint64(i) }
func (s *LoaderSource) Degree(i int) int {
	return len(s.graph.OutEdges[i]) + len(s.inEdges[i])
}

func (s *LoaderSource) Neighbors(i int) []partition.Neighbor {
	out := s.graph.OutEdges[i]
	in := s.inEdges[i]
	nbs := make([]partition.Neighbor, 0, len(out)+len(in))
	for _, e := range out {
		nbs = append(nbs, partition.Neighbor{GlobalID: e.Dest})
	}
	for _, id := range in {
		nbs = append(nbs, partition.Neighbor{GlobalID: id})
	}
	return nbs
}

// SingleRankPlan assigns every vertex to rank 0, the trivial plan used
// when the caller asked for only one simulated peer process.
func SingleRankPlan(g *loader.Graph) partition.Plan {
	plan := partition.Plan{RankOf: make(map[uint64]int32, g.NumVertices)}
	for i := 0; i < g.NumVertices; i++ {
		plan.RankOf[uint64(i)] = 0
	}
	return plan
}

// location records where a global id ended up after partitioning: which
// rank owns it and its index within that rank's Vertices slice.
type location struct {
	rank  int32
	local uint32
}

// BuildVertices turns a loaded graph plus a partition plan into one Vertex
// slice per rank, cross-referencing every edge's far endpoint with the
// rank/local-index pair the far side uses for itself, plus the
// global_id -> rank table that rank 0 broadcasts to every rank at
// bootstrap (§6) before each rank wraps its slice in a graphstore.Store.
func BuildVertices(g *loader.Graph, plan partition.Plan, numRanks int) ([][]graphstore.Vertex, []int32, error) {
	n := g.NumVertices
	globalIDToRank := make([]int32, n)
	locations := make([]location, n)
	localCount := make([]uint32, numRanks)

	for id := 0; id < n; id++ {
		rank, ok := plan.RankOf[uint64(id)]
		if !ok {
			return nil, nil, fmt.Errorf("bootstrap: vertex %d missing from partition plan", id)
		}
		if rank < 0 || int(rank) >= numRanks {
			return nil, nil, fmt.Errorf("bootstrap: vertex %d assigned to out-of-range rank %d", id, rank)
		}
		globalIDToRank[id] = rank
		locations[id] = location{rank: rank, local: localCount[rank]}
		localCount[rank]++
	}

	vertices := make([][]graphstore.Vertex, numRanks)
	for r := 0; r < numRanks; r++ {
		vertices[r] = make([]graphstore.Vertex, localCount[r])
	}
	for id := 0; id < n; id++ {
		loc := locations[id]
		vertices[loc.rank][loc.local].GlobalID = uint64(id)
	}

	type reverseEdge struct {
		source   uint64
		capacity int32
	}
	inEdges := make([][]reverseEdge, n)
	for id, edges := range g.OutEdges {
		for _, e := range edges {
			if uint64(id) == e.Dest {
				continue // self-loops carry no reverse edge
			}
			inEdges[e.Dest] = append(inEdges[e.Dest], reverseEdge{source: uint64(id), capacity: e.Capacity})
		}
	}

	for id := 0; id < n; id++ {
		loc := locations[id]
		v := &vertices[loc.rank][loc.local]
		for _, e := range g.OutEdges[id] {
			destLoc := locations[e.Dest]
			v.OutEdges = append(v.OutEdges, graphstore.OutEdge{
				DestGlobalID: e.Dest,
				DestRank:     destLoc.rank,
				DestLocal:    destLoc.local,
				Capacity:     e.Capacity,
			})
		}
		for _, e := range inEdges[id] {
			srcLoc := locations[e.source]
			v.InEdges = append(v.InEdges, graphstore.InEdge{
				SourceGlobalID: e.source,
				SourceRank:     srcLoc.rank,
				SourceLocal:    srcLoc.local,
			})
		}
	}

	return vertices, globalIDToRank, nil
}
