// Package testgraph builds random capacitated graphs and computes a
// reference max flow for them, grounded on cmd/lp-sssp/rand-graph.go's use of
// gonum.org/v1/gonum/graph/simple and math/rand to assemble a directed
// graph before handing edges off to this repository's own loader.Graph
// shape.
package testgraph

import (
	"math/rand"

	"gonum.org/v1/gonum/graph/simple"

	"github.com/rpi-parallel/distmaxflow/internal/loader"
)

// Random builds an n-vertex graph with roughly edgeCount distinct directed
// edges, capacities drawn uniformly from [1, maxCapacity], vertex 0 as the
// intended source and n-1 as the intended sink. Self-loops and duplicate
// edges are skipped during generation rather than filtered afterward.
func Random(n, edgeCount int, maxCapacity int32, seed int64) *loader.Graph {
	rng := rand.New(rand.NewSource(seed))
	g := simple.NewWeightedDirectedGraph(0, 0)
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(int64(i)))
	}

	maxPossible := n * (n - 1)
	if edgeCount > maxPossible {
		edgeCount = maxPossible
	}
	for added := 0; added < edgeCount; {
		u, v := int64(rng.Intn(n)), int64(rng.Intn(n))
		if u == v || g.HasEdgeFromTo(u, v) {
			continue
		}
		c := int32(1 + rng.Intn(int(maxCapacity)))
		g.SetWeightedEdge(g.NewWeightedEdge(g.Node(u), g.Node(v), float64(c)))
		added++
	}

	out := make([][]loader.Edge, n)
	edges := g.WeightedEdges()
	for edges.Next() {
		e := edges.WeightedEdge()
		from := e.From().ID()
		out[from] = append(out[from], loader.Edge{Dest: uint64(e.To().ID()), Capacity: int32(e.Weight())})
	}

	numEdges := 0
	for _, es := range out {
		numEdges += len(es)
	}
	return &loader.Graph{NumVertices: n, NumEdges: numEdges, OutEdges: out}
}
