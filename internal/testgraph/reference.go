package testgraph

import "github.com/rpi-parallel/distmaxflow/internal/loader"

// MaxFlow computes source-to-sink max flow with BFS augmenting paths
// (Edmonds-Karp) directly over the adjacency lists loader.Load produces,
// an independent reference answer to compare the engine's result with.
// This is a plain Go implementation rather than a call into gonum's
// graph/flow package: that package's only exported routine, GomoryHuTree,
// builds an all-pairs min-cut tree for undirected graphs and has no
// directed source-to-sink entry point, so it has nothing for this check to
// call (see DESIGN.md).
func MaxFlow(g *loader.Graph, source, sink uint64) int32 {
	n := g.NumVertices
	residual := make([]map[uint64]int32, n)
	for i := range residual {
		residual[i] = make(map[uint64]int32)
	}
	for u, edges := range g.OutEdges {
		for _, e := range edges {
			if uint64(u) == e.Dest {
				continue
			}
			residual[u][e.Dest] += e.Capacity
			if _, ok := residual[e.Dest][uint64(u)]; !ok {
				residual[e.Dest][uint64(u)] = 0
			}
		}
	}

	var total int32
	for {
		parent := make([]int64, n)
		for i := range parent {
			parent[i] = -1
		}
		parent[source] = int64(source)
		queue := []uint64{source}
		for len(queue) > 0 && parent[sink] == -1 {
			u := queue[0]
			queue = queue[1:]
			for v, c := range residual[u] {
				if c > 0 && parent[v] == -1 {
					parent[v] = int64(u)
					queue = append(queue, v)
				}
			}
		}
		if parent[sink] == -1 {
			break
		}

		bottleneck := int32(1<<31 - 1)
		for v := sink; v != source; {
			u := uint64(parent[v])
			if residual[u][v] < bottleneck {
				bottleneck = residual[u][v]
			}
			v = u
		}
		for v := sink; v != source; {
			u := uint64(parent[v])
			residual[u][v] -= bottleneck
			residual[v][u] += bottleneck
			v = u
		}
		total += bottleneck
	}
	return total
}
