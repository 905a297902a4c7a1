package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/rpi-parallel/distmaxflow/internal/bootstrap"
	"github.com/rpi-parallel/distmaxflow/internal/graphstore"
	"github.com/rpi-parallel/distmaxflow/internal/loader"
	"github.com/rpi-parallel/distmaxflow/internal/partition"
	"github.com/rpi-parallel/distmaxflow/internal/transport"
)

// runGraph partitions g per plan, builds one Rank per rank, and runs them
// to completion, returning rank 0's reported flow value plus every rank's
// store (for property checks that need to inspect edge flows directly).
func runGraph(t *testing.T, g *loader.Graph, plan partition.Plan, numRanks, threadCount int) (int32, []*graphstore.Store) {
	t.Helper()
	vertices, rankTable, err := bootstrap.BuildVertices(g, plan, numRanks)
	require.NoError(t, err)

	transports := transport.NewCluster(int32(numRanks), 0)
	cfg := Config{
		ThreadCount:    threadCount,
		SourceGlobalID: 0,
		SinkGlobalID:   graphstore.GlobalID(g.NumVertices - 1),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stores := make([]*graphstore.Store, numRanks)
	group, gctx := errgroup.WithContext(ctx)
	results := make([]Result, numRanks)
	for r := 0; r < numRanks; r++ {
		r := r
		group.Go(func() error {
			store := graphstore.NewStore(int32(r), vertices[r], rankTable)
			stores[r] = store
			rank := NewRank(cfg, store, transports[r], zerolog.Nop())
			res, err := rank.Run(gctx)
			if err != nil {
				return err
			}
			results[r] = res
			return nil
		})
	}
	require.NoError(t, group.Wait())
	return results[0].FlowValue, stores
}

func singleEdge() *loader.Graph {
	return &loader.Graph{
		NumVertices: 2,
		OutEdges:    [][]loader.Edge{{{Dest: 1, Capacity: 5}}, nil},
	}
}

func diamondGraph() *loader.Graph {
	return &loader.Graph{
		NumVertices: 4,
		OutEdges: [][]loader.Edge{
			{{Dest: 1, Capacity: 3}, {Dest: 2, Capacity: 2}},
			{{Dest: 3, Capacity: 2}},
			{{Dest: 3, Capacity: 3}},
			nil,
		},
	}
}

func clrsTrapGraph() *loader.Graph {
	return &loader.Graph{
		NumVertices: 4,
		OutEdges: [][]loader.Edge{
			{{Dest: 1, Capacity: 1000}, {Dest: 2, Capacity: 1000}},
			{{Dest: 2, Capacity: 1}, {Dest: 3, Capacity: 1000}},
			{{Dest: 3, Capacity: 1000}},
			nil,
		},
	}
}

func disconnectedSinkGraph() *loader.Graph {
	return &loader.Graph{
		NumVertices: 3,
		OutEdges:    [][]loader.Edge{{{Dest: 1, Capacity: 10}}, nil, nil},
	}
}

func chainGraph() *loader.Graph {
	edges := make([][]loader.Edge, 6)
	for i := 0; i < 5; i++ {
		edges[i] = []loader.Edge{{Dest: uint64(i + 1), Capacity: 7}}
	}
	return &loader.Graph{NumVertices: 6, OutEdges: edges}
}

func selfLoopGraph() *loader.Graph {
	return &loader.Graph{
		NumVertices: 2,
		OutEdges:    [][]loader.Edge{{{Dest: 0, Capacity: 100}, {Dest: 1, Capacity: 3}}, nil},
	}
}

func TestScenarioSingleEdge(t *testing.T) {
	g := singleEdge()
	flow, _ := runGraph(t, g, bootstrap.SingleRankPlan(g), 1, 2)
	require.Equal(t, int32(5), flow)
}

func TestScenarioDiamond(t *testing.T) {
	g := diamondGraph()
	flow, _ := runGraph(t, g, bootstrap.SingleRankPlan(g), 1, 3)
	require.Equal(t, int32(4), flow)
}

func TestScenarioCLRSAugmentingPathTrap(t *testing.T) {
	g := clrsTrapGraph()
	flow, _ := runGraph(t, g, bootstrap.SingleRankPlan(g), 1, 3)
	require.Equal(t, int32(2000), flow)
}

func TestScenarioDisconnectedSink(t *testing.T) {
	g := disconnectedSinkGraph()
	flow, _ := runGraph(t, g, bootstrap.SingleRankPlan(g), 1, 2)
	require.Equal(t, int32(0), flow)
}

func TestScenarioParallelChainCrossRank(t *testing.T) {
	g := chainGraph()
	plan := partition.Plan{RankOf: map[uint64]int32{0: 0, 1: 1, 2: 0, 3: 1, 4: 0, 5: 1}}
	flow, _ := runGraph(t, g, plan, 2, 2)
	require.Equal(t, int32(7), flow)
}

func TestScenarioSelfLoopIgnored(t *testing.T) {
	g := selfLoopGraph()
	flow, _ := runGraph(t, g, bootstrap.SingleRankPlan(g), 1, 2)
	require.Equal(t, int32(3), flow)
}

func TestCapacityInvariant(t *testing.T) {
	g := diamondGraph()
	_, stores := runGraph(t, g, bootstrap.SingleRankPlan(g), 1, 3)
	for _, v := range stores[0].Vertices {
		for _, e := range v.OutEdges {
			require.GreaterOrEqual(t, e.Flow, int32(0))
			require.LessOrEqual(t, e.Flow, e.Capacity)
		}
	}
}

func TestConservationInvariant(t *testing.T) {
	g := diamondGraph()
	_, stores := runGraph(t, g, bootstrap.SingleRankPlan(g), 1, 3)
	store := stores[0]
	for idx, v := range store.Vertices {
		if v.GlobalID == 0 || v.GlobalID == uint64(g.NumVertices-1) {
			continue
		}
		var inflow, outflow int32
		for _, e := range v.OutEdges {
			outflow += e.Flow
		}
		for _, ie := range v.InEdges {
			for _, e := range store.Vertices[ie.SourceLocal].OutEdges {
				if e.DestGlobalID == v.GlobalID {
					inflow += e.Flow
				}
			}
		}
		require.Equalf(t, inflow, outflow, "vertex %d (local %d) inflow != outflow", v.GlobalID, idx)
	}
}

func TestDeterminismAcrossRankCounts(t *testing.T) {
	g := chainGraph()
	plans := map[int]partition.Plan{
		1: bootstrap.SingleRankPlan(g),
		2: {RankOf: map[uint64]int32{0: 0, 1: 1, 2: 0, 3: 1, 4: 0, 5: 1}},
		3: {RankOf: map[uint64]int32{0: 0, 1: 1, 2: 2, 3: 0, 4: 1, 5: 2}},
	}
	for numRanks, plan := range plans {
		flow, _ := runGraph(t, g, plan, numRanks, 2)
		require.Equalf(t, int32(7), flow, "numRanks=%d", numRanks)
	}
}

func TestMonotonicityInSourceEdgeCapacity(t *testing.T) {
	low := &loader.Graph{
		NumVertices: 3,
		OutEdges:    [][]loader.Edge{{{Dest: 1, Capacity: 2}}, {{Dest: 2, Capacity: 10}}, nil},
	}
	high := &loader.Graph{
		NumVertices: 3,
		OutEdges:    [][]loader.Edge{{{Dest: 1, Capacity: 6}}, {{Dest: 2, Capacity: 10}}, nil},
	}
	lowFlow, _ := runGraph(t, low, bootstrap.SingleRankPlan(low), 1, 2)
	highFlow, _ := runGraph(t, high, bootstrap.SingleRankPlan(high), 1, 2)
	require.GreaterOrEqual(t, highFlow, lowFlow)
}

func TestTerminationOnGraphWithNoEdges(t *testing.T) {
	g := &loader.Graph{NumVertices: 2, OutEdges: [][]loader.Edge{nil, nil}}
	flow, _ := runGraph(t, g, bootstrap.SingleRankPlan(g), 1, 2)
	require.Equal(t, int32(0), flow)
}
