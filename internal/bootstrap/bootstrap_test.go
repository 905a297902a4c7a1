package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpi-parallel/distmaxflow/internal/loader"
	"github.com/rpi-parallel/distmaxflow/internal/partition"
)

func diamond() *loader.Graph {
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

func TestBuildVerticesSingleRank(t *testing.T) {
	g := diamond()
	plan := SingleRankPlan(g)
	vertices, rankTable, err := BuildVertices(g, plan, 1)
	require.NoError(t, err)
	require.Len(t, vertices, 1)
	require.Len(t, vertices[0], 4)
	require.Equal(t, []int32{0, 0, 0, 0}, rankTable)

	total := 0
	for _, v := range vertices[0] {
		total += len(v.OutEdges)
	}
	require.Equal(t, 4, total)
}

func TestBuildVerticesTwoRanksCrossReference(t *testing.T) {
	g := diamond()
	plan := partition.Plan{RankOf: map[uint64]int32{0: 0, 1: 0, 2: 1, 3: 1}}
	vertices, rankTable, err := BuildVertices(g, plan, 2)
	require.NoError(t, err)
	require.Equal(t, []int32{0, 0, 1, 1}, rankTable)

	// vertex 0 (rank 0, local 0) has an out-edge to vertex 2, owned by rank 1.
	var found bool
	for _, e := range vertices[0][0].OutEdges {
		if e.DestGlobalID == 2 {
			found = true
			require.Equal(t, int32(1), e.DestRank)
		}
	}
	require.True(t, found)

	// vertex 3 (rank 1) has in-edges from vertex 1 (rank 0) and vertex 2 (rank 1).
	v3Local := -1
	for i, v := range vertices[1] {
		if v.GlobalID == 3 {
			v3Local = i
		}
	}
	require.GreaterOrEqual(t, v3Local, 0)
	require.Len(t, vertices[1][v3Local].InEdges, 2)
}

func TestBuildVerticesRejectsIncompletePlan(t *testing.T) {
	g := diamond()
	plan := partition.Plan{RankOf: map[uint64]int32{0: 0, 1: 0, 2: 0}}
	_, _, err := BuildVertices(g, plan, 1)
	require.Error(t, err)
}
