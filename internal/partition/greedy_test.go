package partition

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memSource struct {
	ids       []uint64
	neighbors [][]Neighbor
}

func (m *memSource) NumObjects() int         { return len(m.ids) }
func (m *memSource) GlobalID(i int) uint64   { return m.ids[i] }
func (m *memSource) Degree(i int) int        { return len(m.neighbors[i]) }
func (m *memSource) Neighbors(i int) []Neighbor { return m.neighbors[i] }

func chainSource(n int) *memSource {
	s := &memSource{ids: make([]uint64, n), neighbors: make([][]Neighbor, n)}
	for i := 0; i < n; i++ {
		s.ids[i] = uint64(i)
	}
	for i := 0; i < n; i++ {
		var nbs []Neighbor
		if i > 0 {
			nbs = append(nbs, Neighbor{GlobalID: uint64(i - 1)})
		}
		if i < n-1 {
			nbs = append(nbs, Neighbor{GlobalID: uint64(i + 1)})
		}
		s.neighbors[i] = nbs
	}
	return s
}

func TestGreedyPartitionCoversAllVertices(t *testing.T) {
	src := chainSource(20)
	g := &Greedy{Trials: 3, MaxConcurrentTrials: 2}
	plan, err := g.Partition(context.Background(), src, 4)
	require.NoError(t, err)
	require.Len(t, plan.RankOf, 20)
	for id, r := range plan.RankOf {
		require.GreaterOrEqual(t, r, int32(0))
		require.Less(t, r, int32(4))
		_ = id
	}
}

func TestGreedyPartitionRejectsZeroRanks(t *testing.T) {
	src := chainSource(4)
	g := &Greedy{}
	_, err := g.Partition(context.Background(), src, 0)
	require.Error(t, err)
}

func TestGreedyPartitionSingleRank(t *testing.T) {
	src := chainSource(10)
	g := &Greedy{Trials: 1, MaxConcurrentTrials: 1}
	plan, err := g.Partition(context.Background(), src, 1)
	require.NoError(t, err)
	for _, r := range plan.RankOf {
		require.Equal(t, int32(0), r)
	}
}
