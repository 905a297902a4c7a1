package graphstore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLabelTrySetWriteOnce(t *testing.T) {
	var l Label
	require.True(t, l.TrySet(5, 42, 1, 7))
	require.Equal(t, int32(5), l.Peek())
	require.Equal(t, GlobalID(42), l.PrevGlobalID)
	require.Equal(t, int32(1), l.PrevRank)
	require.Equal(t, uint32(7), l.PrevLocalIndex)

	require.False(t, l.TrySet(9, 99, 2, 3))
	require.Equal(t, int32(5), l.Peek())
}

func TestLabelTrySetConcurrentOnlyOneWinner(t *testing.T) {
	var l Label
	var wg sync.WaitGroup
	wins := make([]bool, 100)
	for i := 0; i < 100; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins[i] = l.TrySet(int32(i+1), GlobalID(i), int32(i), uint32(i))
		}()
	}
	wg.Wait()

	count := 0
	for _, w := range wins {
		if w {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestLabelReset(t *testing.T) {
	var l Label
	l.TrySet(5, 42, 1, 7)
	l.Reset()
	require.Equal(t, int32(0), l.Peek())
	require.Equal(t, NoRank, l.PrevRank)
	require.Equal(t, NoLocal, l.PrevLocalIndex)
	require.True(t, l.TrySet(3, 1, 0, 0))
}

func TestStoreLookupAndRankOf(t *testing.T) {
	vertices := []Vertex{{GlobalID: 10}, {GlobalID: 20}, {GlobalID: 30}}
	rankTable := []int32{0, 0, 0, 1, 1, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	s := NewStore(1, vertices, rankTable)

	idx, ok := s.Lookup(20)
	require.True(t, ok)
	require.Equal(t, uint32(1), idx)

	_, ok = s.Lookup(999)
	require.False(t, ok)

	require.Equal(t, int32(1), s.RankOf(10))
}

func TestResetLabelsClearsEveryVertex(t *testing.T) {
	vertices := []Vertex{{GlobalID: 0}, {GlobalID: 1}}
	s := NewStore(0, vertices, []int32{0, 0})
	s.Labels[0].TrySet(1, 0, 0, 0)
	s.Labels[1].TrySet(2, 0, 0, 0)

	s.ResetLabels()

	require.Equal(t, int32(0), s.Labels[0].Peek())
	require.Equal(t, int32(0), s.Labels[1].Peek())
}
