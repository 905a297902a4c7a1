package equeue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushPopFIFO(t *testing.T) {
	q := New()
	for i := uint32(0); i < 5; i++ {
		q.Push(Entry{LocalIndex: i})
	}
	for i := uint32(0); i < 5; i++ {
		e, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, i, e.LocalIndex)
	}
	_, ok := q.Pop()
	require.False(t, ok)
}

func TestBatchMergeInto(t *testing.T) {
	q := New()
	q.Push(Entry{LocalIndex: 0})

	var b Batch
	require.True(t, b.Empty())
	b.Add(Entry{LocalIndex: 1})
	b.Add(Entry{LocalIndex: 2})
	require.False(t, b.Empty())
	b.MergeInto(q)
	require.True(t, b.Empty())

	for i := uint32(0); i < 3; i++ {
		e, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, i, e.LocalIndex)
	}
}

func TestConcurrentPushPop(t *testing.T) {
	q := New()
	const n = 2000
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			q.Push(Entry{LocalIndex: uint32(i)})
		}
	}()
	seen := 0
	go func() {
		defer wg.Done()
		for seen < n {
			if _, ok := q.Pop(); ok {
				seen++
			}
		}
	}()
	wg.Wait()
	require.Equal(t, n, seen)
}
