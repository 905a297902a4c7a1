package partition

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Greedy is a degree-weighted streaming greedy balancer: it visits every
// vertex once, assigning it to the rank already holding the most of its
// neighbors (for locality), breaking ties toward the least-loaded rank.
// It runs several randomly-ordered trials speculatively and keeps the one
// with the smallest edge cut, bounding how many trials run at once with a
// semaphore rather than firing all of them unbounded.
type Greedy struct {
	// Trials is how many independent visit orders to try. Zero means 4.
	Trials int
	// MaxConcurrentTrials bounds in-flight trial goroutines. Zero means 2.
	MaxConcurrentTrials int64
}

func (g *Greedy) trialCount() int {
	if g.Trials <= 0 {
		return 4
	}
	return g.Trials
}

func (g *Greedy) concurrency() int64 {
	if g.MaxConcurrentTrials <= 0 {
		return 2
	}
	return g.MaxConcurrentTrials
}

// Partition implements Partitioner.
func (g *Greedy) Partition(ctx context.Context, src Source, numRanks int) (Plan, error) {
	if numRanks <= 0 {
		return Plan{}, fmt.Errorf("partition: numRanks must be positive, got %d", numRanks)
	}
	n := src.NumObjects()
	if n == 0 {
		return Plan{RankOf: map[uint64]int32{}}, nil
	}

	idxByID := make(map[uint64]int, n)
	for i := 0; i < n; i++ {
		idxByID[src.GlobalID(i)] = i
	}

	sem := semaphore.NewWeighted(g.concurrency())
	group, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	var best []int32
	bestCut := -1

	for t := 0; t < g.trialCount(); t++ {
		seed := int64(t)
		group.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			rankOf, cut := g.runTrial(src, idxByID, n, numRanks, seed)

			mu.Lock()
			if bestCut < 0 || cut < bestCut {
				bestCut = cut
				best = rankOf
			}
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return Plan{}, err
	}

	plan := Plan{RankOf: make(map[uint64]int32, n)}
	for i := 0; i < n; i++ {
		plan.RankOf[src.GlobalID(i)] = best[i]
	}
	return plan, nil
}

func (g *Greedy) runTrial(src Source, idxByID map[uint64]int, n, numRanks int, seed int64) ([]int32, int) {
	rankOf := make([]int32, n)
	for i := range rankOf {
		rankOf[i] = -1
	}
	load := make([]int, numRanks)

	rng := rand.New(rand.NewSource(seed))
	order := rng.Perm(n)

	for _, i := range order {
		neighbors := src.Neighbors(i)
		neighborLoad := make([]int, numRanks)
		for _, nb := range neighbors {
			if j, ok := idxByID[nb.GlobalID]; ok && rankOf[j] >= 0 {
				neighborLoad[rankOf[j]]++
			}
		}
		best := int32(-1)
		bestScore := -1
		for r := 0; r < numRanks; r++ {
			score := neighborLoad[r]*int(src.Degree(i)+1) - load[r]
			if best < 0 || score > bestScore {
				bestScore = score
				best = int32(r)
			}
		}
		rankOf[i] = best
		load[best]++
	}

	cut := 0
	for i := 0; i < n; i++ {
		for _, nb := range src.Neighbors(i) {
			if j, ok := idxByID[nb.GlobalID]; ok && rankOf[j] != rankOf[i] {
				cut++
			}
		}
	}
	return rankOf, cut
}
