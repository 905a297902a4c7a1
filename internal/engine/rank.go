// Package engine implements the distributed augmenting-path search: the
// labeling worker pool, message router, two-color termination detector,
// and backtracking protocol, orchestrated pass by pass. One Rank value
// runs as one simulated peer process (a goroutine tree rooted at Run),
// communicating with its peers only through a transport.Transport.
package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rpi-parallel/distmaxflow/enforce"
	"github.com/rpi-parallel/distmaxflow/internal/equeue"
	"github.com/rpi-parallel/distmaxflow/internal/graphstore"
	"github.com/rpi-parallel/distmaxflow/internal/transport"
)

// Config carries the two positional CLI arguments, generalized to a
// per-rank value: the file-level thread_count and the fixed source/sink
// ids spec.md's input format dictates (vertex 0 and vertex N-1).
type Config struct {
	ThreadCount    int
	SourceGlobalID graphstore.GlobalID
	SinkGlobalID   graphstore.GlobalID
}

// Rank is one peer process: its partition, its local work queue, its
// handle on the transport, and its logger.
type Rank struct {
	id    int32
	size  int32
	cfg   Config
	store *graphstore.Store
	queue *equeue.Queue
	tr    transport.Transport
	log   zerolog.Logger
}

// NewRank builds a Rank around an already-populated Store.
func NewRank(cfg Config, store *graphstore.Store, tr transport.Transport, logger zerolog.Logger) *Rank {
	enforce.ENFORCE(cfg.ThreadCount >= 2, "thread_count must be at least 2 (one router plus at least one worker)")
	return &Rank{
		id:    tr.Rank(),
		size:  tr.Size(),
		cfg:   cfg,
		store: store,
		queue: equeue.New(),
		tr:    tr,
		log:   logger.With().Int32("rank", tr.Rank()).Logger(),
	}
}

// Result is what rank 0 reports back to the caller once every rank has
// finished; other ranks return a Result with FlowValue 0 and Passes
// matching their own view of how many passes ran.
type Result struct {
	FlowValue int32
	Passes    int32
}

// Run executes passes until the termination detector fires, then
// aggregates the total flow at rank 0 (§4.3 TOTAL_FLOW).
func (r *Rank) Run(ctx context.Context) (Result, error) {
	var pass int32
	for {
		complete, err := r.runPass(ctx, pass)
		if err != nil {
			return Result{}, fmt.Errorf("rank %d pass %d: %w", r.id, pass, err)
		}
		if complete {
			break
		}
		pass++
	}

	flow, err := r.collectTotalFlow(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{FlowValue: flow, Passes: pass + 1}, nil
}

// runPass executes one full pass of the iteration controller (§4.7):
// setup, step 2 (labeling + routing + termination detection), and, if
// the sink was found, step 3 (backtracking). It returns true once the
// termination detector has confirmed global quiescence.
func (r *Rank) runPass(ctx context.Context, pass int32) (bool, error) {
	ps := newPassState(pass, r.id)

	r.drainStaleRingMessages(ctx)
	r.store.ResetLabels()
	for {
		if _, ok := r.queue.Pop(); !ok {
			break
		}
	}

	if srcIdx, ok := r.store.Lookup(r.cfg.SourceGlobalID); ok {
		const infinity = int32(1<<31 - 1)
		if r.store.Labels[srcIdx].TrySet(infinity, 0, graphstore.NoRank, graphstore.NoLocal) {
			r.insertEdges(srcIdx)
		}
	}

	if err := r.tr.Barrier(ctx); err != nil {
		return false, err
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return r.routeMessages(gctx, ps) })
	for w := 1; w < r.cfg.ThreadCount; w++ {
		w := w
		group.Go(func() error { return r.labelingWorker(gctx, ps, w) })
	}
	if err := group.Wait(); err != nil {
		return false, err
	}

	if err := r.tr.Barrier(ctx); err != nil {
		return false, err
	}

	if ps.algorithmComplete() {
		return true, nil
	}

	if err := r.runBacktrack(ctx, ps); err != nil {
		return false, err
	}
	return false, nil
}
