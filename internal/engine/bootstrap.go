package engine

import (
	"context"

	"github.com/rpi-parallel/distmaxflow/internal/transport"
)

// drainStaleRingMessages discards every message already waiting for this
// rank (tokens and SINK_FOUND/SOURCE_FOUND markers included) before the
// next pass starts. Step 3's waitForTag and back-pointer walk do not check
// a message's pass, so anything left over is flushed here; spec.md §9's
// open question about step-2/step-3 draining is resolved conservatively
// by draining once, up front, rather than racing a drain against the
// inter-pass barrier.
func (r *Rank) drainStaleRingMessages(ctx context.Context) {
	for {
		_, ok, err := r.tr.TryRecv(ctx)
		if err != nil || !ok {
			return
		}
	}
}

// collectTotalFlow sums the flow leaving the source and delivers it to
// rank 0 via a TOTAL_FLOW message (§4.3), mirroring the original's
// end-of-run aggregation.
func (r *Rank) collectTotalFlow(ctx context.Context) (int32, error) {
	localTotal := int32(-1)
	if srcIdx, ok := r.store.Lookup(r.cfg.SourceGlobalID); ok {
		localTotal = 0
		for i := range r.store.Vertices[srcIdx].OutEdges {
			localTotal += r.store.Vertices[srcIdx].OutEdges[i].Flow
		}
	}

	if r.id != 0 {
		if localTotal != -1 {
			if err := r.tr.Send(ctx, 0, transport.Message{Tag: transport.TotalFlow, Value: localTotal}); err != nil {
				return 0, err
			}
		}
		return 0, nil
	}

	if localTotal != -1 {
		return localTotal, nil
	}
	for {
		msg, err := r.tr.Recv(ctx)
		if err != nil {
			return 0, err
		}
		if msg.Tag == transport.TotalFlow {
			return msg.Value, nil
		}
	}
}
