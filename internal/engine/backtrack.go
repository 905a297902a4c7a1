package engine

import (
	"context"

	"github.com/rpi-parallel/distmaxflow/internal/graphstore"
	"github.com/rpi-parallel/distmaxflow/internal/transport"
)

// runBacktrack is step 3 (§4.6): a ring handshake that lets every rank
// agree the sink-found marker has propagated cleanly, then the actual
// back-pointer walk, then a SOURCE_FOUND marker confirming every rank
// has left the backtracking phase.
func (r *Rank) runBacktrack(ctx context.Context, ps *passState) error {
	btIdx, sinkValue, claimed := ps.step3Claimed()
	foundHere := claimed && btIdx != graphstore.NoLocal

	if r.size > 1 {
		needed := 1
		if foundHere {
			needed = 2
		}
		next := (r.id + 1) % r.size
		if !foundHere {
			if err := r.waitForTag(ctx, transport.SinkFound); err != nil {
				return err
			}
		}
		for ; needed > 0; needed-- {
			if err := r.tr.Send(ctx, next, transport.Message{Tag: transport.SinkFound, Pass: ps.pass}); err != nil {
				return err
			}
			if err := r.waitForTag(ctx, transport.SinkFound); err != nil {
				return err
			}
		}
		if !foundHere {
			if err := r.tr.Send(ctx, next, transport.Message{Tag: transport.SinkFound, Pass: ps.pass}); err != nil {
				return err
			}
		}
	}

	if err := r.tr.Barrier(ctx); err != nil {
		return err
	}

	waitForSourceFound, err := r.walkBackPointers(ctx, ps, btIdx, sinkValue)
	if err != nil {
		return err
	}

	if r.size > 1 {
		next := (r.id + 1) % r.size
		if err := r.tr.Send(ctx, next, transport.Message{Tag: transport.SourceFound, Pass: ps.pass}); err != nil {
			return err
		}
	}
	if waitForSourceFound {
		if err := r.waitForTag(ctx, transport.SourceFound); err != nil {
			return err
		}
	}

	return r.tr.Barrier(ctx)
}

func (r *Rank) walkBackPointers(ctx context.Context, ps *passState, btIdx uint32, delta int32) (waitForSourceFound bool, err error) {
	for {
		if btIdx == graphstore.NoLocal {
			msg, err := r.tr.Recv(ctx)
			if err != nil {
				return false, err
			}
			switch msg.Tag {
			case transport.SourceFound:
				return false, nil
			case transport.UpdateFlow:
				vertIdx, ok := r.store.Lookup(msg.ReceiverGlobalID)
				if ok {
					r.addFlowOnEdge(vertIdx, msg.SenderGlobalID, msg.Value)
				}
				delta = msg.Value
				btIdx = vertIdx
				if !ok {
					btIdx = graphstore.NoLocal
				}
			case transport.SetToLabel, transport.ComputeFromLabel, transport.TokenWhite, transport.TokenRed:
				r.log.Debug().Str("tag", msg.Tag.String()).Msg("discarding step-2 message received during step 3")
			default:
				r.log.Warn().Str("tag", msg.Tag.String()).Msg("unexpected tag during step 3")
			}
			continue
		}

		label := &r.store.Labels[btIdx]
		btGlobalID := r.store.Vertices[btIdx].GlobalID
		if btGlobalID == r.cfg.SourceGlobalID {
			return r.size > 1, nil
		}

		if label.Value > 0 && label.PrevRank == r.id {
			r.addFlowOnEdge(label.PrevLocalIndex, btGlobalID, delta)
		} else if label.Value < 0 {
			r.addFlowOnEdge(btIdx, label.PrevGlobalID, -delta)
		}

		if label.PrevRank != r.id {
			if err := r.tr.Send(ctx, label.PrevRank, transport.Message{
				Tag:              transport.UpdateFlow,
				SenderGlobalID:   btGlobalID,
				ReceiverGlobalID: label.PrevGlobalID,
				Value:            delta,
				Pass:             ps.pass,
			}); err != nil {
				return false, err
			}
			btIdx = graphstore.NoLocal
			continue
		}

		btIdx = label.PrevLocalIndex
	}
}

// addFlowOnEdge adds delta to the out-edge from fromIdx toward destGlobalID,
// a no-op if no such edge exists (the remote continuation carrying a
// negative-label delta has nothing to apply).
func (r *Rank) addFlowOnEdge(fromIdx uint32, destGlobalID graphstore.GlobalID, delta int32) {
	for i := range r.store.Vertices[fromIdx].OutEdges {
		e := &r.store.Vertices[fromIdx].OutEdges[i]
		if e.DestGlobalID == destGlobalID {
			e.Flow += delta
			return
		}
	}
}

// waitForTag blocks until a message with the given tag arrives, silently
// discarding anything else -- the wait_and_flush pattern from
// original_source, needed because ring markers race with straggling
// step-2 messages on slow links.
func (r *Rank) waitForTag(ctx context.Context, want transport.Tag) error {
	for {
		msg, err := r.tr.Recv(ctx)
		if err != nil {
			return err
		}
		if msg.Tag == want {
			return nil
		}
		r.log.Debug().Str("tag", msg.Tag.String()).Msg("discarding non-matching message while waiting for ring marker")
	}
}
