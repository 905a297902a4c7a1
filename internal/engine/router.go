package engine

import (
	"context"

	"github.com/rpi-parallel/distmaxflow/internal/graphstore"
	"github.com/rpi-parallel/distmaxflow/internal/transport"
)

// routeMessages is the router thread of §4.3: the single goroutine per
// rank that blocks on inbound messages and dispatches them by tag. It
// runs until it has handled this pass's SINK_FOUND ring message (relayed
// it on, or, on the rank that announced it, received it back) or the
// termination detector confirms quiescence.
func (r *Rank) routeMessages(ctx context.Context, ps *passState) error {
	sinkRingDone := false
	for !sinkRingDone && !ps.algorithmComplete() {
		msg, err := r.tr.Recv(ctx)
		if err != nil {
			return err
		}
		ps.workingThreads.Add(1)

		if msg.Pass != ps.pass {
			r.log.Warn().Int32("pass", ps.pass).Int32("msg_pass", msg.Pass).
				Str("tag", msg.Tag.String()).Msg("dropping stale message from a prior pass")
			ps.workingThreads.Add(-1)
			continue
		}

		switch msg.Tag {
		case transport.SetToLabel:
			if err := r.handleSetToLabel(ctx, ps, msg); err != nil {
				ps.workingThreads.Add(-1)
				return err
			}
		case transport.ComputeFromLabel:
			if err := r.handleComputeFromLabel(ctx, ps, msg); err != nil {
				ps.workingThreads.Add(-1)
				return err
			}
		case transport.SinkFound:
			if err := r.relaySinkFound(ctx, ps, msg); err != nil {
				ps.workingThreads.Add(-1)
				return err
			}
			sinkRingDone = true
		case transport.TokenWhite, transport.TokenRed:
			if err := r.handleToken(ctx, ps, msg); err != nil {
				ps.workingThreads.Add(-1)
				return err
			}
		case transport.CheckTermination:
			if err := r.checkTermination(ctx, ps); err != nil {
				ps.workingThreads.Add(-1)
				return err
			}
		case transport.UpdateFlow, transport.SourceFound:
			r.log.Warn().Str("tag", msg.Tag.String()).Msg("backtracking message arrived during step 2, dropping")
		default:
			r.log.Warn().Str("tag", msg.Tag.String()).Msg("unrecognized tag in step 2, dropping")
		}
		ps.workingThreads.Add(-1)
	}
	return nil
}

func (r *Rank) handleSetToLabel(ctx context.Context, ps *passState, msg transport.Message) error {
	vertIdx, ok := r.store.Lookup(msg.ReceiverGlobalID)
	if !ok {
		r.log.Warn().Uint64("receiver", msg.ReceiverGlobalID).Msg("SET_TO_LABEL sent to wrong rank")
		return nil
	}
	if r.setLabel(vertIdx, msg.Value, msg.SenderGlobalID, msg.SenderRank, graphstore.NoLocal) {
		if !ps.claimStep3("router-set-to-label", vertIdx, msg.Value) {
			r.log.Warn().Msg("sink already claimed by another goroutine this pass")
		}
		return r.announceSinkFound(ctx, ps)
	}
	return nil
}

func (r *Rank) handleComputeFromLabel(ctx context.Context, ps *passState, msg transport.Message) error {
	vertIdx, ok := r.store.Lookup(msg.ReceiverGlobalID)
	if !ok {
		r.log.Warn().Uint64("receiver", msg.ReceiverGlobalID).Msg("COMPUTE_FROM_LABEL sent to wrong rank")
		return nil
	}
	flow := int32(0)
	for i := range r.store.Vertices[vertIdx].OutEdges {
		e := &r.store.Vertices[vertIdx].OutEdges[i]
		if e.DestGlobalID == msg.SenderGlobalID {
			flow = e.Flow
			break
		}
	}
	if flow <= 0 {
		return nil
	}
	value := -min32(abs32(msg.Value), flow)
	if r.setLabel(vertIdx, value, msg.SenderGlobalID, msg.SenderRank, graphstore.NoLocal) {
		r.log.Warn().Msg("outgoing edge from sink")
		if !ps.claimStep3("router-compute-from-label", vertIdx, value) {
			r.log.Warn().Msg("sink already claimed by another goroutine this pass")
		}
		return r.announceSinkFound(ctx, ps)
	}
	return nil
}

// announceSinkFound marks the sink found locally and starts the step-2
// SINK_FOUND ring relay (§4.3/§4.7): every rank must learn the sink was
// found before it can stop waiting in routeMessages/labelingWorker and
// reach the inter-process barrier that follows step 2. Value carries the
// discoverer's own rank so relaySinkFound knows when the message has
// travelled all the way around and can stop forwarding it. When r.size
// is 1, next is r.id itself, which also wakes this rank's own router out
// of Recv.
func (r *Rank) announceSinkFound(ctx context.Context, ps *passState) error {
	ps.sinkFound.Store(true)
	next := (r.id + 1) % r.size
	return r.tr.Send(ctx, next, transport.Message{Tag: transport.SinkFound, Value: r.id, Pass: ps.pass})
}

// relaySinkFound handles an incoming SINK_FOUND ring message: mark the
// sink found locally, and forward the same message on unless it has
// returned to whichever rank originated it.
func (r *Rank) relaySinkFound(ctx context.Context, ps *passState, msg transport.Message) error {
	ps.sinkFound.Store(true)
	if msg.Value == r.id {
		return nil
	}
	next := (r.id + 1) % r.size
	return r.tr.Send(ctx, next, msg)
}

// handleToken implements the token-ring half of §4.5: forwarding state
// lives in passState, but only rank 0 ever triggers a termination check.
func (r *Rank) handleToken(ctx context.Context, ps *passState, msg transport.Message) error {
	ps.receiveToken(msg.Tag)
	if r.id != 0 {
		return nil
	}

	if msg.Tag == transport.TokenRed {
		ps.tokenMu.Lock()
		ps.tokenColor = transport.TokenWhite
		ps.tokenMu.Unlock()
		return nil
	}

	for dest := int32(1); dest < r.size; dest++ {
		if err := r.tr.Send(ctx, dest, transport.Message{Tag: transport.CheckTermination, Pass: ps.pass}); err != nil {
			return err
		}
	}
	return r.checkTermination(ctx, ps)
}

func (r *Rank) checkTermination(ctx context.Context, ps *passState) error {
	empty := int32(0)
	if !ps.queueIsEmpty.Load() {
		empty = 1
	}
	result, err := r.tr.AllReduceSum(ctx, empty)
	if err != nil {
		return err
	}
	if result == 0 {
		ps.setAlgorithmComplete()
	}
	return nil
}
