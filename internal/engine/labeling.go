package engine

import (
	"context"

	"golang.org/x/exp/constraints"

	"github.com/rpi-parallel/distmaxflow/internal/equeue"
	"github.com/rpi-parallel/distmaxflow/internal/graphstore"
	"github.com/rpi-parallel/distmaxflow/internal/transport"
	"github.com/rpi-parallel/distmaxflow/utils"
)

func abs32[T constraints.Signed](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

// setLabel attempts the CAS-based write-once label set of §4.1. On
// success it either reports that the sink was reached, or enqueues the
// newly labeled vertex's edges for further exploration -- never both.
func (r *Rank) setLabel(localIdx uint32, value int32, prevGlobalID graphstore.GlobalID, prevRank int32, prevLocal uint32) (isSink bool) {
	label := &r.store.Labels[localIdx]
	if !label.TrySet(value, prevGlobalID, prevRank, prevLocal) {
		return false
	}
	if r.store.Vertices[localIdx].GlobalID == r.cfg.SinkGlobalID {
		return true
	}
	r.insertEdges(localIdx)
	return false
}

// insertEdges enqueues a freshly labeled vertex's out/in edges, skipping
// any whose local destination already carries a label and the one edge
// leading back toward the predecessor we arrived from. Grounded on
// insert_edges in original_source/Project/src/project.cpp.
func (r *Rank) insertEdges(localIdx uint32) {
	v := &r.store.Vertices[localIdx]
	label := &r.store.Labels[localIdx]

	var batch equeue.Batch
	for i, e := range v.OutEdges {
		if e.DestRank == r.id && r.store.Labels[e.DestLocal].Peek() != 0 {
			continue
		}
		if e.DestGlobalID == label.PrevGlobalID {
			continue
		}
		batch.Add(equeue.Entry{LocalIndex: localIdx, EdgeIndex: uint32(i), Outgoing: true})
	}
	for i, e := range v.InEdges {
		if e.SourceRank == r.id && r.store.Labels[e.SourceLocal].Peek() != 0 {
			continue
		}
		if e.SourceGlobalID == label.PrevGlobalID {
			continue
		}
		batch.Add(equeue.Entry{LocalIndex: localIdx, EdgeIndex: uint32(i), Outgoing: false})
	}
	batch.MergeInto(r.queue)
}

// handleOutEdge processes a forward edge (u -> v): §4.4's first bullet.
// Returns the sink's global id and true if this call discovered it.
func (r *Rank) handleOutEdge(ctx context.Context, ps *passState, entry equeue.Entry) (graphstore.GlobalID, bool, error) {
	fromIdx := entry.LocalIndex
	edge := &r.store.Vertices[fromIdx].OutEdges[entry.EdgeIndex]

	residual := edge.Capacity - edge.Flow
	if residual <= 0 {
		return 0, false, nil
	}

	fromLabel := r.store.Labels[fromIdx].Peek()
	value := min32(abs32(fromLabel), residual)
	fromGlobalID := r.store.Vertices[fromIdx].GlobalID

	if edge.DestRank == r.id {
		if r.setLabel(edge.DestLocal, value, fromGlobalID, r.id, fromIdx) {
			return edge.DestGlobalID, true, nil
		}
		return 0, false, nil
	}

	ps.markRemoteSend(edge.DestRank, r.id)
	err := r.tr.Send(ctx, edge.DestRank, transport.Message{
		Tag:              transport.SetToLabel,
		SenderGlobalID:   fromGlobalID,
		ReceiverGlobalID: edge.DestGlobalID,
		Value:            value,
		Pass:             ps.pass,
	})
	return 0, false, err
}

// handleInEdge processes a reverse edge (v <- u): §4.4's second bullet.
func (r *Rank) handleInEdge(ctx context.Context, ps *passState, entry equeue.Entry) (graphstore.GlobalID, bool, error) {
	toIdx := entry.LocalIndex
	edge := &r.store.Vertices[toIdx].InEdges[entry.EdgeIndex]
	toGlobalID := r.store.Vertices[toIdx].GlobalID
	toLabel := r.store.Labels[toIdx].Peek()

	if edge.SourceRank == r.id {
		fromIdx := edge.SourceLocal
		flow := r.flowTowards(fromIdx, toIdx)
		if flow <= 0 {
			return 0, false, nil
		}
		value := -min32(abs32(toLabel), flow)
		if r.setLabel(fromIdx, value, toGlobalID, r.id, toIdx) {
			// A reverse edge can never lead to the sink: the sink has no
			// outgoing edges worth exploring back into it in this search.
			return r.store.Vertices[fromIdx].GlobalID, true, nil
		}
		return 0, false, nil
	}

	ps.markRemoteSend(edge.SourceRank, r.id)
	err := r.tr.Send(ctx, edge.SourceRank, transport.Message{
		Tag:              transport.ComputeFromLabel,
		SenderGlobalID:   toGlobalID,
		ReceiverGlobalID: edge.SourceGlobalID,
		Value:            toLabel,
		Pass:             ps.pass,
	})
	return 0, false, err
}

// flowTowards returns the flow on the out-edge from fromIdx to toIdx, or
// 0 if no such edge exists (it always should, by the reverse-edge
// invariant in spec.md §3).
func (r *Rank) flowTowards(fromIdx, toIdx uint32) int32 {
	toGlobalID := r.store.Vertices[toIdx].GlobalID
	for i := range r.store.Vertices[fromIdx].OutEdges {
		e := &r.store.Vertices[fromIdx].OutEdges[i]
		if e.DestGlobalID == toGlobalID {
			return e.Flow
		}
	}
	return 0
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

// labelingWorker is one of the T-1 non-router threads of §4.4: it pops
// edge-queue entries and labels their far endpoint, forwarding the
// termination token when it finds the queue empty and is holding it.
func (r *Rank) labelingWorker(ctx context.Context, ps *passState, id int) error {
	backoff := 0
	for {
		entry, ok := r.queue.Pop()
		if !ok {
			ps.queueIsEmpty.Store(true)
			if color, forward := ps.tryTakeToken(); forward {
				dest := (r.id + 1) % r.size
				if err := r.tr.Send(ctx, dest, transport.Message{Tag: color, Pass: ps.pass}); err != nil {
					return err
				}
			}
			if ps.sinkFound.Load() || ps.algorithmComplete() {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			utils.BackOff(backoff)
			backoff++
			continue
		}
		backoff = 0
		ps.queueIsEmpty.Store(false)
		ps.workingThreads.Add(1)

		var (
			sinkVertexID graphstore.GlobalID
			isSink       bool
			err          error
		)
		if entry.Outgoing {
			sinkVertexID, isSink, err = r.handleOutEdge(ctx, ps, entry)
		} else {
			sinkVertexID, isSink, err = r.handleInEdge(ctx, ps, entry)
		}
		if err != nil {
			ps.workingThreads.Add(-1)
			return err
		}
		if isSink {
			localIdx, _ := r.store.Lookup(sinkVertexID)
			value := r.store.Labels[localIdx].Peek()
			if !ps.claimStep3("worker", localIdx, value) {
				// Expected never to happen; logged rather than treated as fatal.
				r.log.Warn().Msg("sink already claimed by another goroutine this pass")
			}
			if err := r.announceSinkFound(ctx, ps); err != nil {
				ps.workingThreads.Add(-1)
				return err
			}
			ps.workingThreads.Add(-1)
			return nil
		}
		ps.workingThreads.Add(-1)
	}
}
