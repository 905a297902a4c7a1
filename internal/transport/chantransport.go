package transport

import (
	"context"
	"sync"
)

// barrier is a reusable (cyclic) rendezvous point for a fixed number of
// goroutines, the channel-based analogue of the original's pthread
// barrier used between the phases of §4.7's per-pass state machine.
type barrier struct {
	mu    sync.Mutex
	n     int
	count int
	ch    chan struct{}
}

func newBarrier(n int) *barrier {
	return &barrier{n: n, ch: make(chan struct{})}
}

func (b *barrier) Wait(ctx context.Context) error {
	b.mu.Lock()
	b.count++
	if b.count == b.n {
		b.count = 0
		ch := b.ch
		b.ch = make(chan struct{})
		b.mu.Unlock()
		close(ch)
		return nil
	}
	ch := b.ch
	b.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cluster is the shared state behind every rank's Transport handle: one
// inbound channel per rank, a send mutex per ordered (sender, receiver)
// pair to preserve per-link FIFO ordering when several of a rank's
// worker goroutines send concurrently, and the barrier/collective
// scratch space.
type cluster struct {
	size int32
	inbox []chan Message

	sendMu [][]sync.Mutex

	barrier *barrier

	arVals    []int32
	arBarrier1 *barrier
	arBarrier2 *barrier

	bcData     []int32
	bcBarrier1 *barrier
	bcBarrier2 *barrier
}

// NewCluster builds size ranks that can address one another. inboxDepth
// is the channel buffer per rank; 0 gives strict synchronous-send
// semantics (§5), matching an MPI Ssend.
func NewCluster(size int32, inboxDepth int) []Transport {
	c := &cluster{
		size:       size,
		inbox:      make([]chan Message, size),
		sendMu:     make([][]sync.Mutex, size),
		barrier:    newBarrier(int(size)),
		arVals:     make([]int32, size),
		arBarrier1: newBarrier(int(size)),
		arBarrier2: newBarrier(int(size)),
		bcBarrier1: newBarrier(int(size)),
		bcBarrier2: newBarrier(int(size)),
	}
	for i := range c.inbox {
		c.inbox[i] = make(chan Message, inboxDepth)
	}
	for i := range c.sendMu {
		c.sendMu[i] = make([]sync.Mutex, size)
	}
	handles := make([]Transport, size)
	for r := int32(0); r < size; r++ {
		handles[r] = &chanTransport{rank: r, cl: c}
	}
	return handles
}

type chanTransport struct {
	rank int32
	cl   *cluster
}

func (t *chanTransport) Rank() int32 { return t.rank }
func (t *chanTransport) Size() int32 { return t.cl.size }

func (t *chanTransport) Send(ctx context.Context, dest int32, msg Message) error {
	msg.SenderRank = t.rank
	mu := &t.cl.sendMu[t.rank][dest]
	mu.Lock()
	defer mu.Unlock()
	select {
	case t.cl.inbox[dest] <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *chanTransport) Recv(ctx context.Context) (Message, error) {
	select {
	case msg := <-t.cl.inbox[t.rank]:
		return msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (t *chanTransport) TryRecv(ctx context.Context) (Message, bool, error) {
	select {
	case msg := <-t.cl.inbox[t.rank]:
		return msg, true, nil
	default:
		return Message{}, false, nil
	}
}

func (t *chanTransport) Barrier(ctx context.Context) error {
	return t.cl.barrier.Wait(ctx)
}

func (t *chanTransport) AllReduceSum(ctx context.Context, local int32) (int32, error) {
	t.cl.arVals[t.rank] = local
	if err := t.cl.arBarrier1.Wait(ctx); err != nil {
		return 0, err
	}
	var sum int32
	for _, v := range t.cl.arVals {
		sum += v
	}
	if err := t.cl.arBarrier2.Wait(ctx); err != nil {
		return 0, err
	}
	return sum, nil
}

func (t *chanTransport) Broadcast(ctx context.Context, root int32, data []int32) ([]int32, error) {
	if t.rank == root {
		t.cl.bcData = data
	}
	if err := t.cl.bcBarrier1.Wait(ctx); err != nil {
		return nil, err
	}
	out := make([]int32, len(t.cl.bcData))
	copy(out, t.cl.bcData)
	if err := t.cl.bcBarrier2.Wait(ctx); err != nil {
		return nil, err
	}
	return out, nil
}
