// Package equeue implements the shared edge work queue described in
// spec.md §4.2: a two-lock, multi-producer multi-consumer FIFO. A
// lock-free ring buffer was deliberately not used here (see DESIGN.md);
// separate head/tail mutexes keep producers and a consumer from
// contending on the same lock, and batches accumulated locally by a
// worker are spliced onto the tail in one operation.
package equeue

import "sync"

// Entry names one edge to (re)examine: an out-edge or in-edge of the
// vertex at LocalIndex, identified by EdgeIndex into that vertex's
// OutEdges/InEdges slice.
type Entry struct {
	LocalIndex uint32
	EdgeIndex  uint32
	Outgoing   bool
}

type node struct {
	entry Entry
	next  *node
}

// Queue is a Michael-Scott two-lock FIFO. The zero value is not usable;
// construct with New.
type Queue struct {
	headLock sync.Mutex
	tailLock sync.Mutex
	head     *node // dummy; head.next is the true first element
	tail     *node
}

// New returns an empty queue.
func New() *Queue {
	dummy := &node{}
	return &Queue{head: dummy, tail: dummy}
}

// Push enqueues a single entry. Safe for concurrent use.
func (q *Queue) Push(e Entry) {
	n := &node{entry: e}
	q.tailLock.Lock()
	q.tail.next = n
	q.tail = n
	q.tailLock.Unlock()
}

// Pop dequeues the oldest entry. ok is false if the queue was empty at
// the instant of the call; the caller (§4.4) treats that as the signal to
// check for termination rather than retry immediately.
func (q *Queue) Pop() (e Entry, ok bool) {
	q.headLock.Lock()
	defer q.headLock.Unlock()
	next := q.head.next
	if next == nil {
		return Entry{}, false
	}
	q.head = next
	return next.entry, true
}

// Batch accumulates entries locally, with no locking, so a worker that
// discovers several edges to enqueue while processing one message can
// merge them into the shared queue as a single tail-lock acquisition
// (§4.2's "bounding the worst-case lock hold time").
type Batch struct {
	head, tail *node
}

// Add appends e to the batch.
func (b *Batch) Add(e Entry) {
	n := &node{entry: e}
	if b.head == nil {
		b.head = n
	} else {
		b.tail.next = n
	}
	b.tail = n
}

// Empty reports whether the batch has no entries.
func (b *Batch) Empty() bool {
	return b.head == nil
}

// MergeInto splices the whole batch onto dst's tail under a single lock
// acquisition. The batch must not be reused afterward.
func (b *Batch) MergeInto(dst *Queue) {
	if b.Empty() {
		return
	}
	dst.tailLock.Lock()
	dst.tail.next = b.head
	dst.tail = b.tail
	dst.tailLock.Unlock()
	b.head, b.tail = nil, nil
}
