package engine

import (
	"sync"
	"sync/atomic"

	"github.com/rpi-parallel/distmaxflow/internal/graphstore"
	"github.com/rpi-parallel/distmaxflow/internal/transport"
)

// passState is the per-pass mutable context described in spec.md's
// DESIGN NOTES: the process-wide flags that used to be loose globals,
// lifted into one value owned by the iteration controller and shared by
// reference with the router and the labeling workers.
type passState struct {
	pass int32

	sinkFound      atomic.Bool
	queueIsEmpty   atomic.Bool
	workingThreads atomic.Int32
	algoComplete   atomic.Bool

	tokenMu    sync.Mutex
	haveToken  bool
	tokenColor transport.Tag
	myColor    transport.Tag

	step3 struct {
		mu         sync.Mutex
		claimed    bool
		claimedBy  string
		localIndex uint32
		value      int32
	}
}

func newPassState(pass int32, rank int32) *passState {
	ps := &passState{pass: pass}
	ps.myColor = transport.TokenWhite
	ps.haveToken = rank == 0
	ps.tokenColor = transport.TokenWhite
	ps.step3.localIndex = graphstore.NoLocal
	return ps
}

// claimStep3 records which goroutine discovered the sink, and so which
// local index the backtrack walk starts from. Only one caller may
// win; a second claim attempt is the invariant violation spec.md §7c
// calls out ("not expected to occur"), so it is a no-op for every caller
// but the first -- callers log the loss themselves, since passState has
// no logger of its own.
func (ps *passState) claimStep3(who string, localIndex uint32, value int32) (won bool) {
	ps.step3.mu.Lock()
	defer ps.step3.mu.Unlock()
	if ps.step3.claimed {
		return false
	}
	ps.step3.claimed = true
	ps.step3.claimedBy = who
	ps.step3.localIndex = localIndex
	ps.step3.value = value
	return true
}

func (ps *passState) step3Claimed() (localIndex uint32, value int32, claimed bool) {
	ps.step3.mu.Lock()
	defer ps.step3.mu.Unlock()
	return ps.step3.localIndex, ps.step3.value, ps.step3.claimed
}

// tryTakeToken attempts to claim the token this worker is holding for
// forwarding, gated on the queue being observed empty and no other
// worker on this rank currently holding an entry. Returns the color to
// send and true if the caller should forward it.
func (ps *passState) tryTakeToken() (transport.Tag, bool) {
	ps.tokenMu.Lock()
	defer ps.tokenMu.Unlock()
	if !ps.haveToken || !ps.queueIsEmpty.Load() || ps.workingThreads.Load() != 0 || ps.sinkFound.Load() {
		return 0, false
	}
	color := ps.tokenColor
	if ps.myColor == transport.TokenRed {
		color = transport.TokenRed
	}
	ps.haveToken = false
	ps.myColor = transport.TokenWhite
	return color, true
}

func (ps *passState) receiveToken(color transport.Tag) {
	ps.tokenMu.Lock()
	defer ps.tokenMu.Unlock()
	ps.tokenColor = color
	ps.haveToken = true
}

func (ps *passState) algorithmComplete() bool {
	return ps.algoComplete.Load()
}

func (ps *passState) setAlgorithmComplete() {
	ps.algoComplete.Store(true)
}

// markRemoteSend flips this rank's ring color to red when sending to a
// lower-numbered rank, per spec.md §4.4/§4.5.
func (ps *passState) markRemoteSend(destRank, thisRank int32) {
	if destRank >= thisRank {
		return
	}
	ps.tokenMu.Lock()
	ps.myColor = transport.TokenRed
	ps.tokenMu.Unlock()
}
