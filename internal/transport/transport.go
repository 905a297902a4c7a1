// Package transport realizes the "P peer processes" of spec.md §5 as P
// goroutine-rooted ranks inside one OS process. See DESIGN.md for why
// this resolution was chosen over real OS-process/network transport; the
// Transport interface is deliberately the whole surface the engine
// depends on, so a different implementation could be substituted without
// touching internal/engine.
package transport

import (
	"context"
	"fmt"
)

// Tag identifies a message's purpose, mirroring the original's
// message_tags enum and spec.md §4.3's dispatch table.
type Tag int

const (
	SetToLabel Tag = iota
	ComputeFromLabel
	SinkFound
	UpdateFlow
	SourceFound
	TotalFlow
	TokenWhite
	TokenRed
	CheckTermination
)

func (t Tag) String() string {
	switch t {
	case SetToLabel:
		return "SET_TO_LABEL"
	case ComputeFromLabel:
		return "COMPUTE_FROM_LABEL"
	case SinkFound:
		return "SINK_FOUND"
	case UpdateFlow:
		return "UPDATE_FLOW"
	case SourceFound:
		return "SOURCE_FOUND"
	case TotalFlow:
		return "TOTAL_FLOW"
	case TokenWhite:
		return "TOKEN_WHITE"
	case TokenRed:
		return "TOKEN_RED"
	case CheckTermination:
		return "CHECK_TERMINATION"
	default:
		return fmt.Sprintf("TAG(%d)", int(t))
	}
}

// Message is the unit exchanged between ranks. Not every field is
// meaningful for every tag; SenderGlobalID/ReceiverGlobalID address the
// vertex pair a labeling message concerns, Value carries a label or flow
// amount, and Pass guards against a message from a stale pass being acted
// on (§7b).
type Message struct {
	Tag              Tag
	SenderRank       int32
	SenderGlobalID   uint64
	ReceiverGlobalID uint64
	Value            int32
	Pass             int32
}

// Transport is everything the engine needs from the communication layer:
// point-to-point send/receive with FIFO-per-(sender,tag) ordering into a
// given receiver, plus the handful of collectives bootstrap, the pass loop
// and the termination check use.
type Transport interface {
	Rank() int32
	Size() int32

	// Send blocks until the message has been handed to the destination
	// rank's Recv (synchronous-send semantics, §5) so a rank that has
	// gone red cannot be overtaken by a white token it sent earlier.
	Send(ctx context.Context, dest int32, msg Message) error

	// Recv blocks until a message addressed to this rank is available.
	Recv(ctx context.Context) (Message, error)

	// TryRecv returns immediately with ok=false if no message is already
	// waiting. Used only by engine's pre-pass drain, which discards
	// whatever is still waiting from the previous pass.
	TryRecv(ctx context.Context) (msg Message, ok bool, err error)

	// Barrier blocks until every rank has called Barrier.
	Barrier(ctx context.Context) error

	// AllReduceSum sums one int32 contributed by every rank and returns
	// the total to all of them. Used for the coordinator's termination
	// all-reduce (spec.md §4.5); TOTAL_FLOW aggregation is a plain message.
	AllReduceSum(ctx context.Context, local int32) (int32, error)

	// Broadcast distributes root's data to every rank, used once at
	// bootstrap to hand out global_id_to_rank (§6).
	Broadcast(ctx context.Context, root int32, data []int32) ([]int32, error)
}
