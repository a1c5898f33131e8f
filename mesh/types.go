package mesh

import "strconv"

// NodeID is a dense, non-negative node identifier in [0, N).
type NodeID int

func (n NodeID) String() string {
	return strconv.Itoa(int(n))
}

// MessageID uniquely identifies a Message within a phase.
type MessageID int

func (m MessageID) String() string {
	return strconv.Itoa(int(m))
}

// Policy selects the forwarding behavior FrameEngine uses outside of the
// learning phase (the learning phase always floods regardless of Policy).
type Policy int

const (
	// PolicyFlood forwards to every neighbor except the immediate predecessor.
	PolicyFlood Policy = iota
	// PolicyTreeAware suppresses forwarding when the node's knowledge tree
	// proves both endpoints lie in the same direct-child subtree.
	PolicyTreeAware
)

func (p Policy) String() string {
	switch p {
	case PolicyFlood:
		return "flood"
	case PolicyTreeAware:
		return "tree_aware"
	default:
		return "unknown"
	}
}

// LifecycleState is a Message's position in the waiting -> active ->
// completed lifecycle. Exactly one holds at any instant.
type LifecycleState int

const (
	StateWaiting LifecycleState = iota
	StateActive
	StateCompleted
)

func (s LifecycleState) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// TerminalStatus is assigned exactly once, at the moment a Message
// completes.
type TerminalStatus int

const (
	// StatusNone means the message has not yet completed.
	StatusNone TerminalStatus = iota
	StatusSuccess
	StatusFailed
)

func (s TerminalStatus) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailed:
		return "FAILED"
	default:
		return "unknown"
	}
}

// CompletionReason records why a Message was completed, for statistics and
// logging; it is not a Go error (spec.md §7: MessageExpired is a behavioral
// category, not a caller-surfaced error).
type CompletionReason string

const (
	ReasonNone             CompletionReason = ""
	ReasonTargetReached    CompletionReason = "target_reached"
	ReasonHopLimitExceeded CompletionReason = "hop_limit_exceeded"
)

// Path is an ordered, non-empty sequence of node ids beginning at a
// message's source.
type Path []NodeID

// Equal reports whether two paths name the same hop sequence.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the path.
func (p Path) Clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}
