package mesh

// Message is a shared, engine-mediated entity: every node that holds a copy
// observes the same fields, but only FrameEngine mutates state, status,
// targetReceived, and paths (spec.md §5). Modeling it as a single pointer
// shared across node outboxes/inboxes (rather than per-node duplicated
// booleans, the pattern spec.md §9 flags as needing re-architecture) keeps
// completion a single idempotent transition.
type Message struct {
	ID MessageID

	Source   NodeID
	Target   NodeID
	HopLimit int

	// StartFrame is the tick ordinal, >= 1, at which this message is
	// admitted from waiting to active.
	StartFrame int

	// Paths holds every distinct path discovered so far, in order of first
	// appearance (spec.md §9 Open Questions: append-only, never deduped
	// beyond exact-match).
	Paths []Path

	state            LifecycleState
	targetReceived   bool
	status           TerminalStatus
	completionReason CompletionReason
}

// NewMessage constructs a waiting message. hopLimit must be positive and
// startFrame must be >= 1; callers (PhaseRunner) are responsible for that
// invariant since it is established at generation time, not at the engine
// boundary.
func NewMessage(id MessageID, source, target NodeID, hopLimit, startFrame int) *Message {
	return &Message{
		ID:         id,
		Source:     source,
		Target:     target,
		HopLimit:   hopLimit,
		StartFrame: startFrame,
		state:      StateWaiting,
	}
}

// State returns the message's current lifecycle state.
func (m *Message) State() LifecycleState {
	return m.state
}

// IsWaiting, IsActive, and IsCompleted report the message's lifecycle
// state; exactly one is ever true.
func (m *Message) IsWaiting() bool   { return m.state == StateWaiting }
func (m *Message) IsActive() bool    { return m.state == StateActive }
func (m *Message) IsCompleted() bool { return m.state == StateCompleted }

// TargetReceived reports whether the target has ever accepted a copy of
// this message. It is monotonic: once true, it never reverts to false.
func (m *Message) TargetReceived() bool {
	return m.targetReceived
}

// Status is the terminal status, valid once IsCompleted() is true.
func (m *Message) Status() TerminalStatus {
	return m.status
}

// CompletionReason records why the message completed.
func (m *Message) CompletionReason() CompletionReason {
	return m.completionReason
}

// admit transitions a waiting message to active and seeds its path list
// with the trivial source-only path, per spec.md §4.1(c).
func (m *Message) admit() {
	m.state = StateActive
	m.Paths = []Path{{m.Source}}
}

// markTargetReceived sets the monotonic targetReceived flag.
func (m *Message) markTargetReceived() {
	m.targetReceived = true
}

// addPathIfAbsent appends p to Paths if it is not already present,
// returning whether it was added. Order of first appearance defines the
// sequence (spec.md §9 Open Questions).
func (m *Message) addPathIfAbsent(p Path) bool {
	for _, existing := range m.Paths {
		if existing.Equal(p) {
			return false
		}
	}
	m.Paths = append(m.Paths, p.Clone())
	return true
}

// complete finalizes the message exactly once; a second call is a no-op
// (spec.md §7: "every message terminates exactly once; completion is
// idempotent").
func (m *Message) complete(reason CompletionReason) {
	if m.state == StateCompleted {
		return
	}
	m.state = StateCompleted
	m.completionReason = reason
	if m.targetReceived {
		m.status = StatusSuccess
	} else {
		m.status = StatusFailed
	}
}

// FinalPath returns the longest discovered path that actually reaches the
// target, or nil if the target was never reached.
func (m *Message) FinalPath() Path {
	var longest Path
	for _, p := range m.Paths {
		if len(p) == 0 || p[len(p)-1] != m.Target {
			continue
		}
		if longest == nil || len(p) > len(longest) {
			longest = p
		}
	}
	return longest
}

// reset returns the message to its pre-run waiting state, preserving its
// identity and schedule but discarding discovered paths and terminal
// state. Used by PhaseRunner.RunComparison to replay an identical message
// set under both policies (spec.md §4.5).
func (m *Message) reset() {
	m.state = StateWaiting
	m.Paths = nil
	m.targetReceived = false
	m.status = StatusNone
	m.completionReason = ReasonNone
}

// clone returns an independent copy of the message in its current state,
// used by PhaseRunner.RunComparison to give each policy run its own
// history over the same logical message.
func (m *Message) clone() *Message {
	cp := *m
	cp.Paths = make([]Path, len(m.Paths))
	for i, p := range m.Paths {
		cp.Paths[i] = p.Clone()
	}
	return &cp
}
