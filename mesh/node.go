package mesh

// StatusFlags are a node's independent, per-frame display/decision flags.
// Source and Target persist across frames while any active message
// designates this node so; Sending, Receiving, and Collision are reset
// every frame (spec.md §3, §4.1(a)). Keeping them as independent booleans
// rather than a single "color" follows spec.md §9's re-architecture note:
// the engine mutates flags, a renderer maps flags to a display priority.
type StatusFlags struct {
	Source    bool
	Target    bool
	Sending   bool
	Receiving bool
	Collision bool
}

// OutboxEntry is a single tagged record a node will attempt to transmit
// next frame: a message reference, the path observed so far, and the
// remaining hop budget for that copy. spec.md §9 flags the teacher
// corpus's habit of alternating 2-tuples/3-tuples for this kind of record;
// this module always carries all three fields and never reconstructs
// budget from path length except at ingestion (§4.1(h)).
type OutboxEntry struct {
	Message *Message
	Path    Path
	Budget  int
}

// InboxEntry is a delivery accepted during the current frame's
// transmission step, consumed during the reception step.
type InboxEntry struct {
	Message    *Message
	Sender     NodeID
	SenderPath Path
}

type seenCopyKey struct {
	id     MessageID
	sender NodeID
}

// Node is a single mesh participant: its neighbor set, per-frame flags,
// duplicate-suppression state, pending outbox, current inbox, and
// knowledge tree. All of this state is owned exclusively by the Node
// (spec.md §5).
type Node struct {
	ID        NodeID
	neighbors []NodeID

	Flags StatusFlags

	// Outbox holds the entries this node will attempt to transmit during
	// the current tick's step (e) — entries produced by admission/reception
	// in the *previous* tick (spec.md §5: "a message's pending_outbox
	// entries produced in tick t are consumed exactly in tick t+1").
	Outbox []OutboxEntry

	// nextOutbox accumulates entries produced during the current tick's
	// admission (c) and reception (h) steps; it becomes Outbox at the end
	// of the tick, ready for next tick's step (e).
	nextOutbox []OutboxEntry

	Inbox []InboxEntry

	seenMessageIDs map[MessageID]struct{}
	seenCopies     map[seenCopyKey]struct{}

	Knowledge KnowledgeTree
}

// NewNode creates a Node with a fixed neighbor set. Nodes are created once
// with the topology and survive every phase (spec.md §3 Lifecycle).
func NewNode(id NodeID, neighbors []NodeID) *Node {
	n := &Node{
		ID:             id,
		neighbors:      append([]NodeID(nil), neighbors...),
		seenMessageIDs: make(map[MessageID]struct{}),
		seenCopies:     make(map[seenCopyKey]struct{}),
		Knowledge:      make(KnowledgeTree),
	}
	return n
}

// Neighbors returns the node's fixed neighbor set.
func (n *Node) Neighbors() []NodeID {
	return n.neighbors
}

// resetFrameFlags implements spec.md §4.1(a): clear Sending, Receiving,
// Collision and drain the inbox. Source/Target are deliberately untouched
// here; they are recomputed in step (b) and cleared only in step (i).
func (n *Node) resetFrameFlags() {
	n.Flags.Sending = false
	n.Flags.Receiving = false
	n.Flags.Collision = false
	n.Inbox = nil
}

// hasSeenMessage reports whether this node has ever accepted a copy of
// the given message id.
func (n *Node) hasSeenMessage(id MessageID) bool {
	_, ok := n.seenMessageIDs[id]
	return ok
}

// markSeenMessage records that id has been accepted by this node, for
// duplicate suppression. Monotonic within a phase (spec.md §8 invariant 1).
func (n *Node) markSeenMessage(id MessageID) {
	n.seenMessageIDs[id] = struct{}{}
}

// acceptDelivery implements spec.md §4.1(g)'s acceptance test: a receiver
// accepts iff it has never seen the message id and has never seen this
// exact (id, sender) copy. On acceptance both sets are updated.
func (n *Node) acceptDelivery(id MessageID, sender NodeID) bool {
	if n.hasSeenMessage(id) {
		return false
	}
	key := seenCopyKey{id: id, sender: sender}
	if _, ok := n.seenCopies[key]; ok {
		return false
	}
	n.markSeenMessage(id)
	n.seenCopies[key] = struct{}{}
	return true
}

// resetVolatile clears everything a comparison-policy switch must not
// carry forward: flags, outbox, inbox, and duplicate-suppression state.
// The knowledge tree is untouched (spec.md §4.5, §9 Open Questions:
// knowledge trees persist across policy switches within comparison).
func (n *Node) resetVolatile() {
	n.Flags = StatusFlags{}
	n.Outbox = nil
	n.nextOutbox = nil
	n.Inbox = nil
	n.seenMessageIDs = make(map[MessageID]struct{})
	n.seenCopies = make(map[seenCopyKey]struct{})
}

// resetKnowledge wipes the knowledge tree. Only used by a full reset
// (spec.md §6 reset_phase(all)).
func (n *Node) resetKnowledge() {
	n.Knowledge = make(KnowledgeTree)
}
