package mesh

import (
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// TransmissionRecord is one (sender, receiver, message) emission, part of
// the emitted-data interface (spec.md §6).
type TransmissionRecord struct {
	Sender    NodeID
	Receiver  NodeID
	MessageID MessageID
}

// MessageSnapshot is a Message's externally-visible state at the moment a
// FrameSnapshot was taken.
type MessageSnapshot struct {
	ID     MessageID
	State  LifecycleState
	Status TerminalStatus
	Paths  []Path
}

// FrameSnapshot is the per-tick emitted-data shape spec.md §6 names for
// visualization and tests.
type FrameSnapshot struct {
	Tick          int
	Transmissions []TransmissionRecord
	Collisions    []NodeID
	NodeStatus    map[NodeID]StatusFlags
	Messages      []MessageSnapshot
}

// transmission is the internal, pre-collision-filtering record: it
// carries the path and budget the public TransmissionRecord omits, since
// the delivery step (g) needs them.
type transmission struct {
	sender   NodeID
	receiver NodeID
	message  *Message
	path     Path
	budget   int
}

// FrameStats is the per-tick counters Statistics folds into its arrays.
type FrameStats struct {
	Collisions             int
	TransmissionsAttempted int
	TransmissionsAccepted  int
	ActiveMessages         int

	MessageAttempted map[MessageID]int
	MessageAccepted  map[MessageID]int
	CompletedThisTick []*Message
}

// FrameEngine is the single-tick scheduler: a synchronous, half-duplex
// radio model over a fixed Topology and Node set, driving one phase's
// Message set under one Policy.
type FrameEngine struct {
	Topology *Topology
	Nodes    map[NodeID]*Node
	Messages []*Message

	Policy          Policy
	IsLearningPhase bool

	tick int

	logger zerolog.Logger
}

// NewFrameEngine builds an engine over a topology and its nodes. The tick
// counter starts at 0; the first call to Step() executes tick 1.
func NewFrameEngine(topology *Topology, nodes map[NodeID]*Node, policy Policy, isLearningPhase bool, logger zerolog.Logger) *FrameEngine {
	return &FrameEngine{
		Topology:        topology,
		Nodes:           nodes,
		Policy:          policy,
		IsLearningPhase: isLearningPhase,
		logger:          logger.With().Str("component", "frame_engine").Logger(),
	}
}

// Tick returns the ordinal of the frame most recently run (0 before the
// first Step() call).
func (e *FrameEngine) Tick() int {
	return e.tick
}

// Step executes exactly one tick: steps (a)-(j) of spec.md §4.1, in
// order. It returns the emitted snapshot and the per-frame statistics
// contribution.
func (e *FrameEngine) Step() (*FrameSnapshot, *FrameStats) {
	e.tick++
	t := e.tick

	fs := &FrameStats{
		MessageAttempted: make(map[MessageID]int),
		MessageAccepted:  make(map[MessageID]int),
	}

	// (a) Reset.
	for _, n := range e.Nodes {
		n.resetFrameFlags()
	}

	// (b) Designation refresh.
	for _, m := range e.Messages {
		if m.IsActive() && !m.IsCompleted() {
			if src, ok := e.Nodes[m.Source]; ok {
				src.Flags.Source = true
			}
			if dst, ok := e.Nodes[m.Target]; ok {
				dst.Flags.Target = true
			}
		}
	}

	// (c) Admission. New entries land in nextOutbox: per spec.md §5, a
	// pending_outbox entry produced in tick t is consumed in tick t+1, not
	// the tick that produced it.
	for _, m := range e.Messages {
		if m.IsWaiting() && m.StartFrame == t {
			m.admit()
			if src, ok := e.Nodes[m.Source]; ok {
				src.nextOutbox = append(src.nextOutbox, OutboxEntry{Message: m, Path: Path{m.Source}, Budget: m.HopLimit})
				src.markSeenMessage(m.ID)
			}
			e.logger.Debug().
				Int("tick", t).
				Int("message_id", int(m.ID)).
				Int("source", int(m.Source)).
				Int("target", int(m.Target)).
				Msg("message admitted")
		}
	}

	// (d) Expiry sweep.
	e.expirySweep(t, fs)

	// (e)-(g) Transmission collection, collision detection, delivery.
	records := e.collectTransmissions()
	survivors := e.detectCollisions(t, records, fs)
	e.deliver(survivors, fs)

	// (h) Reception processing.
	e.processReceptions(t, fs)

	// (i) Completion finalization.
	e.finalizeCompletions(fs)

	// Promote next-tick entries now that (c)/(h) have both contributed to
	// them and (i) has pruned anything that completed this tick.
	for _, n := range e.Nodes {
		n.Outbox = n.nextOutbox
		n.nextOutbox = nil
	}

	// Active-message count, taken after processing this tick.
	for _, m := range e.Messages {
		if m.IsActive() && !m.IsCompleted() {
			fs.ActiveMessages++
		}
	}

	snapshot := e.snapshot(t, records)

	// (j) Tick increment already applied at function entry.
	return snapshot, fs
}

// expirySweep implements spec.md §4.1(d). It prunes any already-queued
// transmittable entry whose budget has lapsed, then declares any active,
// uncompleted message with no outbox entry anywhere (in either the
// transmittable set or the next-tick accumulator) stalled.
func (e *FrameEngine) expirySweep(t int, fs *FrameStats) {
	referenced := make(map[MessageID]struct{})

	for _, n := range e.Nodes {
		kept := n.Outbox[:0:0]
		for _, entry := range n.Outbox {
			if entry.Budget <= 0 {
				if !entry.Message.IsCompleted() {
					entry.Message.complete(ReasonHopLimitExceeded)
					fs.CompletedThisTick = append(fs.CompletedThisTick, entry.Message)
					e.logger.Info().
						Int("tick", t).
						Int("message_id", int(entry.Message.ID)).
						Str("reason", string(ReasonHopLimitExceeded)).
						Str("status", entry.Message.Status().String()).
						Msg("message completed")
				}
				continue
			}
			kept = append(kept, entry)
			referenced[entry.Message.ID] = struct{}{}
		}
		n.Outbox = kept

		for _, entry := range n.nextOutbox {
			referenced[entry.Message.ID] = struct{}{}
		}
	}

	for _, m := range e.Messages {
		if !m.IsActive() || m.IsCompleted() {
			continue
		}
		if _, ok := referenced[m.ID]; !ok {
			// No node anywhere still holds a transmittable copy. If the
			// target already accepted one, the message simply ran out of
			// forwarding to do; otherwise it genuinely stalled short of
			// the target.
			reason := ReasonHopLimitExceeded
			if m.TargetReceived() {
				reason = ReasonTargetReached
			}
			m.complete(reason)
			fs.CompletedThisTick = append(fs.CompletedThisTick, m)
			e.logger.Info().
				Int("tick", t).
				Int("message_id", int(m.ID)).
				Str("reason", string(reason)).
				Str("status", m.Status().String()).
				Msg("message completed")
		}
	}
}

// collectTransmissions implements spec.md §4.1(e). Each node with a
// non-empty transmittable outbox computes its routing decision
// concurrently; the errgroup.Wait() below is the barrier spec.md §5
// requires before collision grouping may run on the fully materialized
// record set.
func (e *FrameEngine) collectTransmissions() []transmission {
	type job struct {
		node *Node
	}
	var jobs []job
	for _, n := range e.Nodes {
		if len(n.Outbox) > 0 {
			jobs = append(jobs, job{node: n})
		}
	}

	results := make([][]transmission, len(jobs))
	var g errgroup.Group
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			results[i] = e.collectFromNode(j.node)
			return nil
		})
	}
	_ = g.Wait()

	var all []transmission
	for _, r := range results {
		all = append(all, r...)
	}

	senders := make(map[NodeID]struct{}, len(all))
	for _, r := range all {
		senders[r.sender] = struct{}{}
	}
	for _, j := range jobs {
		if _, sent := senders[j.node.ID]; sent {
			j.node.Flags.Sending = true
		}
		// Entries are consumed exactly once per frame.
		j.node.Outbox = nil
	}

	return all
}

func (e *FrameEngine) collectFromNode(n *Node) []transmission {
	var out []transmission
	for _, entry := range n.Outbox {
		m := entry.Message
		if !m.IsActive() || m.IsCompleted() || entry.Budget <= 0 {
			continue
		}
		receivers := n.routeDecision(m, entry.Path, e.Policy, e.IsLearningPhase)
		for _, r := range receivers {
			out = append(out, transmission{
				sender:   n.ID,
				receiver: r,
				message:  m,
				path:     entry.Path,
				budget:   entry.Budget,
			})
		}
	}
	return out
}

// detectCollisions implements spec.md §4.1(f): any receiver addressed by
// two or more records in this tick is a collision victim and loses all of
// them, regardless of arrival order (spec.md §5).
func (e *FrameEngine) detectCollisions(t int, records []transmission, fs *FrameStats) []transmission {
	byReceiver := make(map[NodeID][]transmission)
	for _, r := range records {
		byReceiver[r.receiver] = append(byReceiver[r.receiver], r)
		fs.TransmissionsAttempted++
		fs.MessageAttempted[r.message.ID]++
	}

	var survivors []transmission
	for receiver, rs := range byReceiver {
		if len(rs) >= 2 {
			if n, ok := e.Nodes[receiver]; ok {
				n.Flags.Collision = true
			}
			fs.Collisions++
			senders := make([]int, 0, len(rs))
			for _, r := range rs {
				senders = append(senders, int(r.sender))
			}
			e.logger.Warn().
				Int("tick", t).
				Int("receiver", int(receiver)).
				Ints("senders", senders).
				Int("count", len(rs)).
				Msg("collision")
			continue
		}
		survivors = append(survivors, rs...)
	}
	return survivors
}

// deliver implements spec.md §4.1(g).
func (e *FrameEngine) deliver(records []transmission, fs *FrameStats) {
	for _, r := range records {
		receiver, ok := e.Nodes[r.receiver]
		if !ok {
			continue
		}
		if receiver.acceptDelivery(r.message.ID, r.sender) {
			receiver.Inbox = append(receiver.Inbox, InboxEntry{
				Message:    r.message,
				Sender:     r.sender,
				SenderPath: r.path,
			})
			receiver.Flags.Receiving = true
			fs.TransmissionsAccepted++
			fs.MessageAccepted[r.message.ID]++
		}
	}
}

// processReceptions implements spec.md §4.1(h). A copy whose hop budget
// is exhausted on arrival is neither forwarded nor completed here: it is
// simply dropped, and the next tick's expiry sweep (d) declares the
// message stalled once no node anywhere still holds a transmittable
// entry for it. This matches spec.md §8 Scenario S5, where the
// hop-exhausted copy's arrival tick and the message's completion tick are
// distinct. Nodes are processed in ascending id order, so new paths are
// appended to a message in a reproducible order.
func (e *FrameEngine) processReceptions(t int, fs *FrameStats) {
	ids := make([]NodeID, 0, len(e.Nodes))
	for id := range e.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		n := e.Nodes[id]
		for _, in := range n.Inbox {
			m := in.Message
			newPath := append(in.SenderPath.Clone(), n.ID)
			m.addPathIfAbsent(newPath)

			n.updateKnowledge(newPath, t)

			hopsUsed := len(newPath) - 1
			budget := m.HopLimit - hopsUsed

			switch {
			case n.ID == m.Target:
				m.markTargetReceived()
			case budget <= 0:
				// Hop budget exhausted: do not forward. Completion, if any,
				// is left to the next tick's expiry sweep.
			default:
				n.nextOutbox = append(n.nextOutbox, OutboxEntry{Message: m, Path: newPath, Budget: budget})
			}
		}
	}
}

// finalizeCompletions implements spec.md §4.1(i). Status assignment
// itself already happened inside Message.complete (called from (d)); this
// step removes stale outbox entries and clears endpoint flags that no
// other active message still needs.
func (e *FrameEngine) finalizeCompletions(fs *FrameStats) {
	if len(fs.CompletedThisTick) == 0 {
		return
	}

	completedIDs := make(map[MessageID]struct{}, len(fs.CompletedThisTick))
	for _, m := range fs.CompletedThisTick {
		completedIDs[m.ID] = struct{}{}
	}

	for _, n := range e.Nodes {
		n.Outbox = pruneCompleted(n.Outbox, completedIDs)
		n.nextOutbox = pruneCompleted(n.nextOutbox, completedIDs)
	}

	for _, m := range fs.CompletedThisTick {
		if !e.endpointStillDesignated(m.Source, roleSource) {
			if n, ok := e.Nodes[m.Source]; ok {
				n.Flags.Source = false
			}
		}
		if !e.endpointStillDesignated(m.Target, roleTarget) {
			if n, ok := e.Nodes[m.Target]; ok {
				n.Flags.Target = false
			}
		}
	}
}

func pruneCompleted(entries []OutboxEntry, completed map[MessageID]struct{}) []OutboxEntry {
	if len(entries) == 0 {
		return entries
	}
	kept := entries[:0:0]
	for _, e := range entries {
		if _, done := completed[e.Message.ID]; done {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

type endpointRole int

const (
	roleSource endpointRole = iota
	roleTarget
)

func (e *FrameEngine) endpointStillDesignated(id NodeID, role endpointRole) bool {
	for _, m := range e.Messages {
		if !m.IsActive() || m.IsCompleted() {
			continue
		}
		switch role {
		case roleSource:
			if m.Source == id {
				return true
			}
		case roleTarget:
			if m.Target == id {
				return true
			}
		}
	}
	return false
}

func (e *FrameEngine) snapshot(t int, records []transmission) *FrameSnapshot {
	trs := make([]TransmissionRecord, 0, len(records))
	for _, r := range records {
		trs = append(trs, TransmissionRecord{Sender: r.sender, Receiver: r.receiver, MessageID: r.message.ID})
	}
	sort.Slice(trs, func(i, j int) bool {
		if trs[i].Sender != trs[j].Sender {
			return trs[i].Sender < trs[j].Sender
		}
		return trs[i].Receiver < trs[j].Receiver
	})

	var collided []NodeID
	nodeStatus := make(map[NodeID]StatusFlags, len(e.Nodes))
	ids := make([]NodeID, 0, len(e.Nodes))
	for id := range e.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		n := e.Nodes[id]
		nodeStatus[id] = n.Flags
		if n.Flags.Collision {
			collided = append(collided, id)
		}
	}

	msgs := make([]MessageSnapshot, 0, len(e.Messages))
	for _, m := range e.Messages {
		msgs = append(msgs, MessageSnapshot{ID: m.ID, State: m.state, Status: m.status, Paths: m.Paths})
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })

	return &FrameSnapshot{
		Tick:          t,
		Transmissions: trs,
		Collisions:    collided,
		NodeStatus:    nodeStatus,
		Messages:      msgs,
	}
}
