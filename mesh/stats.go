package mesh

import "sort"

// MessageRecord is the per-message statistics row spec.md §4.6 names:
// endpoints, outcome, every discovered path, and per-message transmission
// attribution.
type MessageRecord struct {
	ID          MessageID
	Source      NodeID
	Target      NodeID
	Success     bool
	FinalPath   Path
	Paths       []Path
	Transmitted int
	Accepted    int
	StartFrame  int
	CompletedAt int
}

// FramesElapsed returns the number of ticks between admission and
// completion, or 0 if the message never completed.
func (r MessageRecord) FramesElapsed() int {
	if r.CompletedAt == 0 {
		return 0
	}
	return r.CompletedAt - r.StartFrame
}

// PhaseStats accumulates the per-frame arrays and per-message records
// spec.md §4.6 requires, plus the full per-tick snapshot retention
// SPEC_FULL.md §12 adds for replay/inspection.
type PhaseStats struct {
	Collisions             []int
	TransmissionsAttempted []int
	TransmissionsAccepted  []int
	ActiveMessages         []int

	Messages map[MessageID]*MessageRecord

	Snapshots []*FrameSnapshot
}

// NewPhaseStats returns an empty accumulator ready to record a phase.
func NewPhaseStats() *PhaseStats {
	return &PhaseStats{
		Messages: make(map[MessageID]*MessageRecord),
	}
}

// Record folds one tick's FrameStats and FrameSnapshot into the
// accumulator. Called once per Step() call, in tick order.
func (s *PhaseStats) Record(fs *FrameStats, snap *FrameSnapshot, messages []*Message) {
	s.Collisions = append(s.Collisions, fs.Collisions)
	s.TransmissionsAttempted = append(s.TransmissionsAttempted, fs.TransmissionsAttempted)
	s.TransmissionsAccepted = append(s.TransmissionsAccepted, fs.TransmissionsAccepted)
	s.ActiveMessages = append(s.ActiveMessages, fs.ActiveMessages)
	s.Snapshots = append(s.Snapshots, snap)

	for _, m := range messages {
		rec, ok := s.Messages[m.ID]
		if !ok {
			rec = &MessageRecord{ID: m.ID, Source: m.Source, Target: m.Target, StartFrame: m.StartFrame}
			s.Messages[m.ID] = rec
		}
		rec.Transmitted += fs.MessageAttempted[m.ID]
		rec.Accepted += fs.MessageAccepted[m.ID]
		if m.IsCompleted() && rec.CompletedAt == 0 {
			rec.CompletedAt = snap.Tick
			rec.Success = m.Status() == StatusSuccess
			rec.FinalPath = m.FinalPath()
			rec.Paths = append([]Path(nil), m.Paths...)
		}
	}
}

// TotalCollisions, TotalTransmissionsAttempted, and
// TotalTransmissionsAccepted are the phase-level aggregates spec.md §4.6
// names alongside the per-frame arrays.
func (s *PhaseStats) TotalCollisions() int             { return sumInts(s.Collisions) }
func (s *PhaseStats) TotalTransmissionsAttempted() int { return sumInts(s.TransmissionsAttempted) }
func (s *PhaseStats) TotalTransmissionsAccepted() int  { return sumInts(s.TransmissionsAccepted) }

func sumInts(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

// ComparisonStats is the derived, ratio-bearing view over a PhaseStats
// spec.md §4.6 specifies: network_efficiency, resource_efficiency, and
// average_path_length.
type ComparisonStats struct {
	Policy Policy

	TotalCollisions             int
	TotalTransmissionsAttempted int
	TotalTransmissionsAccepted  int

	MessageCount    int
	SuccessfulCount int

	NetworkEfficiency  float64
	ResourceEfficiency float64
	AverageHops        float64

	Messages []MessageRecord
}

// Derive computes a ComparisonStats snapshot from accumulated PhaseStats,
// per spec.md §4.6's three derived ratios. An attempted count of zero
// yields zero efficiencies rather than dividing by zero.
func (s *PhaseStats) Derive(policy Policy) *ComparisonStats {
	cs := &ComparisonStats{
		Policy:                      policy,
		TotalCollisions:             s.TotalCollisions(),
		TotalTransmissionsAttempted: s.TotalTransmissionsAttempted(),
		TotalTransmissionsAccepted:  s.TotalTransmissionsAccepted(),
		MessageCount:                len(s.Messages),
	}

	var hopSum, hopCount int
	for _, rec := range s.Messages {
		cs.Messages = append(cs.Messages, *rec)
		if rec.Success {
			cs.SuccessfulCount++
			if len(rec.FinalPath) > 0 {
				hopSum += len(rec.FinalPath) - 1
				hopCount++
			}
		}
	}
	sortMessageRecords(cs.Messages)

	if cs.TotalTransmissionsAttempted > 0 {
		cs.NetworkEfficiency = float64(cs.TotalTransmissionsAccepted) / float64(cs.TotalTransmissionsAttempted) * 100
		cs.ResourceEfficiency = float64(cs.SuccessfulCount) / float64(cs.TotalTransmissionsAttempted) * 100
	}
	if hopCount > 0 {
		cs.AverageHops = float64(hopSum) / float64(hopCount)
	}

	return cs
}

func sortMessageRecords(recs []MessageRecord) {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
}
