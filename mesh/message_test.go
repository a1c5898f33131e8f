package mesh

import "testing"

func TestMessageAdmit(t *testing.T) {
	m := NewMessage(1, 0, 3, 4, 1)
	if !m.IsWaiting() {
		t.Fatalf("new message should be waiting")
	}

	m.admit()
	if !m.IsActive() {
		t.Errorf("admitted message should be active")
	}
	if len(m.Paths) != 1 || !m.Paths[0].Equal(Path{0}) {
		t.Errorf("admit() should seed Paths with the source-only path, got %v", m.Paths)
	}
}

func TestMessageAddPathIfAbsent(t *testing.T) {
	m := NewMessage(1, 0, 2, 4, 1)
	m.admit()

	if !m.addPathIfAbsent(Path{0, 1, 2}) {
		t.Errorf("first occurrence of a path should be added")
	}
	if m.addPathIfAbsent(Path{0, 1, 2}) {
		t.Errorf("duplicate path should not be added again")
	}
	if len(m.Paths) != 2 {
		t.Errorf("Paths should have 2 entries (seed + new), got %d", len(m.Paths))
	}
}

func TestMessageCompleteIdempotent(t *testing.T) {
	m := NewMessage(1, 0, 2, 4, 1)
	m.admit()
	m.markTargetReceived()

	m.complete(ReasonTargetReached)
	if m.Status() != StatusSuccess {
		t.Fatalf("Status() = %v, want StatusSuccess", m.Status())
	}

	m.complete(ReasonHopLimitExceeded)
	if m.CompletionReason() != ReasonTargetReached {
		t.Errorf("second complete() call should be a no-op, reason changed to %v", m.CompletionReason())
	}
}

func TestMessageCompleteWithoutTargetReceivedIsFailed(t *testing.T) {
	m := NewMessage(1, 0, 2, 4, 1)
	m.admit()
	m.complete(ReasonHopLimitExceeded)

	if m.Status() != StatusFailed {
		t.Errorf("Status() = %v, want StatusFailed", m.Status())
	}
}

func TestMessageFinalPath(t *testing.T) {
	m := NewMessage(1, 0, 3, 4, 1)
	m.admit()
	m.addPathIfAbsent(Path{0, 1, 3})
	m.addPathIfAbsent(Path{0, 2, 1, 3})
	m.addPathIfAbsent(Path{0, 1})

	final := m.FinalPath()
	if !final.Equal(Path{0, 2, 1, 3}) {
		t.Errorf("FinalPath() = %v, want the longest path reaching target", final)
	}
}

func TestMessageReset(t *testing.T) {
	m := NewMessage(1, 0, 2, 4, 1)
	m.admit()
	m.markTargetReceived()
	m.complete(ReasonTargetReached)

	m.reset()

	if !m.IsWaiting() {
		t.Errorf("reset message should be waiting")
	}
	if m.TargetReceived() {
		t.Errorf("reset should clear targetReceived")
	}
	if m.Status() != StatusNone {
		t.Errorf("reset should clear status")
	}
	if m.Source != 0 || m.Target != 2 {
		t.Errorf("reset should preserve identity, got source=%d target=%d", m.Source, m.Target)
	}
}
