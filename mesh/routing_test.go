package mesh

import (
	"reflect"
	"sort"
	"testing"
)

func sortedIDs(ids []NodeID) []NodeID {
	out := append([]NodeID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestRouteDecisionFloodExcludesPredecessor(t *testing.T) {
	n := NewNode(1, []NodeID{0, 2, 3})
	m := NewMessage(1, 0, 3, 4, 1)
	m.admit()

	got := n.routeDecision(m, Path{0, 1}, PolicyFlood, false)
	want := []NodeID{2, 3}
	if !reflect.DeepEqual(sortedIDs(got), want) {
		t.Errorf("routeDecision() = %v, want %v", got, want)
	}
}

func TestRouteDecisionTargetForwardsNothing(t *testing.T) {
	n := NewNode(3, []NodeID{1, 2})
	m := NewMessage(1, 0, 3, 4, 1)
	m.admit()

	got := n.routeDecision(m, Path{0, 1, 3}, PolicyFlood, false)
	if got != nil {
		t.Errorf("routeDecision() at target = %v, want nil", got)
	}
}

func TestRouteDecisionLearningPhaseAlwaysFloods(t *testing.T) {
	n := NewNode(1, []NodeID{0, 2})
	n.Knowledge[0] = []KnowledgeEntry{{Parent: 1, Distance: 1, NextHop: 0}}
	n.Knowledge[3] = []KnowledgeEntry{{Parent: 2, Distance: 2, NextHop: 2}}
	m := NewMessage(1, 0, 3, 4, 1)
	m.admit()

	got := n.routeDecision(m, Path{0, 1}, PolicyTreeAware, true)
	if !reflect.DeepEqual(sortedIDs(got), []NodeID{2}) {
		t.Errorf("learning phase should flood regardless of tree knowledge, got %v", got)
	}
}

func TestRouteDecisionTreeAwareFallsBackWithoutKnowledge(t *testing.T) {
	n := NewNode(1, []NodeID{0, 2})
	m := NewMessage(1, 0, 3, 4, 1)
	m.admit()

	got := n.routeDecision(m, Path{0, 1}, PolicyTreeAware, false)
	if !reflect.DeepEqual(sortedIDs(got), []NodeID{2}) {
		t.Errorf("tree_aware without knowledge of both endpoints should flood, got %v", got)
	}
}

func TestRouteDecisionTreeAwareSuppressesWhenSameSubtree(t *testing.T) {
	n := NewNode(0, []NodeID{1, 4})
	buildKnowledgeFromChain(n, Path{2, 1, 0})
	buildKnowledgeFromChain(n, Path{3, 2, 1, 0})
	buildKnowledgeFromChain(n, Path{1, 0})

	m := NewMessage(1, 2, 3, 4, 1)
	m.admit()

	got := n.routeDecision(m, Path{2, 1, 0}, PolicyTreeAware, false)
	if got != nil {
		t.Errorf("source and target in the same child subtree should suppress forwarding, got %v", got)
	}
}
