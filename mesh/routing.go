package mesh

// routeDecision implements spec.md §4.3. isLearningPhase forces the flood
// rule regardless of policy (the learning phase always floods so that
// knowledge trees get built from full coverage). path is the path that
// delivered this copy to n; it is used only to identify the immediate
// predecessor for anti-ping-pong.
func (n *Node) routeDecision(m *Message, path Path, policy Policy, isLearningPhase bool) []NodeID {
	if n.ID == m.Target {
		return nil
	}

	flood := func() []NodeID {
		var prev NodeID
		hasPrev := false
		if len(path) >= 2 {
			prev = path[len(path)-2]
			hasPrev = true
		}
		out := make([]NodeID, 0, len(n.neighbors))
		for _, nb := range n.neighbors {
			if hasPrev && nb == prev {
				continue
			}
			out = append(out, nb)
		}
		return out
	}

	if policy == PolicyFlood || isLearningPhase {
		return flood()
	}

	// Tree-aware: fall back to flood unless the knowledge tree has
	// observed both endpoints.
	if _, ok := n.Knowledge[m.Source]; !ok {
		return flood()
	}
	if _, ok := n.Knowledge[m.Target]; !ok {
		return flood()
	}

	if n.sameSubtree(m.Source, m.Target) {
		return nil
	}
	return flood()
}
