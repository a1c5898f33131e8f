package mesh

// KnowledgeEntry is one observation of how to reach a destination, learned
// from a path that terminated at this node. parent is this entry's
// predecessor on the path towards self (one hop closer to self than the
// destination); nextHop is this node's own neighbor that delivered the
// observation. Multiple entries per destination are retained: they
// represent distinct observed paths, never deduplicated or pruned within a
// phase (spec.md §3).
type KnowledgeEntry struct {
	Parent       NodeID
	Distance     int
	LearnedFrame int
	NextHop      NodeID
}

// KnowledgeTree is a node-local, append-only index of observed paths,
// keyed by destination. The node itself is implicitly the root and is
// never a key.
type KnowledgeTree map[NodeID][]KnowledgeEntry

// updateKnowledge implements spec.md §4.4: given an observed path
// p = [p0, ..., pk] terminating at this node (pk == n.ID) and the current
// frame ordinal t, append one entry per prefix destination p[i], i in
// [0, k).
func (n *Node) updateKnowledge(p Path, t int) {
	k := len(p) - 1
	for i := 0; i < k; i++ {
		destination := p[i]
		distance := k - i
		parent := n.ID
		if distance >= 2 {
			parent = p[i+1]
		}
		nextHop := p[k-1]

		n.Knowledge[destination] = append(n.Knowledge[destination], KnowledgeEntry{
			Parent:       parent,
			Distance:     distance,
			LearnedFrame: t,
			NextHop:      nextHop,
		})
	}
}

// directChildren returns the destinations that have at least one
// knowledge-tree entry with parent == n.ID, i.e. the distance-1 entries.
func (n *Node) directChildren() []NodeID {
	seen := make(map[NodeID]struct{})
	var out []NodeID
	for dst, entries := range n.Knowledge {
		for _, e := range entries {
			if e.Parent == n.ID {
				if _, ok := seen[dst]; !ok {
					seen[dst] = struct{}{}
					out = append(out, dst)
				}
				break
			}
		}
	}
	return out
}

// belongsToSubtree reports whether x belongs to the subtree rooted at
// direct child c: either x is c itself, or some chain of parent links
// from an entry of x reaches c without passing through self (self is
// never a key, so a chain whose entry has parent == n.ID simply
// terminates) and without revisiting a node.
func (n *Node) belongsToSubtree(x, c NodeID) bool {
	visited := make(map[NodeID]struct{})
	return n.chainReaches(x, c, visited)
}

func (n *Node) chainReaches(x, c NodeID, visited map[NodeID]struct{}) bool {
	if x == c {
		return true
	}
	if _, ok := visited[x]; ok {
		return false
	}
	visited[x] = struct{}{}

	for _, e := range n.Knowledge[x] {
		if e.Parent == n.ID {
			// Chain terminates at self without reaching c.
			continue
		}
		if n.chainReaches(e.Parent, c, visited) {
			return true
		}
	}
	return false
}

// sameSubtree reports whether there exists a single direct child c such
// that both source and target belong to c's subtree (spec.md §4.3).
func (n *Node) sameSubtree(source, target NodeID) bool {
	for _, c := range n.directChildren() {
		if n.belongsToSubtree(source, c) && n.belongsToSubtree(target, c) {
			return true
		}
	}
	return false
}
