// Package suggest is the core engine: it builds prefix tries with per-node
// top-K completion shortlists, serves ranked prefix queries from immutable
// snapshots, and swaps snapshots atomically under concurrent readers.
package suggest

import "sort"

// Snapshot is one immutable, fully built trie plus its per-node top-K caches.
// Nodes live in a flat arena addressed by index; node 0 is the root and
// children always sit at higher indices than their parent (pre-order layout),
// so the structure is a strict tree by construction.
//
// A Snapshot is never mutated after Build or snapfile.Read returns it, which
// is what makes the lock-free serving path possible.
type Snapshot struct {
	version   uint32
	termCount uint32
	topK      int
	nodes     []node
}

type node struct {
	children []childRef
	terminal bool
	score    uint32
	top      []Completion
}

// childRef links a rune edge label to the child's arena index. Children are
// sorted by label so the query walk can binary search.
type childRef struct {
	label rune
	index uint32
}

// Version returns the monotonically increasing build version.
func (s *Snapshot) Version() uint32 { return s.version }

// TermCount returns the number of complete terms in the snapshot.
func (s *Snapshot) TermCount() uint32 { return s.termCount }

// TopK returns the shortlist capacity the snapshot was built with.
func (s *Snapshot) TopK() int { return s.topK }

// NodeCount returns the size of the node arena.
func (s *Snapshot) NodeCount() int { return len(s.nodes) }

// Query walks the trie along prefix and returns up to limit entries of the
// reached node's precomputed shortlist, best first. The prefix must already
// be normalized the same way build inputs were; a mismatch is an ordinary
// miss, not an error. An empty prefix returns the global top-K. limit is
// clamped to [0, TopK] since the cache never holds more than K entries.
func (s *Snapshot) Query(prefix string, limit int) []Completion {
	if limit <= 0 {
		return nil
	}
	if limit > s.topK {
		limit = s.topK
	}

	cur := uint32(0)
	for _, r := range prefix {
		next, ok := s.nodes[cur].child(r)
		if !ok {
			return nil
		}
		cur = next
	}

	top := s.nodes[cur].top
	if len(top) > limit {
		top = top[:limit]
	}
	// Copy so callers (rerankers in particular) can never touch the cache.
	out := make([]Completion, len(top))
	copy(out, top)
	return out
}

func (n *node) child(r rune) (uint32, bool) {
	i := sort.Search(len(n.children), func(i int) bool {
		return n.children[i].label >= r
	})
	if i < len(n.children) && n.children[i].label == r {
		return n.children[i].index, true
	}
	return 0, false
}
