package suggest

import (
	"errors"
	"fmt"
)

// ErrCorruptSnapshot marks a snapshot blob whose contents fail checksum or
// structural validation. A load that returns it never yields a partial
// snapshot.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// RawSnapshot is the flat exchange form of a snapshot, used by the snapfile
// codec. It mirrors the arena layout one to one: Nodes[0] is the root and
// child indices always point forward.
type RawSnapshot struct {
	Version   uint32
	TermCount uint32
	TopK      uint32
	Nodes     []RawNode
}

// RawNode is one arena record in exchange form.
type RawNode struct {
	Children []RawChild
	Terminal bool
	Score    uint32
	Top      []Completion
}

// RawChild is one labeled edge in exchange form.
type RawChild struct {
	Label rune
	Index uint32
}

// Export flattens the snapshot for serialization. The returned slices alias
// the snapshot's internal state and must be treated as read-only.
func (s *Snapshot) Export() RawSnapshot {
	raw := RawSnapshot{
		Version:   s.version,
		TermCount: s.termCount,
		TopK:      uint32(s.topK),
		Nodes:     make([]RawNode, len(s.nodes)),
	}
	for i := range s.nodes {
		n := &s.nodes[i]
		rn := RawNode{Terminal: n.terminal, Score: n.score, Top: n.top}
		if len(n.children) > 0 {
			rn.Children = make([]RawChild, len(n.children))
			for j, c := range n.children {
				rn.Children[j] = RawChild{Label: c.label, Index: c.index}
			}
		}
		raw.Nodes[i] = rn
	}
	return raw
}

// FromRaw reconstructs an immutable snapshot from its exchange form,
// validating the structural invariants a well-formed blob must satisfy:
// forward-pointing unique child edges, sorted labels, and shortlists within
// capacity. Any violation yields ErrCorruptSnapshot.
func FromRaw(raw RawSnapshot) (*Snapshot, error) {
	if len(raw.Nodes) == 0 {
		return nil, fmt.Errorf("%w: empty node table", ErrCorruptSnapshot)
	}
	if raw.TopK == 0 {
		return nil, fmt.Errorf("%w: zero top-K capacity", ErrCorruptSnapshot)
	}

	nodes := make([]node, len(raw.Nodes))
	for i, rn := range raw.Nodes {
		if len(rn.Top) > int(raw.TopK) {
			return nil, fmt.Errorf("%w: node %d shortlist exceeds capacity %d", ErrCorruptSnapshot, i, raw.TopK)
		}
		var children []childRef
		if len(rn.Children) > 0 {
			children = make([]childRef, len(rn.Children))
			for j, c := range rn.Children {
				// Forward-only indices keep the structure a strict tree.
				if int(c.Index) <= i || int(c.Index) >= len(raw.Nodes) {
					return nil, fmt.Errorf("%w: node %d has out-of-range child index %d", ErrCorruptSnapshot, i, c.Index)
				}
				if j > 0 && children[j-1].label >= c.Label {
					return nil, fmt.Errorf("%w: node %d has unsorted child labels", ErrCorruptSnapshot, i)
				}
				children[j] = childRef{label: c.Label, index: c.Index}
			}
		}
		top := make([]Completion, len(rn.Top))
		copy(top, rn.Top)
		nodes[i] = node{
			children: children,
			terminal: rn.Terminal,
			score:    rn.Score,
			top:      top,
		}
	}

	return &Snapshot{
		version:   raw.Version,
		termCount: raw.TermCount,
		topK:      int(raw.TopK),
		nodes:     nodes,
	}, nil
}
