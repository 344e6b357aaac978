package suggest

import (
	"context"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// DefaultTopK is the shortlist capacity used when BuildOptions leaves it zero.
const DefaultTopK = 10

// BuildOptions carries the explicit knobs a build cycle runs with. The
// surrounding service supplies these from config; the builder has no ambient
// state of its own.
type BuildOptions struct {
	// TopK is the per-node shortlist capacity.
	TopK int
	// MaxTermLen bounds accepted term length in bytes.
	MaxTermLen int
	// MaxErrorRate is the fraction of invalid input records tolerated before
	// the whole build aborts instead of skipping.
	MaxErrorRate float64
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.MaxTermLen <= 0 {
		o.MaxTermLen = DefaultMaxTermLen
	}
	return o
}

// Builder constructs immutable snapshots from term streams. Successive builds
// from the same Builder get strictly increasing snapshot versions.
//
// A Builder is not safe for concurrent Build calls; build cycles are expected
// to run one at a time on a background task.
type Builder struct {
	opts        BuildOptions
	nextVersion uint32
}

// NewBuilder returns a Builder whose first snapshot will carry version 1.
func NewBuilder(opts BuildOptions) *Builder {
	return &Builder{opts: opts.withDefaults(), nextVersion: 1}
}

// SetBaseVersion makes the next build produce version v+1. Used after loading
// a bootstrap snapshot so versions keep increasing across restarts.
func (b *Builder) SetBaseVersion(v uint32) {
	if v >= b.nextVersion {
		b.nextVersion = v + 1
	}
}

// Build materializes a snapshot from the given term records. Invalid records
// are skipped and logged; the build aborts only when the invalid fraction
// exceeds MaxErrorRate. Duplicate terms keep the highest score seen. The
// context is checked between phases and periodically inside them, so a
// superseded build can be discarded without ever being installed.
func (b *Builder) Build(ctx context.Context, terms []Term) (*Snapshot, error) {
	working := patricia.NewTrie()

	skipped := 0
	kept := 0
	for i, t := range terms {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("build cancelled: %w", err)
			}
		}
		if err := ValidateTerm(t, b.opts.MaxTermLen); err != nil {
			skipped++
			log.Debugf("Skipping term record %d: %v", i, err)
			continue
		}
		// Duplicate terms overwrite only with a higher score, so the stored
		// score is the max over all occurrences.
		if prev := working.Get(patricia.Prefix(t.Text)); prev != nil {
			if prev.(uint32) >= t.Score {
				continue
			}
		} else {
			kept++
		}
		working.Set(patricia.Prefix(t.Text), t.Score)
	}

	if len(terms) > 0 {
		rate := float64(skipped) / float64(len(terms))
		if rate > b.opts.MaxErrorRate {
			return nil, fmt.Errorf("%w: %d of %d records invalid (rate %.3f exceeds %.3f)",
				ErrInvalidTerm, skipped, len(terms), rate, b.opts.MaxErrorRate)
		}
		if skipped > 0 {
			log.Warnf("Build skipped %d of %d invalid term records", skipped, len(terms))
		}
	}

	unique := collectSorted(working, kept)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build cancelled: %w", err)
	}

	nodes, termOf := buildArena(unique)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build cancelled: %w", err)
	}
	computeShortlists(nodes, termOf, b.opts.TopK)

	snap := &Snapshot{
		version:   b.nextVersion,
		termCount: uint32(len(unique)),
		topK:      b.opts.TopK,
		nodes:     nodes,
	}
	b.nextVersion++
	log.Debugf("Built snapshot version=%d terms=%d nodes=%d topK=%d",
		snap.version, snap.termCount, len(nodes), snap.topK)
	return snap, nil
}

// collectSorted drains the working trie into byte-wise sorted (term, score)
// pairs. Patricia visit order is not guaranteed, so sort explicitly.
func collectSorted(working *patricia.Trie, count int) []Term {
	out := make([]Term, 0, count)
	_ = working.Visit(func(p patricia.Prefix, item patricia.Item) error {
		out = append(out, Term{Text: string(p), Score: item.(uint32)})
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	return out
}

// buildArena inserts lexicographically sorted terms into a flat node arena.
// Sorted insertion only ever extends the rightmost path, which yields a
// pre-order layout with ascending child labels for free: every child index is
// greater than its parent's, and sibling edges are already sorted.
//
// termOf holds, for each terminal node index, the complete term it spells;
// the shortlist pass needs the full text without re-walking the tree.
func buildArena(sorted []Term) ([]node, []string) {
	nodes := make([]node, 1, 1+len(sorted)*2)
	termOf := make([]string, 1, 1+len(sorted)*2)

	// path[i] is the arena index of the node at rune depth i along the most
	// recently inserted term; path[0] is the root.
	path := []uint32{0}
	prev := ""

	for _, t := range sorted {
		common := commonRuneDepth(prev, t.Text)
		path = path[:common+1]

		for _, r := range t.Text[runeDepthToBytes(t.Text, common):] {
			parent := path[len(path)-1]
			idx := uint32(len(nodes))
			nodes = append(nodes, node{})
			termOf = append(termOf, "")
			nodes[parent].children = append(nodes[parent].children, childRef{label: r, index: idx})
			path = append(path, idx)
		}

		leaf := path[len(path)-1]
		nodes[leaf].terminal = true
		nodes[leaf].score = t.Score
		termOf[leaf] = t.Text
		prev = t.Text
	}
	return nodes, termOf
}

// commonRuneDepth counts the leading runes shared by a and b.
func commonRuneDepth(a, b string) int {
	n := 0
	for len(a) > 0 && len(b) > 0 {
		ra, sa := utf8.DecodeRuneInString(a)
		rb, sb := utf8.DecodeRuneInString(b)
		if ra != rb {
			break
		}
		a, b = a[sa:], b[sb:]
		n++
	}
	return n
}

// runeDepthToBytes converts a rune depth into the byte offset within s.
func runeDepthToBytes(s string, depth int) int {
	off := 0
	for i := 0; i < depth; i++ {
		_, size := utf8.DecodeRuneInString(s[off:])
		off += size
	}
	return off
}

// computeShortlists fills every node's top-K cache in a single post-order
// pass. The arena is laid out pre-order, so walking indices backwards always
// visits children before their parent; each merge then only has to consider
// the node's own terminal entry plus at most K entries per child, bounding
// the cost to O(branching x K) per node instead of O(descendants).
func computeShortlists(nodes []node, termOf []string, topK int) {
	scratch := make([]Completion, 0, 64)
	for i := len(nodes) - 1; i >= 0; i-- {
		n := &nodes[i]
		scratch = scratch[:0]
		if n.terminal {
			scratch = append(scratch, Completion{Term: termOf[i], Score: n.score})
		}
		for _, c := range n.children {
			scratch = append(scratch, nodes[c.index].top...)
		}
		sortCompletions(scratch)
		if len(scratch) > topK {
			scratch = scratch[:topK]
		}
		n.top = make([]Completion, len(scratch))
		copy(n.top, scratch)
	}
}

// sortCompletions orders by descending score, then ascending byte-wise
// lexicographic on the normalized term. The byte-wise tie-break is the fixed
// comparator for terms that collide on score after normalization.
func sortCompletions(cs []Completion) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Score != cs[j].Score {
			return cs[i].Score > cs[j].Score
		}
		return cs[i].Term < cs[j].Term
	})
}
