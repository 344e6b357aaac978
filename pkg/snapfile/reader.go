package snapfile

import (
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"
	"github.com/termserve/termserve/pkg/suggest"
)

// Decode reconstructs a snapshot from a serialized blob. A truncated blob,
// checksum mismatch, or any structural violation yields
// suggest.ErrCorruptSnapshot; a partially built snapshot is never returned.
func Decode(data []byte) (*suggest.Snapshot, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	payload := data[HeaderSize:]
	if sum := xxhash.Sum64(payload); sum != h.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch (want %016x, got %016x)",
			suggest.ErrCorruptSnapshot, h.Checksum, sum)
	}

	cur := cursor{data: payload}
	raw := suggest.RawSnapshot{
		Version:   h.SnapVersion,
		TermCount: h.TermCount,
		TopK:      h.TopK,
		Nodes:     make([]suggest.RawNode, h.NodeCount),
	}

	// Shortlist entries reference the string table, which trails the node
	// table; record offsets now and resolve once the table boundary is known.
	type pending struct {
		node, entry int
		offset      uint32
	}
	var unresolved []pending

	for i := range raw.Nodes {
		childCount, err := cur.u16()
		if err != nil {
			return nil, err
		}
		n := suggest.RawNode{}
		if childCount > 0 {
			n.Children = make([]suggest.RawChild, childCount)
			for j := range n.Children {
				label, err := cur.u32()
				if err != nil {
					return nil, err
				}
				index, err := cur.u32()
				if err != nil {
					return nil, err
				}
				n.Children[j] = suggest.RawChild{Label: rune(label), Index: index}
			}
		}
		flags, err := cur.u8()
		if err != nil {
			return nil, err
		}
		if flags&flagTerminal != 0 {
			n.Terminal = true
			if n.Score, err = cur.u32(); err != nil {
				return nil, err
			}
		}
		topCount, err := cur.u16()
		if err != nil {
			return nil, err
		}
		if uint32(topCount) > h.TopK {
			return nil, fmt.Errorf("%w: node %d shortlist of %d exceeds top-K %d",
				suggest.ErrCorruptSnapshot, i, topCount, h.TopK)
		}
		n.Top = make([]suggest.Completion, topCount)
		for j := range n.Top {
			off, err := cur.u32()
			if err != nil {
				return nil, err
			}
			score, err := cur.u32()
			if err != nil {
				return nil, err
			}
			n.Top[j] = suggest.Completion{Score: score}
			unresolved = append(unresolved, pending{node: i, entry: j, offset: off})
		}
		raw.Nodes[i] = n
	}

	table := stringTable{data: payload[cur.pos:], cache: make(map[uint32]string)}
	for _, p := range unresolved {
		term, err := table.at(p.offset)
		if err != nil {
			return nil, err
		}
		raw.Nodes[p.node].Top[p.entry].Term = term
	}

	snap, err := suggest.FromRaw(raw)
	if err != nil {
		return nil, err
	}
	log.Debugf("Decoded snapshot version=%d terms=%d nodes=%d", snap.Version(), snap.TermCount(), snap.NodeCount())
	return snap, nil
}

// Read loads and decodes a snapshot file.
func Read(path string) (*suggest.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	snap, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return snap, nil
}

// cursor walks the node table with truncation checks on every read.
type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) need(n int) error {
	if c.pos+n > len(c.data) {
		return fmt.Errorf("%w: node table truncated at byte %d", suggest.ErrCorruptSnapshot, c.pos)
	}
	return nil
}

func (c *cursor) u8() (byte, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.data[c.pos]
	c.pos++
	return v, nil
}

func (c *cursor) u16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := byteOrder.Uint16(c.data[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *cursor) u32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := byteOrder.Uint32(c.data[c.pos:])
	c.pos += 4
	return v, nil
}

// stringTable resolves term offsets, materializing each distinct term string
// once no matter how many shortlists reference it.
type stringTable struct {
	data  []byte
	cache map[uint32]string
}

func (t *stringTable) at(off uint32) (string, error) {
	if s, ok := t.cache[off]; ok {
		return s, nil
	}
	if int(off)+2 > len(t.data) {
		return "", fmt.Errorf("%w: term offset %d outside string table", suggest.ErrCorruptSnapshot, off)
	}
	n := int(byteOrder.Uint16(t.data[off:]))
	start := int(off) + 2
	if start+n > len(t.data) {
		return "", fmt.Errorf("%w: term at offset %d truncated", suggest.ErrCorruptSnapshot, off)
	}
	s := string(t.data[start : start+n])
	t.cache[off] = s
	return s, nil
}
