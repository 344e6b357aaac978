package snapfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"
	"github.com/termserve/termserve/pkg/suggest"
)

// Encode serializes a snapshot into a single self-contained blob.
// Deserializing the result reproduces the exact node structure, terminal
// scores, and shortlist orderings.
func Encode(snap *suggest.Snapshot) ([]byte, error) {
	raw := snap.Export()

	var nodeTable bytes.Buffer
	var stringTable bytes.Buffer
	// Each distinct term is stored once; shortlist entries across nodes share
	// the same string table slot.
	offsets := make(map[string]uint32)

	for i, n := range raw.Nodes {
		if len(n.Children) > 0xFFFF {
			return nil, fmt.Errorf("node %d has %d children, exceeds format limit", i, len(n.Children))
		}
		writeU16(&nodeTable, uint16(len(n.Children)))
		for _, c := range n.Children {
			writeU32(&nodeTable, uint32(c.Label))
			writeU32(&nodeTable, c.Index)
		}
		var flags byte
		if n.Terminal {
			flags |= flagTerminal
		}
		nodeTable.WriteByte(flags)
		if n.Terminal {
			writeU32(&nodeTable, n.Score)
		}
		writeU16(&nodeTable, uint16(len(n.Top)))
		for _, e := range n.Top {
			off, err := internTerm(&stringTable, offsets, e.Term)
			if err != nil {
				return nil, err
			}
			writeU32(&nodeTable, off)
			writeU32(&nodeTable, e.Score)
		}
	}

	payload := make([]byte, 0, nodeTable.Len()+stringTable.Len())
	payload = append(payload, nodeTable.Bytes()...)
	payload = append(payload, stringTable.Bytes()...)

	out := make([]byte, HeaderSize, HeaderSize+len(payload))
	byteOrder.PutUint32(out[0:4], Magic)
	byteOrder.PutUint32(out[4:8], FormatVersion)
	byteOrder.PutUint32(out[8:12], raw.Version)
	byteOrder.PutUint32(out[12:16], raw.TermCount)
	byteOrder.PutUint32(out[16:20], uint32(len(raw.Nodes)))
	byteOrder.PutUint32(out[20:24], raw.TopK)
	byteOrder.PutUint64(out[24:32], xxhash.Sum64(payload))
	return append(out, payload...), nil
}

// Write encodes snap and publishes it at path atomically: the blob lands in a
// temp file first and is renamed into place, so a reader or watcher never
// observes a half-written snapshot.
func Write(path string, snap *suggest.Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}
	log.Debugf("Wrote snapshot version=%d (%d bytes) to %s", snap.Version(), len(data), path)
	return nil
}

const flagTerminal byte = 1 << 0

func internTerm(stringTable *bytes.Buffer, offsets map[string]uint32, term string) (uint32, error) {
	if off, ok := offsets[term]; ok {
		return off, nil
	}
	if len(term) > 0xFFFF {
		return 0, fmt.Errorf("term of %d bytes exceeds format limit", len(term))
	}
	off := uint32(stringTable.Len())
	offsets[term] = off
	writeU16(stringTable, uint16(len(term)))
	stringTable.WriteString(term)
	return off, nil
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	byteOrder.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	byteOrder.PutUint32(b[:], v)
	buf.Write(b[:])
}
