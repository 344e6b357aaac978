/*
Package snapfile implements the on-disk snapshot format: an immutable,
versioned, checksummed blob holding a flattened completion trie.

Layout, all little-endian:

	header (32 bytes):
	  magic          uint32  "TSNA"
	  format version uint32
	  snap version   uint32
	  term count     uint32
	  node count     uint32
	  top-K capacity uint32
	  checksum       uint64  xxhash64 over everything after the header

	node table: node-count records in pre-order, each
	  child count    uint16
	  per child:     label uint32, child index uint32
	  flags          uint8   bit0 = terminal
	  score          uint32  (terminal nodes only)
	  top count      uint16
	  per entry:     term offset uint32, score uint32

	string table: length-prefixed (uint16) UTF-8 term bytes; term offsets in
	the node table point at the length prefix, relative to the table start.

Nodes carry child relationships as forward indices rather than pointers, so
the loader reconstructs the whole trie into one contiguous arena without
pointer chasing or per-node allocation churn.
*/
package snapfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/termserve/termserve/pkg/suggest"
)

const (
	// Magic identifies a termserve snapshot file ("TSNA").
	Magic uint32 = 0x54534E41
	// FormatVersion is bumped on any incompatible layout change.
	FormatVersion uint32 = 1
	// HeaderSize is the fixed byte length of the file header.
	HeaderSize = 32

	// Sanity bounds; counts beyond these mean a corrupt or hostile blob, not
	// a plausible dictionary.
	maxNodeCount = 1 << 28
	maxTermCount = 1 << 27
	maxTopK      = 1024
)

var byteOrder = binary.LittleEndian

// Header is the decoded fixed-size file header.
type Header struct {
	SnapVersion uint32
	TermCount   uint32
	NodeCount   uint32
	TopK        uint32
	Checksum    uint64
}

func parseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes is smaller than the %d byte header",
			suggest.ErrCorruptSnapshot, len(data), HeaderSize)
	}
	if m := byteOrder.Uint32(data[0:4]); m != Magic {
		return Header{}, fmt.Errorf("%w: bad magic 0x%08x", suggest.ErrCorruptSnapshot, m)
	}
	if v := byteOrder.Uint32(data[4:8]); v != FormatVersion {
		return Header{}, fmt.Errorf("%w: unsupported format version %d", suggest.ErrCorruptSnapshot, v)
	}
	h := Header{
		SnapVersion: byteOrder.Uint32(data[8:12]),
		TermCount:   byteOrder.Uint32(data[12:16]),
		NodeCount:   byteOrder.Uint32(data[16:20]),
		TopK:        byteOrder.Uint32(data[20:24]),
		Checksum:    byteOrder.Uint64(data[24:32]),
	}
	if h.NodeCount == 0 || h.NodeCount > maxNodeCount {
		return Header{}, fmt.Errorf("%w: suspicious node count %d", suggest.ErrCorruptSnapshot, h.NodeCount)
	}
	if h.TermCount > maxTermCount {
		return Header{}, fmt.Errorf("%w: suspicious term count %d", suggest.ErrCorruptSnapshot, h.TermCount)
	}
	if h.TopK == 0 || h.TopK > maxTopK {
		return Header{}, fmt.Errorf("%w: suspicious top-K capacity %d", suggest.ErrCorruptSnapshot, h.TopK)
	}
	return h, nil
}

// Probe reads and validates only the header of a snapshot file, without
// loading the node table. Useful for startup checks and tooling.
func Probe(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("failed to open snapshot %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return Header{}, fmt.Errorf("%w: failed to read header from %s: %v", suggest.ErrCorruptSnapshot, path, err)
	}
	return parseHeader(buf)
}
