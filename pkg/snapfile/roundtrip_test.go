package snapfile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termserve/termserve/pkg/suggest"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

var sampleTerms = []suggest.Term{
	{Text: "car", Score: 80},
	{Text: "cat", Score: 100},
	{Text: "cart", Score: 60},
	{Text: "case", Score: 90},
	{Text: "go", Score: 200},
	{Text: "golang", Score: 180},
	{Text: "café", Score: 70},
}

func buildSample(t *testing.T, topK int) *suggest.Snapshot {
	t.Helper()
	b := suggest.NewBuilder(suggest.BuildOptions{TopK: topK})
	snap, err := b.Build(context.Background(), sampleTerms)
	require.NoError(t, err)
	return snap
}

// allPrefixes returns every prefix of every sample term plus a few misses.
func allPrefixes() []string {
	seen := map[string]bool{"": true, "x": true, "cab": true, "golf": true}
	for _, term := range sampleTerms {
		for i := 1; i <= len(term.Text); i++ {
			seen[term.Text[:i]] = true
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	return out
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	snap := buildSample(t, 4)

	data, err := Encode(snap)
	require.NoError(t, err)
	loaded, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, snap.Version(), loaded.Version())
	assert.Equal(t, snap.TermCount(), loaded.TermCount())
	assert.Equal(t, snap.NodeCount(), loaded.NodeCount())
	assert.Equal(t, snap.TopK(), loaded.TopK())

	// Every prefix must rank identically through the round trip.
	for _, prefix := range allPrefixes() {
		assert.Equal(t, snap.Query(prefix, 4), loaded.Query(prefix, 4), "prefix %q", prefix)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	snap := buildSample(t, 4)
	a, err := Encode(snap)
	require.NoError(t, err)
	b, err := Encode(snap)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestWriteReadFile(t *testing.T) {
	snap := buildSample(t, 4)
	path := filepath.Join(t.TempDir(), "nested", "terms.snap")

	require.NoError(t, Write(path, snap))

	h, err := Probe(path)
	require.NoError(t, err)
	assert.Equal(t, snap.Version(), h.SnapVersion)
	assert.Equal(t, snap.TermCount(), h.TermCount)

	loaded, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, snap.Query("ca", 4), loaded.Query("ca", 4))
}

func TestDecodeRejectsCorruptBlobs(t *testing.T) {
	snap := buildSample(t, 4)
	good, err := Encode(snap)
	require.NoError(t, err)

	testCases := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"empty", func(b []byte) []byte { return nil }},
		{"short header", func(b []byte) []byte { return b[:HeaderSize-5] }},
		{"bad magic", func(b []byte) []byte { b[0] ^= 0xFF; return b }},
		{"unsupported format version", func(b []byte) []byte { b[4] = 99; return b }},
		{"truncated payload", func(b []byte) []byte { return b[:len(b)-7] }},
		{"flipped payload byte", func(b []byte) []byte { b[len(b)-3] ^= 0x01; return b }},
		{"flipped checksum", func(b []byte) []byte { b[24] ^= 0x01; return b }},
		{"zero node count", func(b []byte) []byte {
			byteOrder.PutUint32(b[16:20], 0)
			return b
		}},
		{"absurd top-K", func(b []byte) []byte {
			byteOrder.PutUint32(b[20:24], 1<<20)
			return b
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			blob := tc.mutate(append([]byte(nil), good...))
			_, err := Decode(blob)
			assert.ErrorIs(t, err, suggest.ErrCorruptSnapshot)
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.snap"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, suggest.ErrCorruptSnapshot)
}

func TestRoundTripEmptySnapshot(t *testing.T) {
	b := suggest.NewBuilder(suggest.BuildOptions{})
	snap, err := b.Build(context.Background(), nil)
	require.NoError(t, err)

	data, err := Encode(snap)
	require.NoError(t, err)
	loaded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), loaded.TermCount())
	assert.Empty(t, loaded.Query("", 10))
}
