package suggest

import (
	"context"
	"errors"
	"testing"

	"github.com/charmbracelet/log"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func mustBuild(t *testing.T, opts BuildOptions, terms []Term) *Snapshot {
	t.Helper()
	snap, err := NewBuilder(opts).Build(context.Background(), terms)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return snap
}

func assertResults(t *testing.T, got []Completion, want []Completion) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d results %v, want %d results %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBuildAndQuery(t *testing.T) {
	terms := []Term{
		{"car", 80},
		{"cat", 100},
		{"cart", 60},
		{"case", 90},
	}

	testCases := []struct {
		prefix string
		limit  int
		want   []Completion
	}{
		{"c", 4, []Completion{{"cat", 100}, {"case", 90}, {"car", 80}, {"cart", 60}}},
		{"ca", 4, []Completion{{"cat", 100}, {"case", 90}, {"car", 80}, {"cart", 60}}},
		{"car", 4, []Completion{{"car", 80}, {"cart", 60}}},
		{"cat", 4, []Completion{{"cat", 100}}},
		{"x", 4, nil},
		{"card", 4, nil},
		{"c", 2, []Completion{{"cat", 100}, {"case", 90}}},
		// limit above capacity clamps to K
		{"c", 100, []Completion{{"cat", 100}, {"case", 90}, {"car", 80}, {"cart", 60}}},
		// empty prefix returns the global shortlist
		{"", 4, []Completion{{"cat", 100}, {"case", 90}, {"car", 80}, {"cart", 60}}},
	}

	snap := mustBuild(t, BuildOptions{TopK: 4}, terms)
	for _, tc := range testCases {
		assertResults(t, snap.Query(tc.prefix, tc.limit), tc.want)
	}
	if snap.TermCount() != 4 {
		t.Errorf("TermCount = %d, want 4", snap.TermCount())
	}
	if snap.Version() != 1 {
		t.Errorf("Version = %d, want 1", snap.Version())
	}
}

func TestTermIsCompletionOfItself(t *testing.T) {
	snap := mustBuild(t, BuildOptions{}, []Term{{"go", 200}, {"golang", 180}})
	assertResults(t, snap.Query("g", 10), []Completion{{"go", 200}, {"golang", 180}})
	assertResults(t, snap.Query("go", 10), []Completion{{"go", 200}, {"golang", 180}})
}

func TestShortlistCapacityExcludesLowScores(t *testing.T) {
	snap := mustBuild(t, BuildOptions{TopK: 2}, []Term{{"a", 1}, {"ab", 2}, {"ac", 3}})
	// "a" itself scores below the top 2 of its own subtree.
	assertResults(t, snap.Query("a", 2), []Completion{{"ac", 3}, {"ab", 2}})
}

func TestScoreTieBreaksLexicographically(t *testing.T) {
	snap := mustBuild(t, BuildOptions{TopK: 5}, []Term{
		{"beta", 50}, {"alpha", 50}, {"delta", 50}, {"gamma", 70},
	})
	assertResults(t, snap.Query("", 5), []Completion{
		{"gamma", 70}, {"alpha", 50}, {"beta", 50}, {"delta", 50},
	})
}

func TestDuplicateTermKeepsHighestScore(t *testing.T) {
	snap := mustBuild(t, BuildOptions{}, []Term{
		{"cat", 10},
		{"cat", 100},
		{"cat", 50},
	})
	if snap.TermCount() != 1 {
		t.Fatalf("TermCount = %d, want 1", snap.TermCount())
	}
	assertResults(t, snap.Query("c", 10), []Completion{{"cat", 100}})
}

func TestInvalidTermsSkipped(t *testing.T) {
	snap := mustBuild(t, BuildOptions{MaxErrorRate: 0.9}, []Term{
		{"ok", 10},
		{"", 5},
		{"Upper", 5},
		{" padded ", 5},
		{"fine", 20},
	})
	if snap.TermCount() != 2 {
		t.Fatalf("TermCount = %d, want 2", snap.TermCount())
	}
	assertResults(t, snap.Query("", 10), []Completion{{"fine", 20}, {"ok", 10}})
}

func TestErrorRateAbortsBuild(t *testing.T) {
	b := NewBuilder(BuildOptions{MaxErrorRate: 0.25})
	_, err := b.Build(context.Background(), []Term{
		{"ok", 10}, {"", 1}, {"", 1}, {"also ok", 1},
	})
	if !errors.Is(err, ErrInvalidTerm) {
		t.Fatalf("err = %v, want ErrInvalidTerm", err)
	}
}

func TestBuildCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBuilder(BuildOptions{}).Build(ctx, []Term{{"cat", 1}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestVersionsIncrease(t *testing.T) {
	b := NewBuilder(BuildOptions{})
	s1, err := b.Build(context.Background(), []Term{{"a", 1}})
	if err != nil {
		t.Fatal(err)
	}
	s2, err := b.Build(context.Background(), []Term{{"a", 1}})
	if err != nil {
		t.Fatal(err)
	}
	if s2.Version() != s1.Version()+1 {
		t.Fatalf("versions %d, %d not consecutive", s1.Version(), s2.Version())
	}

	b.SetBaseVersion(41)
	s3, err := b.Build(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if s3.Version() != 42 {
		t.Fatalf("Version = %d, want 42", s3.Version())
	}
}

func TestUnicodeTerms(t *testing.T) {
	snap := mustBuild(t, BuildOptions{}, []Term{
		{"café", 90},
		{"cafeteria", 70},
		{"über", 50},
	})
	assertResults(t, snap.Query("caf", 10), []Completion{{"café", 90}, {"cafeteria", 70}})
	assertResults(t, snap.Query("café", 10), []Completion{{"café", 90}})
	assertResults(t, snap.Query("ü", 10), []Completion{{"über", 50}})
}

func TestPrefixCorrectness(t *testing.T) {
	terms := []Term{
		{"alpha", 5}, {"alpine", 9}, {"all", 3}, {"beta", 7},
		{"ba", 2}, {"banana", 8}, {"band", 1}, {"bandana", 4},
	}
	snap := mustBuild(t, BuildOptions{TopK: len(terms)}, terms)

	// With K covering the whole dictionary, every term must appear in the
	// results of each of its prefixes, ranked consistently.
	for _, term := range terms {
		for i := 1; i <= len(term.Text); i++ {
			prefix := term.Text[:i]
			found := false
			var prevScore uint32 = 1<<32 - 1
			for _, c := range snap.Query(prefix, len(terms)) {
				if c.Score > prevScore {
					t.Errorf("prefix %q: results not sorted by descending score", prefix)
				}
				prevScore = c.Score
				if c.Term == term.Text && c.Score == term.Score {
					found = true
				}
			}
			if !found {
				t.Errorf("prefix %q: term %q missing from results", prefix, term.Text)
			}
		}
	}
}

func TestEmptyBuild(t *testing.T) {
	snap := mustBuild(t, BuildOptions{}, nil)
	if snap.TermCount() != 0 {
		t.Fatalf("TermCount = %d, want 0", snap.TermCount())
	}
	if got := snap.Query("", 10); len(got) != 0 {
		t.Fatalf("Query on empty snapshot returned %v", got)
	}
	if got := snap.Query("a", 10); len(got) != 0 {
		t.Fatalf("Query %q on empty snapshot returned %v", "a", got)
	}
}

func TestQueryZeroLimit(t *testing.T) {
	snap := mustBuild(t, BuildOptions{}, []Term{{"a", 1}})
	if got := snap.Query("a", 0); len(got) != 0 {
		t.Fatalf("Query with limit 0 returned %v", got)
	}
}
