package suggest

import "sort"

// Rerank reorders a precomputed shortlist with per-request multiplicative
// boosts keyed by term. It is a pure function over the base results: stored
// scores are untouched, only the order changes, and no per-request copy of
// any trie state is involved. Terms absent from boosts keep a neutral 1.0
// weight; entries that tie on boosted score fall back to the usual byte-wise
// tie-break.
func Rerank(base []Completion, boosts map[string]float64) []Completion {
	if len(boosts) == 0 || len(base) == 0 {
		return base
	}
	out := make([]Completion, len(base))
	copy(out, base)
	weighted := func(c Completion) float64 {
		w, ok := boosts[c.Term]
		if !ok {
			w = 1.0
		}
		return float64(c.Score) * w
	}
	sort.SliceStable(out, func(i, j int) bool {
		wi, wj := weighted(out[i]), weighted(out[j])
		if wi != wj {
			return wi > wj
		}
		return out[i].Term < out[j].Term
	})
	return out
}
