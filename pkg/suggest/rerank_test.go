package suggest

import "testing"

func TestRerank(t *testing.T) {
	base := []Completion{{"cat", 100}, {"case", 90}, {"car", 80}}

	testCases := []struct {
		name   string
		boosts map[string]float64
		want   []Completion
	}{
		{"nil boosts pass through", nil, base},
		{"neutral boosts keep order", map[string]float64{"cat": 1.0}, base},
		{
			"boost promotes an entry",
			map[string]float64{"car": 2.0},
			[]Completion{{"car", 80}, {"cat", 100}, {"case", 90}},
		},
		{
			"demotion pushes an entry down",
			map[string]float64{"cat": 0.5},
			[]Completion{{"case", 90}, {"car", 80}, {"cat", 100}},
		},
		{
			"boosted ties fall back to lexicographic order",
			map[string]float64{"case": 0.0, "cat": 0.0, "car": 0.0},
			[]Completion{{"car", 80}, {"case", 90}, {"cat", 100}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Rerank(base, tc.boosts)
			assertResults(t, got, tc.want)
			// Rerank is pure over the base slice.
			assertResults(t, base, []Completion{{"cat", 100}, {"case", 90}, {"car", 80}})
		})
	}
}

func TestRerankKeepsScores(t *testing.T) {
	base := []Completion{{"a", 10}, {"b", 20}}
	got := Rerank(base, map[string]float64{"a": 100})
	if got[0].Score != 10 {
		t.Fatalf("rerank mutated stored score: %v", got)
	}
}
