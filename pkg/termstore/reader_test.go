package termstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/termserve/termserve/pkg/suggest"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func writeTerms(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "terms.tsv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadFile(t *testing.T) {
	path := writeTerms(t, "cat\t100\n"+
		"# comment line\n"+
		"\n"+
		"Case \t90\n"+
		"car\t80\n")

	terms, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	want := []suggest.Term{
		{Text: "cat", Score: 100},
		{Text: "case", Score: 90}, // normalized on the way in
		{Text: "car", Score: 80},
	}
	if len(terms) != len(want) {
		t.Fatalf("got %d terms %v, want %d", len(terms), terms, len(want))
	}
	for i := range want {
		if terms[i] != want[i] {
			t.Errorf("term %d: got %v, want %v", i, terms[i], want[i])
		}
	}
}

func TestReadFileMalformedLines(t *testing.T) {
	path := writeTerms(t, "good\t10\n"+
		"no score column\n"+
		"negative\t-5\n"+
		"notanumber\tabc\n")

	terms, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(terms) != 4 {
		t.Fatalf("got %d records, want 4 (malformed lines kept as invalid records)", len(terms))
	}
	// Malformed lines surface as empty records for the builder's skip policy.
	for _, rec := range terms[1:] {
		if rec.Text != "" {
			t.Errorf("malformed line produced non-empty record %v", rec)
		}
	}
	if terms[0] != (suggest.Term{Text: "good", Score: 10}) {
		t.Errorf("good record mangled: %v", terms[0])
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "absent.tsv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
