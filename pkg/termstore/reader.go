// Package termstore reads the build input boundary: an ordered stream of
// (term, score) records produced by the external ETL pipeline. The file form
// is one record per line, term and score separated by a tab.
package termstore

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/termserve/termserve/pkg/suggest"
)

// maxLineBytes bounds a single input line; anything longer is a malformed
// record, not a reason to abort the scan.
const maxLineBytes = 4096

// ReadFile loads all term records from a TSV file. Malformed lines (missing
// score, non-numeric or negative score) are passed through as records with
// empty text so the builder's skip-and-count policy decides whether the batch
// is still acceptable; only I/O failures surface as errors here.
func ReadFile(path string) ([]suggest.Term, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open terms file %s: %w", path, err)
	}
	defer f.Close()

	var terms []suggest.Term
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, maxLineBytes), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, parseLine(line, lineNo))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan terms file %s: %w", path, err)
	}
	log.Debugf("Read %d term records from %s", len(terms), path)
	return terms, nil
}

// parseLine turns one line into a record. Broken lines come back with empty
// text, which the builder rejects as invalid without aborting.
func parseLine(line string, lineNo int) suggest.Term {
	text, scoreStr, ok := strings.Cut(line, "\t")
	if !ok {
		log.Debugf("Line %d has no score column", lineNo)
		return suggest.Term{}
	}
	score, err := strconv.ParseUint(strings.TrimSpace(scoreStr), 10, 32)
	if err != nil {
		log.Debugf("Line %d has invalid score %q: %v", lineNo, scoreStr, err)
		return suggest.Term{}
	}
	return suggest.Term{Text: suggest.NormalizeTerm(text), Score: uint32(score)}
}
