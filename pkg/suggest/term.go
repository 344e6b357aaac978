package suggest

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxTermLen bounds term length in bytes. Terms longer than this are
// rejected during a build and prefixes longer than this are rejected by the
// serving layer.
const DefaultMaxTermLen = 256

// ErrInvalidTerm marks a build input record that violates normalization or
// score constraints. The builder skips such records instead of aborting,
// up to a configurable error-rate threshold.
var ErrInvalidTerm = errors.New("invalid term")

// Term is one normalized build input record: the full term text plus its
// popularity score.
type Term struct {
	Text  string
	Score uint32
}

// Completion is one ranked entry returned from a prefix query.
type Completion struct {
	Term  string
	Score uint32
}

// NormalizeTerm lowercases and trims surrounding whitespace, the same
// normalization the builder applies to every input record. Query prefixes
// must go through the same function or lookups silently miss.
func NormalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateTerm checks that a record is already normalized and within bounds.
// The builder treats any returned error as a skippable ErrInvalidTerm.
func ValidateTerm(t Term, maxLen int) error {
	if t.Text == "" {
		return fmt.Errorf("%w: empty text", ErrInvalidTerm)
	}
	if len(t.Text) > maxLen {
		return fmt.Errorf("%w: %q exceeds %d bytes", ErrInvalidTerm, truncateForLog(t.Text), maxLen)
	}
	if t.Text != NormalizeTerm(t.Text) {
		return fmt.Errorf("%w: %q is not normalized", ErrInvalidTerm, truncateForLog(t.Text))
	}
	if !utf8.ValidString(t.Text) {
		return fmt.Errorf("%w: %q contains invalid UTF-8", ErrInvalidTerm, truncateForLog(t.Text))
	}
	return nil
}

// truncateForLog keeps malformed inputs from flooding log lines.
func truncateForLog(s string) string {
	const max = 32
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
