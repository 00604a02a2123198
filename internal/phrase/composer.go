package phrase

import (
	"fmt"
	"math/rand"
	"strings"
)

const (
	openMarker  = "{{"
	closeMarker = "}}"

	// DefaultMaxSubstitutions bounds one Render call. The ceiling only exists
	// to guarantee termination when a vocabulary entry expands to text that
	// itself contains a placeholder (a cyclic vocabulary).
	DefaultMaxSubstitutions = 100
	maxSubstitutionCeiling  = 1000
)

// MissingVocabularyError is returned when a template references a keyword the
// vocabulary does not define.
type MissingVocabularyError struct {
	Keyword string
}

func (e *MissingVocabularyError) Error() string {
	return fmt.Sprintf("keyword %s not found in vocabulary", e.Keyword)
}

// Composer substitutes {{KEYWORD}} placeholders with randomly chosen
// vocabulary entries. The random source is injected so tests can pin the
// choice sequence.
type Composer struct {
	vocab   Vocabulary
	maxSubs int
	rng     *rand.Rand
}

func NewComposer(vocab Vocabulary, maxSubs int, rng *rand.Rand) (*Composer, error) {
	if maxSubs == 0 {
		maxSubs = DefaultMaxSubstitutions
	}
	if maxSubs < 1 || maxSubs > maxSubstitutionCeiling {
		return nil, fmt.Errorf("max substitutions must be in [1,%d], got %d", maxSubstitutionCeiling, maxSubs)
	}
	return &Composer{vocab: vocab, maxSubs: maxSubs, rng: rng}, nil
}

// Render replaces placeholders left to right until none remain or the
// substitution ceiling is hit. Quantity selects singular vs plural entries.
//
// An opening marker without a matching close terminates rendering early and
// returns the partially substituted string: malformed input degrades instead
// of crashing a batch.
func (c *Composer) Render(template string, quantity int) (string, error) {
	result := template

	for subs := 0; subs < c.maxSubs; subs++ {
		open := strings.Index(result, openMarker)
		if open == -1 {
			return result, nil
		}
		end := strings.Index(result[open:], closeMarker)
		if end == -1 {
			return result, nil
		}
		end += open

		keyword := result[open+len(openMarker) : end]
		entries, ok := c.vocab[keyword]
		if !ok {
			return "", &MissingVocabularyError{Keyword: keyword}
		}

		entry := entries[c.rng.Intn(len(entries))]
		result = result[:open] + entry.Pick(quantity) + result[end+len(closeMarker):]
	}
	return result, nil
}
