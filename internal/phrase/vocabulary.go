// Package phrase renders notification text from templates and a vocabulary
// of interchangeable wordings, so repeated reports do not read like a form
// letter.
package phrase

import (
	"fmt"
	"os"

	yaml "go.yaml.in/yaml/v3"
)

// Entry is one candidate replacement. It carries a singular and a plural
// form; plain-string vocabulary entries use the same text for both.
type Entry struct {
	Singular string
	Plural   string
}

// UnmarshalYAML accepts either a scalar ("gained") or a two-element sequence
// (["follower", "followers"]). YAML being a JSON superset, the same loader
// handles legacy JSON vocabulary files.
func (e *Entry) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		e.Singular, e.Plural = s, s
		return nil
	case yaml.SequenceNode:
		var pair []string
		if err := value.Decode(&pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("vocabulary pair must have exactly 2 elements, got %d", len(pair))
		}
		e.Singular, e.Plural = pair[0], pair[1]
		return nil
	default:
		return fmt.Errorf("vocabulary entry must be a string or [singular, plural] pair")
	}
}

// Pick returns the form matching the quantity: singular only for exactly one.
func (e Entry) Pick(quantity int) string {
	if quantity == 1 {
		return e.Singular
	}
	return e.Plural
}

// Vocabulary maps a template keyword to its candidate replacements.
type Vocabulary map[string][]Entry

// LoadVocabulary reads a vocabulary file (YAML or JSON). It is loaded once at
// startup; a broken vocabulary is a deployment defect and fails fast.
func LoadVocabulary(path string) (Vocabulary, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	var vocab Vocabulary
	if err := yaml.Unmarshal(b, &vocab); err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	for keyword, entries := range vocab {
		if len(entries) == 0 {
			return nil, fmt.Errorf("vocabulary keyword %s has no entries", keyword)
		}
	}
	return vocab, nil
}
