package phrase

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadVocabularyYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocabulary.yaml")
	data := `
FOLLOWERS:
  - [follower, followers]
ADDED:
  - gained
  - picked up
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	vocab, err := LoadVocabulary(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := vocab["FOLLOWERS"][0]; got.Singular != "follower" || got.Plural != "followers" {
		t.Fatalf("pair entry mismatch: %+v", got)
	}
	if got := vocab["ADDED"][0]; got.Singular != "gained" || got.Plural != "gained" {
		t.Fatalf("scalar entry mismatch: %+v", got)
	}
}

func TestLoadVocabularyJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocabulary.json")
	data := `{"FOLLOWERS": [["follower", "followers"]], "POSITIVE": ["Great news!"]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	vocab, err := LoadVocabulary(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := vocab["FOLLOWERS"][0].Pick(2); got != "followers" {
		t.Fatalf("unexpected plural: %q", got)
	}
}

func TestLoadVocabularyRejectsBadShapes(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"empty_keyword.yaml": "FOLLOWERS: []\n",
		"long_pair.yaml":     "FOLLOWERS:\n  - [a, b, c]\n",
		"mapping_entry.yaml": "FOLLOWERS:\n  - {a: b}\n",
	}
	for name, data := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if _, err := LoadVocabulary(path); err == nil {
			t.Fatalf("%s: expected load error", name)
		}
	}
}
