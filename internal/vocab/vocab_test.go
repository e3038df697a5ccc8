package vocab

import (
	"testing"
)

const goodVocab = `
lists:
  race:
    - value: White
      synonyms: [Caucasian]
      codes:
        - system: NCIt
          code: C41261
    - value: Asian
  primary_site:
    - value: Lung
      codes:
        - system: UBERON
          code: UBERON:0002048
    - value: Chest Wall
    - value: Breast
`

func TestParse(t *testing.T) {
	idx, err := Parse([]byte(goodVocab))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := idx.Names()
	if len(names) != 2 || names[0] != "race" || names[1] != "primary_site" {
		t.Errorf("unexpected list names: %v", names)
	}

	race := idx.List("race")
	if race == nil {
		t.Fatal("race list missing")
	}
	if entry := race.Canonical("white"); entry == nil || entry.Value != "White" {
		t.Errorf("canonical lookup failed: %v", entry)
	}
	if entry := race.Synonym("caucasian"); entry == nil || entry.Value != "White" {
		t.Errorf("synonym lookup failed: %v", entry)
	}
	if entry := race.ByCode("c41261"); entry == nil || entry.Value != "White" {
		t.Errorf("code lookup failed: %v", entry)
	}
	if idx.Has("no_such_list") {
		t.Error("Has should be false for unknown list")
	}
}

func TestParseDuplicateCanonical(t *testing.T) {
	doc := `
lists:
  race:
    - value: White
    - value: white
`
	if _, err := Parse([]byte(doc)); err == nil {
		t.Error("expected error for duplicate canonical value")
	}
}

func TestParseAmbiguousSynonym(t *testing.T) {
	doc := `
lists:
  race:
    - value: White
      synonyms: [Pale]
    - value: Asian
      synonyms: [Pale]
`
	if _, err := Parse([]byte(doc)); err == nil {
		t.Error("expected error for synonym pointing at two values")
	}
}

func TestParseSynonymCollidesWithCanonical(t *testing.T) {
	doc := `
lists:
  race:
    - value: White
      synonyms: [Asian]
    - value: Asian
`
	if _, err := Parse([]byte(doc)); err == nil {
		t.Error("expected error for synonym colliding with another canonical value")
	}
}
