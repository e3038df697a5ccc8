package matcher

import (
	"testing"

	"dataset-remapper/internal/vocab"
)

func testIndex(t *testing.T) *vocab.Index {
	t.Helper()
	idx, err := vocab.Parse([]byte(`
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
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return idx
}

func TestMatchCascade(t *testing.T) {
	m := New(testIndex(t), DefaultConfig())

	tests := []struct {
		list       string
		raw        string
		best       string
		method     Method
		confidence float64
	}{
		{"race", "White", "White", MethodExact, 1.0},
		{"race", "white", "White", MethodExact, 1.0},
		{"race", "Caucasian", "White", MethodSynonym, 0.95},
		{"race", "C41261", "White", MethodOntology, 0.9},
		{"primary_site", "UBERON:0002048", "Lung", MethodOntology, 0.9},
		{"primary_site", "Lung, NOS", "Lung", MethodNormalized, 0.85},
		{"primary_site", "  chest   wall ", "Chest Wall", MethodNormalized, 0.85},
		{"primary_site", "Lng", "Lung", MethodFuzzy, 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := m.Match(tt.list, tt.raw)
			if got.Best != tt.best {
				t.Errorf("best: expected %q, got %q", tt.best, got.Best)
			}
			if got.Method != tt.method {
				t.Errorf("method: expected %s, got %s", tt.method, got.Method)
			}
			if got.Confidence != tt.confidence {
				t.Errorf("confidence: expected %f, got %f", tt.confidence, got.Confidence)
			}
		})
	}
}

func TestMatchBelowFloor(t *testing.T) {
	m := New(testIndex(t), DefaultConfig())

	got := m.Match("primary_site", "zzzzzzzz")
	if got.Method != MethodNone {
		t.Errorf("expected none, got %s", got.Method)
	}
	if got.Best != "" {
		t.Errorf("no value should be selected below floor, got %q", got.Best)
	}
	for _, alt := range got.Alternatives {
		if alt.Score >= m.Floor() {
			t.Errorf("alternative %q scored %f, should have been selected", alt.Value, alt.Score)
		}
	}
}

func TestMatchParentPromotion(t *testing.T) {
	m := New(testIndex(t), DefaultConfig())

	// 剥离限定词后包含标准值 Lung，但整体相似度在下限之下：
	// 不自动选定，父类目排在候选首位
	got := m.Match("primary_site", "Left Upper Lung, NOS")
	if got.Method != MethodNone {
		t.Fatalf("expected none, got %s (best %q)", got.Method, got.Best)
	}
	if len(got.Alternatives) == 0 {
		t.Fatal("expected alternatives")
	}
	if got.Alternatives[0].Value != "Lung" {
		t.Errorf("expected Lung ranked first, got %q", got.Alternatives[0].Value)
	}
}

func TestMatchUnknownListAndBlank(t *testing.T) {
	m := New(testIndex(t), DefaultConfig())

	if got := m.Match("no_such_list", "White"); got.Method != MethodNone {
		t.Errorf("unknown list should yield none, got %s", got.Method)
	}
	if got := m.Match("race", "   "); got.Method != MethodNone {
		t.Errorf("blank value should yield none, got %s", got.Method)
	}
}

func TestStripQualifiers(t *testing.T) {
	m := New(testIndex(t), DefaultConfig())

	tests := []struct {
		in       string
		expected string
	}{
		{"lung nos", "lung"},
		{"lung not otherwise specified", "lung"},
		{"lung nos unspecified", "lung"},
		{"lung", "lung"},
	}
	for _, tt := range tests {
		if got := m.stripQualifiers(tt.in); got != tt.expected {
			t.Errorf("stripQualifiers(%q): expected %q, got %q", tt.in, tt.expected, got)
		}
	}
}

func TestLooksLikeCode(t *testing.T) {
	tests := []struct {
		in       string
		expected bool
	}{
		{"C41261", true},
		{"UBERON:0002048", true},
		{"icd-10", true},
		{"Lung", false},
		{"Chest Wall", false},
	}
	for _, tt := range tests {
		if got := looksLikeCode(tt.in); got != tt.expected {
			t.Errorf("looksLikeCode(%q): expected %v, got %v", tt.in, tt.expected, got)
		}
	}
}
