package standardize

import (
	"testing"

	"dataset-remapper/internal/matcher"
	"dataset-remapper/internal/model"
	"dataset-remapper/internal/table"
	"dataset-remapper/internal/vocab"
)

func buildFixture(t *testing.T, raws []string) (*Standardizer, map[string]*table.EntityRowSet) {
	t.Helper()
	reg, err := model.Parse([]byte(`
entities:
  - name: Subject
    properties:
      - name: subject_id
        required: true
      - name: race
        kind: enum
        vocabulary: race
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	idx, err := vocab.Parse([]byte(`
lists:
  race:
    - value: White
      synonyms: [Caucasian]
    - value: Asian
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rowSet := &table.EntityRowSet{Entity: "Subject", Properties: []string{"subject_id", "race"}}
	for _, raw := range raws {
		row := table.NewEntityRow()
		row.Values["race"] = raw
		rowSet.Rows = append(rowSet.Rows, row)
	}
	rowSets := map[string]*table.EntityRowSet{"Subject": rowSet}
	return New(reg, idx, matcher.DefaultConfig()), rowSets
}

func TestStandardizeBands(t *testing.T) {
	std, rowSets := buildFixture(t, []string{"White", "Caucasian", "Caucasian", "Asain", "zzz", "zzz", ""})
	result := std.Standardize(rowSets)

	if result.Total != 6 {
		t.Errorf("expected 6 examined instances, got %d", result.Total)
	}
	// Caucasian ×2 修正 + Asain ×1 修正
	if result.Corrected != 3 {
		t.Errorf("expected 3 corrected instances, got %d", result.Corrected)
	}

	// 同义词匹配 0.95：静默套用，White 精确命中不算修正
	if len(result.Applied) != 1 {
		t.Fatalf("expected 1 silent correction, got %d", len(result.Applied))
	}
	applied := result.Applied[0]
	if applied.Raw != "Caucasian" || applied.Canonical != "White" || len(applied.RowIDs) != 2 {
		t.Errorf("unexpected silent correction: %+v", applied)
	}

	// 模糊匹配 0.6：套用但列入批量确认
	if len(result.Summary) != 1 {
		t.Fatalf("expected 1 batch-confirm correction, got %d", len(result.Summary))
	}
	summary := result.Summary[0]
	if summary.Raw != "Asain" || summary.Canonical != "Asian" || summary.Method != matcher.MethodFuzzy {
		t.Errorf("unexpected batch-confirm correction: %+v", summary)
	}

	// 无匹配：按唯一原始值只出一条复核项
	if len(result.Review) != 1 {
		t.Fatalf("expected 1 review item, got %d", len(result.Review))
	}
	if len(result.Review[0].RowIDs) != 2 {
		t.Errorf("review item should cover both rows, got %d", len(result.Review[0].RowIDs))
	}

	rows := rowSets["Subject"].Rows
	if rows[1].Values["race"] != "White" || rows[2].Values["race"] != "White" {
		t.Error("synonym correction not propagated to all rows")
	}
	if rows[4].Values["race"] != "zzz" {
		t.Error("review-band value must not be rewritten before a decision")
	}
}

func TestApplyDecisionIdempotent(t *testing.T) {
	std, rowSets := buildFixture(t, []string{"zzz", "zzz", "White"})
	result := std.Standardize(rowSets)

	updated := ApplyDecision(result, "Subject", "race", "zzz", "Asian")
	if updated != 2 {
		t.Fatalf("expected 2 rows updated, got %d", updated)
	}
	corrected := result.Corrected
	for _, row := range rowSets["Subject"].Rows[:2] {
		if row.Values["race"] != "Asian" {
			t.Errorf("decision not propagated, got %q", row.Values["race"])
		}
	}
	if result.Review[0].Chosen != "Asian" {
		t.Errorf("review item should record the decision, got %q", result.Review[0].Chosen)
	}

	// 重复套用同一决定不再改变计数
	if again := ApplyDecision(result, "Subject", "race", "zzz", "Asian"); again != 2 {
		t.Errorf("expected 2 rows on reapply, got %d", again)
	}
	if result.Corrected != corrected {
		t.Errorf("corrected count changed on reapply: %d → %d", corrected, result.Corrected)
	}
}

func TestApplyDecisionUnknown(t *testing.T) {
	std, rowSets := buildFixture(t, []string{"zzz"})
	result := std.Standardize(rowSets)

	if got := ApplyDecision(result, "Subject", "race", "nope", "Asian"); got != 0 {
		t.Errorf("unknown raw value should update nothing, got %d", got)
	}
	if got := ApplyDecision(result, "Subject", "race", "zzz", ""); got != 0 {
		t.Errorf("empty canonical should update nothing, got %d", got)
	}
}
