package mapper

import (
	"testing"

	"dataset-remapper/internal/model"
)

const testSchema = `
entities:
  - name: Subject
    properties:
      - name: subject_id
        required: true
      - name: race
        kind: enum
        vocabulary: race
      - name: age
        kind: number
  - name: Diagnosis
    properties:
      - name: diagnosis_id
        required: true
      - name: primary_site
        kind: enum
        vocabulary: primary_site
    links:
      - to: Subject
        key: subject_id
`

func testRegistry(t *testing.T) *model.Registry {
	t.Helper()
	reg, err := model.Parse([]byte(testSchema))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return reg
}

func TestNameSimilarity(t *testing.T) {
	tests := []struct {
		column   string
		target   TargetRef
		expected float64
		minScore float64
	}{
		{"race", TargetRef{"Subject", "race"}, 1.0, 1.0},
		{"subject_race", TargetRef{"Subject", "race"}, 1.0, 1.0},
		{"PtRace", TargetRef{"Subject", "race"}, 0.8, 0.8},
		{"primarySite", TargetRef{"Diagnosis", "primary_site"}, 1.0, 1.0},
		{"BodySite", TargetRef{"Diagnosis", "primary_site"}, 0.0, 0.3},
		{"xyz", TargetRef{"Subject", "race"}, 0.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.column+"_"+tt.target.String(), func(t *testing.T) {
			score := nameSimilarity(tt.column, tt.target)
			if tt.expected > 0 {
				if score != tt.expected {
					t.Errorf("expected %f, got %f", tt.expected, score)
				}
			} else if score < tt.minScore {
				t.Errorf("expected >= %f, got %f", tt.minScore, score)
			}
		})
	}
}

func TestPropose(t *testing.T) {
	reg := testRegistry(t)
	mapping := New(0).Propose([]string{"PtRace", "SubjectID", "Mystery"}, reg)

	if len(mapping.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(mapping.Entries))
	}

	race := mapping.Entry("PtRace")
	if race == nil || race.Target.String() != "Subject.race" {
		t.Errorf("PtRace should map to Subject.race, got %+v", race)
	}
	if race.Source != SourceProposed {
		t.Errorf("expected proposed source, got %s", race.Source)
	}

	id := mapping.Entry("SubjectID")
	if id == nil || id.Target.String() != "Subject.subject_id" {
		t.Errorf("SubjectID should map to Subject.subject_id, got %+v", id)
	}

	mystery := mapping.Entry("Mystery")
	if mystery == nil || !mystery.Target.IsZero() {
		t.Errorf("Mystery should stay unmapped, got %+v", mystery)
	}
	if len(mapping.Unmapped()) != 1 {
		t.Errorf("expected 1 unmapped entry, got %d", len(mapping.Unmapped()))
	}
}

func TestProposeSkipsInjectedLinkKeys(t *testing.T) {
	reg := testRegistry(t)
	mapping := New(0).Propose([]string{"SubjectID"}, reg)

	// Diagnosis.subject_id 是注入的链接键，不应成为提议目标
	entry := mapping.Entry("SubjectID")
	if entry.Target.Entity == "Diagnosis" {
		t.Errorf("injected link key proposed as target: %+v", entry.Target)
	}
	for _, c := range entry.Candidates {
		if c.Target.Entity == "Diagnosis" && c.Target.Property == "subject_id" {
			t.Errorf("injected link key listed as candidate")
		}
	}
}

func TestApplyOverride(t *testing.T) {
	reg := testRegistry(t)
	mapping := New(0).Propose([]string{"Mystery"}, reg)

	if err := mapping.ApplyOverride(reg, "Mystery", "Diagnosis", "primary_site"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry := mapping.Entry("Mystery")
	if entry.Target.String() != "Diagnosis.primary_site" || entry.Source != SourceOverride {
		t.Errorf("override not applied: %+v", entry)
	}

	if err := mapping.ApplyOverride(reg, "NoSuchColumn", "Diagnosis", "primary_site"); err == nil {
		t.Error("expected error for unknown column")
	}
	if err := mapping.ApplyOverride(reg, "Mystery", "NoSuchEntity", "primary_site"); err == nil {
		t.Error("expected error for unknown entity")
	}
	if err := mapping.ApplyOverride(reg, "Mystery", "Diagnosis", "nope"); err == nil {
		t.Error("expected error for unknown property")
	}
}

func TestValidateCompleteness(t *testing.T) {
	reg := testRegistry(t)
	mapping := New(0).Propose([]string{"Site"}, reg)
	if err := mapping.ApplyOverride(reg, "Site", "Diagnosis", "primary_site"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missing := ValidateCompleteness(mapping, reg)
	if len(missing) != 1 {
		t.Fatalf("expected 1 missing field, got %d: %+v", len(missing), missing)
	}
	if missing[0].Entity != "Diagnosis" || missing[0].Property != "diagnosis_id" {
		t.Errorf("unexpected missing field: %+v", missing[0])
	}
}
