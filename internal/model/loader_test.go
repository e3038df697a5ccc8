package model

import (
	"testing"

	"dataset-remapper/internal/vocab"
)

const goodSchema = `
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
      - name: diagnosis_date
        kind: date
    links:
      - to: Subject
        key: subject_id
`

func TestParseInjectsLinkKey(t *testing.T) {
	reg, err := Parse([]byte(goodSchema))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	diagnosis := reg.Entity("Diagnosis")
	if diagnosis == nil {
		t.Fatal("Diagnosis entity missing")
	}
	key := diagnosis.Property("subject_id")
	if key == nil {
		t.Fatal("link key subject_id not injected into Diagnosis")
	}
	if !key.FromLink {
		t.Error("injected key should be marked FromLink")
	}
	if key.Kind != KindText {
		t.Errorf("injected key should copy target kind, got %s", key.Kind)
	}

	// 源实体已声明同名属性时不重复注入
	subject := reg.Entity("Subject")
	count := 0
	for _, p := range subject.Properties {
		if p.Name == "subject_id" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("subject_id declared %d times on Subject", count)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			"duplicate entity",
			`
entities:
  - name: Subject
    properties:
      - name: subject_id
  - name: Subject
    properties:
      - name: other
`,
		},
		{
			"link to unknown entity",
			`
entities:
  - name: Diagnosis
    properties:
      - name: diagnosis_id
    links:
      - to: Subject
        key: subject_id
`,
		},
		{
			"link key not a property of target",
			`
entities:
  - name: Subject
    properties:
      - name: subject_id
  - name: Diagnosis
    properties:
      - name: diagnosis_id
    links:
      - to: Subject
        key: nope
`,
		},
		{
			"enum without vocabulary",
			`
entities:
  - name: Subject
    properties:
      - name: race
        kind: enum
`,
		},
		{
			"unknown kind",
			`
entities:
  - name: Subject
    properties:
      - name: age
        kind: float
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestValidateVocabRefs(t *testing.T) {
	reg, err := Parse([]byte(goodSchema))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	idx, err := vocab.Parse([]byte(`
lists:
  race:
    - value: White
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// primary_site 未定义
	if err := reg.ValidateVocabRefs(idx); err == nil {
		t.Error("expected error for missing vocabulary list")
	}

	idx, err = vocab.Parse([]byte(`
lists:
  race:
    - value: White
  primary_site:
    - value: Lung
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.ValidateVocabRefs(idx); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
