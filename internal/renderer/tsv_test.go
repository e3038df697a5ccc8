package renderer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dataset-remapper/internal/model"
	"dataset-remapper/internal/table"
)

func buildRowSets(t *testing.T) (*model.Registry, map[string]*table.EntityRowSet) {
	t.Helper()
	reg, err := model.Parse([]byte(`
entities:
  - name: Subject
    properties:
      - name: subject_id
        required: true
      - name: race
      - name: age
        kind: number
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rowSet := &table.EntityRowSet{
		Entity:     "Subject",
		Properties: []string{"subject_id", "race", "age"},
	}
	for _, v := range [][3]string{{"S1", "White", "63"}, {"S2", "Asian", ""}} {
		row := table.NewEntityRow()
		row.Values["subject_id"] = v[0]
		row.Values["race"] = v[1]
		row.Values["age"] = v[2]
		rowSet.Rows = append(rowSet.Rows, row)
	}
	return reg, map[string]*table.EntityRowSet{"Subject": rowSet}
}

func TestWriteAll(t *testing.T) {
	reg, rowSets := buildRowSets(t)
	dir := t.TempDir()

	paths, err := NewTSVWriter(dir).WriteAll(reg, rowSets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected 1 file, got %d", len(paths))
	}
	if filepath.Base(paths[0]) != "subject.tsv" {
		t.Errorf("expected subject.tsv, got %s", filepath.Base(paths[0]))
	}

	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "subject_id\trace\tage" {
		t.Errorf("column order should follow schema, got %q", lines[0])
	}
	if lines[1] != "S1\tWhite\t63" {
		t.Errorf("unexpected first row: %q", lines[1])
	}
	if lines[2] != "S2\tAsian\t" {
		t.Errorf("blank values must survive as empty fields, got %q", lines[2])
	}
}

func TestTSVString(t *testing.T) {
	_, rowSets := buildRowSets(t)
	got := TSVString(rowSets["Subject"])
	if !strings.HasPrefix(got, "subject_id\trace\tage\n") {
		t.Errorf("unexpected header: %q", got)
	}
	if !strings.Contains(got, "S1\tWhite\t63\n") {
		t.Errorf("missing row: %q", got)
	}
}
