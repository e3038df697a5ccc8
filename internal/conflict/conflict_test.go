package conflict

import (
	"testing"

	"dataset-remapper/internal/table"
)

func buildRowSets(values []string) map[string]*table.EntityRowSet {
	rowSet := &table.EntityRowSet{Entity: "Dataset", Properties: []string{"program_name"}}
	for _, v := range values {
		row := table.NewEntityRow()
		row.Values["program_name"] = v
		rowSet.Rows = append(rowSet.Rows, row)
	}
	return map[string]*table.EntityRowSet{"Dataset": rowSet}
}

func TestDetect(t *testing.T) {
	prior := map[string][]map[string]string{
		"Dataset": {{"program_name": "TCGA"}},
	}
	rowSets := buildRowSets([]string{"Community", "Community", "TCGA", "tcga", ""})

	records := New(prior).Detect(rowSets)
	if len(records) != 1 {
		t.Fatalf("expected 1 conflict record, got %d", len(records))
	}

	r := records[0]
	if r.Entity != "Dataset" || r.Property != "program_name" {
		t.Errorf("unexpected record target: %+v", r)
	}
	if r.Prior != "TCGA" || r.New != "Community" {
		t.Errorf("unexpected values: prior %q new %q", r.Prior, r.New)
	}
	// 大小写不同与空值不算冲突
	if len(r.RowIDs) != 2 {
		t.Errorf("expected 2 conflicting rows, got %d", len(r.RowIDs))
	}
	if r.State != StateUnresolved {
		t.Errorf("expected unresolved state, got %s", r.State)
	}
}

func TestDetectNoPriorValue(t *testing.T) {
	prior := map[string][]map[string]string{
		"Dataset": {{"program_name": "  "}},
	}
	rowSets := buildRowSets([]string{"Community"})

	if records := New(prior).Detect(rowSets); len(records) != 0 {
		t.Errorf("blank prior value should not conflict, got %d records", len(records))
	}
}

func TestResolveKeepPrior(t *testing.T) {
	prior := map[string][]map[string]string{
		"Dataset": {{"program_name": "TCGA"}},
	}
	rowSets := buildRowSets([]string{"Community", "Community"})

	d := New(prior)
	records := d.Detect(rowSets)
	d.Resolve(records[0], rowSets, false)

	if records[0].State != StateKeptPrior {
		t.Errorf("expected kept_prior, got %s", records[0].State)
	}
	for _, row := range rowSets["Dataset"].Rows {
		if row.Values["program_name"] != "TCGA" {
			t.Errorf("derived row not rewritten, got %q", row.Values["program_name"])
		}
	}

	// 幂等
	d.Resolve(records[0], rowSets, false)
	if d.Detect(rowSets) != nil {
		t.Error("no conflicts should remain after resolution")
	}
}

func TestResolveKeepNew(t *testing.T) {
	prior := map[string][]map[string]string{
		"Dataset": {{"program_name": "TCGA"}},
	}
	rowSets := buildRowSets([]string{"Community"})

	d := New(prior)
	records := d.Detect(rowSets)
	d.Resolve(records[0], rowSets, true)

	if records[0].State != StateKeptNew {
		t.Errorf("expected kept_new, got %s", records[0].State)
	}
	if prior["Dataset"][0]["program_name"] != "Community" {
		t.Errorf("prior metadata not rewritten, got %q", prior["Dataset"][0]["program_name"])
	}
	if d.Detect(rowSets) != nil {
		t.Error("no conflicts should remain after resolution")
	}
}

func TestUnresolved(t *testing.T) {
	records := []*Record{
		{State: StateUnresolved},
		{State: StateKeptNew},
		{State: StateKeptPrior},
	}
	if got := Unresolved(records); len(got) != 1 {
		t.Errorf("expected 1 unresolved record, got %d", len(got))
	}
}
