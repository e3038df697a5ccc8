package conflict

import (
	"sort"
	"strings"

	"dataset-remapper/internal/table"
)

// 冲突处理状态
type State string

const (
	StateUnresolved State = "unresolved" // 待人工裁决
	StateKeptPrior  State = "kept_prior" // 保留先期元数据值
	StateKeptNew    State = "kept_new"   // 采用本次生成值
)

// Record 一条先期元数据与本次生成值的冲突
// 同一属性下共享同一个新值的行合并成一条，裁决按条传播
type Record struct {
	Entity   string   `json:"entity"`
	Property string   `json:"property"`
	RowIDs   []string `json:"row_ids"`
	Prior    string   `json:"prior"`
	New      string   `json:"new"`
	State    State    `json:"state"`
}

// Detector 冲突检测器
// prior 为实体名到先期元数据记录的映射，每条记录是属性到值的映射
type Detector struct {
	prior map[string][]map[string]string
}

// New 创建检测器
func New(prior map[string][]map[string]string) *Detector {
	return &Detector{prior: prior}
}

// Detect 逐实体逐属性比较先期值与本次生成值
// 比较前去首尾空白并忽略大小写；任一侧为空不算冲突（空值是补齐不是矛盾）
func (d *Detector) Detect(rowSets map[string]*table.EntityRowSet) []*Record {
	var records []*Record

	var entities []string
	for name := range d.prior {
		entities = append(entities, name)
	}
	sort.Strings(entities)

	for _, entity := range entities {
		priorRecords := d.prior[entity]
		rowSet := rowSets[entity]
		if len(priorRecords) == 0 || rowSet.Len() == 0 {
			continue
		}
		// 先期元数据按实体取首条为基准值
		base := priorRecords[0]

		var properties []string
		for p := range base {
			properties = append(properties, p)
		}
		sort.Strings(properties)

		for _, property := range properties {
			priorValue := strings.TrimSpace(base[property])
			if priorValue == "" {
				continue
			}
			records = append(records, detectProperty(entity, property, priorValue, rowSet)...)
		}
	}

	return records
}

// detectProperty 同一属性下按不同的新值各出一条冲突
func detectProperty(entity, property, priorValue string, rowSet *table.EntityRowSet) []*Record {
	var newValues []string
	rowsByValue := make(map[string][]string)
	for _, row := range rowSet.Rows {
		v := strings.TrimSpace(row.Values[property])
		if v == "" || strings.EqualFold(v, priorValue) {
			continue
		}
		if _, seen := rowsByValue[v]; !seen {
			newValues = append(newValues, v)
		}
		rowsByValue[v] = append(rowsByValue[v], row.ID)
	}

	var records []*Record
	for _, v := range newValues {
		records = append(records, &Record{
			Entity:   entity,
			Property: property,
			RowIDs:   rowsByValue[v],
			Prior:    priorValue,
			New:      v,
			State:    StateUnresolved,
		})
	}
	return records
}

// Resolve 裁决一条冲突并同步两侧数据
// keepNew 时把新值写回先期元数据，否则把先期值写回本次生成的行
// 幂等：重复裁决同一条记录结果不变
func (d *Detector) Resolve(record *Record, rowSets map[string]*table.EntityRowSet, keepNew bool) {
	if keepNew {
		for _, priorRecord := range d.prior[record.Entity] {
			if _, ok := priorRecord[record.Property]; ok {
				priorRecord[record.Property] = record.New
			}
		}
		record.State = StateKeptNew
		return
	}

	rowSet := rowSets[record.Entity]
	if rowSet != nil {
		for _, id := range record.RowIDs {
			if row := rowSet.Row(id); row != nil {
				row.Values[record.Property] = record.Prior
			}
		}
	}
	record.State = StateKeptPrior
}

// Unresolved 过滤出仍待裁决的记录
func Unresolved(records []*Record) []*Record {
	var out []*Record
	for _, r := range records {
		if r.State == StateUnresolved {
			out = append(out, r)
		}
	}
	return out
}
