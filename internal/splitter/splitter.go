package splitter

import (
	"strconv"
	"strings"
	"time"

	"dataset-remapper/internal/mapper"
	"dataset-remapper/internal/model"
	"dataset-remapper/internal/table"
)

// Splitter 把扁平源表按确认后的映射拆成多张目标实体表
type Splitter struct{}

// New 创建拆分器
func New() *Splitter {
	return &Splitter{}
}

// mappedColumn 一个实体下的 源列 → 属性 对
type mappedColumn struct {
	column   string
	property string
}

// Split 按实体分组映射列，逐源行产出实体行
// 关联键从同一源行原样复制（不重新推导），保证拆分后各表可关联；
// 必填属性缺失或类型不符的行照常产出并记录缺口，丢行会破坏行标识连续性
func (s *Splitter) Split(src *table.Table, m *mapper.Mapping, reg *model.Registry) map[string]*table.EntityRowSet {
	columnsByEntity := make(map[string][]mappedColumn)
	keyColumns := make(map[string]string) // "Entity.property" -> 源列
	for _, entry := range m.Mapped() {
		columnsByEntity[entry.Target.Entity] = append(columnsByEntity[entry.Target.Entity], mappedColumn{
			column:   entry.Column,
			property: entry.Target.Property,
		})
		keyColumns[entry.Target.String()] = entry.Column
	}

	rowSets := make(map[string]*table.EntityRowSet)

	for _, entity := range reg.Entities() {
		cols := columnsByEntity[entity.Name]
		if len(cols) == 0 {
			continue
		}

		rowSet := &table.EntityRowSet{
			Entity:     entity.Name,
			Properties: entity.PropertyNames(),
		}

		for _, srcRow := range src.Rows {
			row := buildRow(entity, cols, srcRow, keyColumns, reg)
			if row != nil {
				rowSet.Rows = append(rowSet.Rows, row)
			}
		}

		if len(rowSet.Rows) > 0 {
			rowSets[entity.Name] = rowSet
		}
	}

	return rowSets
}

// buildRow 从一个源行产出一个实体行；实体自身的映射列全空则不产行
func buildRow(entity *model.Entity, cols []mappedColumn, srcRow table.Row,
	keyColumns map[string]string, reg *model.Registry) *table.EntityRow {

	populated := false
	for _, mc := range cols {
		if !table.IsBlank(srcRow[mc.column]) {
			populated = true
			break
		}
	}
	if !populated {
		return nil
	}

	row := table.NewEntityRow()
	for _, mc := range cols {
		row.Values[mc.property] = strings.TrimSpace(srcRow[mc.column])
	}

	// 关联键传播：目标实体的键已在同一源行有值时原样复制
	for _, link := range entity.Links {
		if _, exists := row.Values[link.Key]; exists {
			continue
		}
		ref := mapper.TargetRef{Entity: link.To, Property: link.Key}
		if keyCol, ok := keyColumns[ref.String()]; ok {
			if v := srcRow[keyCol]; !table.IsBlank(v) {
				row.Values[link.Key] = strings.TrimSpace(v)
			}
		}
	}

	recordGaps(entity, row)
	return row
}

// recordGaps 记录必填缺失与类型不符，留给后续校验展示
func recordGaps(entity *model.Entity, row *table.EntityRow) {
	for _, p := range entity.Properties {
		v := row.Values[p.Name]
		if table.IsBlank(v) {
			if p.Required {
				row.AddGap(p.Name, table.GapMissingRequired)
			}
			continue
		}
		switch p.Kind {
		case model.KindNumber:
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				row.AddGap(p.Name, table.GapNotNumber)
			}
		case model.KindDate:
			if !parseableDate(v) {
				row.AddGap(p.Name, table.GapNotDate)
			}
		}
	}
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01",
	"2006",
}

func parseableDate(v string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}
