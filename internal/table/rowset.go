package table

import "github.com/google/uuid"

// 行级缺口原因
const (
	GapMissingRequired = "missing_required" // 必填属性缺失
	GapNotNumber       = "not_number"       // 数值属性无法解析
	GapNotDate         = "not_date"         // 日期属性无法解析
)

// Gap 行级数据缺口，拆分时记录，不丢行
type Gap struct {
	Property string `json:"property"`
	Reason   string `json:"reason"`
}

// EntityRow 目标实体的一行，ID 在拆分时生成，
// 复核往返时靠它重新关联修正结果
type EntityRow struct {
	ID     string            `json:"id"`
	Values map[string]string `json:"values"`
	Gaps   []Gap             `json:"gaps,omitempty"`
}

// NewEntityRow 创建带稳定行标识的空行
func NewEntityRow() *EntityRow {
	return &EntityRow{
		ID:     uuid.New().String(),
		Values: make(map[string]string),
	}
}

// AddGap 记录一个数据缺口
func (r *EntityRow) AddGap(property, reason string) {
	r.Gaps = append(r.Gaps, Gap{Property: property, Reason: reason})
}

// EntityRowSet 单个目标实体的行集合
// Properties 保存 schema 中的属性声明顺序，导出时按此排列
type EntityRowSet struct {
	Entity     string       `json:"entity"`
	Properties []string     `json:"properties"`
	Rows       []*EntityRow `json:"rows"`
}

// Row 按行标识查找
func (s *EntityRowSet) Row(id string) *EntityRow {
	for _, row := range s.Rows {
		if row.ID == id {
			return row
		}
	}
	return nil
}

// Len 行数
func (s *EntityRowSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}
