package table

import "strings"

// Table 已解析的源数据表（列有序，行保持源文件顺序）
// 文件/数据库的解析由 adapter 负责，引擎只消费这个抽象
type Table struct {
	Columns []string
	Rows    []Row
}

// Row 一行数据，按列名取值
type Row map[string]string

// IsEmpty 判断表是否为空
func (t *Table) IsEmpty() bool {
	return t == nil || len(t.Rows) == 0
}

// ColumnValues 按行序返回某列的全部值
func (t *Table) ColumnValues(column string) []string {
	values := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		values = append(values, row[column])
	}
	return values
}

// DistinctValues 按首次出现顺序返回某列的非空唯一值
func (t *Table) DistinctValues(column string) []string {
	seen := make(map[string]bool)
	var values []string
	for _, row := range t.Rows {
		v := row[column]
		if IsBlank(v) || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	return values
}

// IsBlank 判断值是否为空（去除首尾空白后）
func IsBlank(v string) bool {
	return strings.TrimSpace(v) == ""
}
