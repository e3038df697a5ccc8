package adapter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dataset-remapper/internal/table"
)

// DelimitedAdapter 本地 CSV/TSV 文件适配器
// 扩展名 .tsv/.tab 按制表符解析，其余按逗号；首行是列名
type DelimitedAdapter struct {
	path string
}

// NewDelimitedAdapter 创建文件适配器
func NewDelimitedAdapter(path string) *DelimitedAdapter {
	return &DelimitedAdapter{path: path}
}

// FetchColumns 获取源表列名，name 参数忽略（文件本身就是表）
func (a *DelimitedAdapter) FetchColumns(name string) ([]string, error) {
	t, err := a.FetchTable(name, 0)
	if err != nil {
		return nil, err
	}
	return t.Columns, nil
}

// FetchTable 读取整个文件
func (a *DelimitedAdapter) FetchTable(name string, limit int) (*table.Table, error) {
	f, err := os.Open(a.path)
	if err != nil {
		return nil, fmt.Errorf("打开源文件失败: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delimiterFor(a.path)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("解析 %s 失败: %w", a.path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("源文件为空: %s", a.path)
	}

	columns := records[0]
	t := &table.Table{Columns: columns}
	for _, record := range records[1:] {
		if limit > 0 && len(t.Rows) >= limit {
			break
		}
		row := make(table.Row, len(columns))
		for i, c := range columns {
			if i < len(record) {
				row[c] = record[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Close 文件适配器无长连接
func (a *DelimitedAdapter) Close() error {
	return nil
}

func delimiterFor(path string) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab":
		return '\t'
	default:
		return ','
	}
}
