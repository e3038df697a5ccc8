package adapter

import "dataset-remapper/internal/table"

// SourceAdapter 源数据适配器接口
type SourceAdapter interface {
	// FetchColumns 获取源表列名（按定义顺序）
	FetchColumns(name string) ([]string, error)

	// FetchTable 读取源表数据，limit <= 0 时不限行数
	FetchTable(name string, limit int) (*table.Table, error)

	// Close 关闭连接
	Close() error
}
