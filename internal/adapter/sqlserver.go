package adapter

import (
	"database/sql"
	"fmt"
	"strings"

	"dataset-remapper/internal/table"

	_ "github.com/denisenkom/go-mssqldb"
)

// SQLServerAdapter SQL Server 源表适配器
type SQLServerAdapter struct {
	db *sql.DB
}

// NewSQLServerAdapter 创建 SQL Server 适配器
func NewSQLServerAdapter(connStr string) (*SQLServerAdapter, error) {
	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &SQLServerAdapter{db: db}, nil
}

// FetchColumns 获取源表列名
func (a *SQLServerAdapter) FetchColumns(name string) ([]string, error) {
	query := `
		SELECT COLUMN_NAME
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_NAME = @p1
		ORDER BY ORDINAL_POSITION
	`
	rows, err := a.db.Query(query, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("源表不存在或没有列: %s", name)
	}
	return columns, nil
}

// FetchTable 读取源表数据，所有值按字符串取出
func (a *SQLServerAdapter) FetchTable(name string, limit int) (*table.Table, error) {
	columns, err := a.FetchColumns(name)
	if err != nil {
		return nil, err
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = "[" + c + "]"
	}
	top := ""
	if limit > 0 {
		top = fmt.Sprintf("TOP %d ", limit)
	}
	query := fmt.Sprintf("SELECT %s%s FROM [%s]", top, strings.Join(quoted, ", "), name)

	rows, err := a.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTable(rows, columns)
}

// Close 关闭连接
func (a *SQLServerAdapter) Close() error {
	return a.db.Close()
}
