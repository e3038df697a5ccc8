package adapter

import (
	"database/sql"
	"fmt"
	"strings"

	"dataset-remapper/internal/table"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLAdapter MySQL 源表适配器
type MySQLAdapter struct {
	db     *sql.DB
	schema string
}

// NewMySQLAdapter 创建 MySQL 适配器
func NewMySQLAdapter(connStr, schema string) (*MySQLAdapter, error) {
	db, err := sql.Open("mysql", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &MySQLAdapter{db: db, schema: schema}, nil
}

// FetchColumns 获取源表列名
func (a *MySQLAdapter) FetchColumns(name string) ([]string, error) {
	query := `
		SELECT COLUMN_NAME
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`
	rows, err := a.db.Query(query, a.schema, name)
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
		return nil, fmt.Errorf("源表不存在或没有列: %s.%s", a.schema, name)
	}
	return columns, nil
}

// FetchTable 读取源表数据，所有值按字符串取出
func (a *MySQLAdapter) FetchTable(name string, limit int) (*table.Table, error) {
	columns, err := a.FetchColumns(name)
	if err != nil {
		return nil, err
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = "`" + c + "`"
	}
	query := fmt.Sprintf("SELECT %s FROM `%s`.`%s`", strings.Join(quoted, ", "), a.schema, name)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := a.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTable(rows, columns)
}

// Close 关闭连接
func (a *MySQLAdapter) Close() error {
	return a.db.Close()
}

// scanTable 把查询结果逐行装进内存表，NULL 取空串
func scanTable(rows *sql.Rows, columns []string) (*table.Table, error) {
	t := &table.Table{Columns: columns}

	values := make([]sql.NullString, len(columns))
	dest := make([]interface{}, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make(table.Row, len(columns))
		for i, c := range columns {
			row[c] = values[i].String
		}
		t.Rows = append(t.Rows, row)
	}
	return t, rows.Err()
}
