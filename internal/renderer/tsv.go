package renderer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dataset-remapper/internal/model"
	"dataset-remapper/internal/table"
)

// TSVWriter 按实体导出制表符分隔文件
type TSVWriter struct {
	dir string
}

// NewTSVWriter 创建导出器，文件写入 dir 目录
func NewTSVWriter(dir string) *TSVWriter {
	return &TSVWriter{dir: dir}
}

// WriteAll 每个有数据的实体写一个 <实体名小写>.tsv
// 列顺序跟随模型定义的属性顺序，返回写出的文件路径
func (w *TSVWriter) WriteAll(reg *model.Registry, rowSets map[string]*table.EntityRowSet) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}

	var paths []string
	for _, entity := range reg.Entities() {
		rowSet := rowSets[entity.Name]
		if rowSet.Len() == 0 {
			continue
		}
		path := filepath.Join(w.dir, strings.ToLower(entity.Name)+".tsv")
		if err := writeOne(path, rowSet); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// TSVString 把一个实体行集渲染成 TSV 文本（给不落盘的调用方用）
func TSVString(rowSet *table.EntityRowSet) string {
	var sb strings.Builder
	cw := csv.NewWriter(&sb)
	cw.Comma = '\t'

	cw.Write(rowSet.Properties)
	record := make([]string, len(rowSet.Properties))
	for _, row := range rowSet.Rows {
		for i, p := range rowSet.Properties {
			record[i] = row.Values[p]
		}
		cw.Write(record)
	}
	cw.Flush()
	return sb.String()
}

func writeOne(path string, rowSet *table.EntityRowSet) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建 %s 失败: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	cw.Comma = '\t'

	if err := cw.Write(rowSet.Properties); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	record := make([]string, len(rowSet.Properties))
	for _, row := range rowSet.Rows {
		for i, p := range rowSet.Properties {
			record[i] = row.Values[p]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("写入 %s 失败: %w", path, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return nil
}
