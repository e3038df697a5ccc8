package renderer

import (
	"fmt"
	"strings"

	"dataset-remapper/internal/conflict"
	"dataset-remapper/internal/mapper"
	"dataset-remapper/internal/model"
	"dataset-remapper/internal/standardize"
)

// Report 渲染所需的全部结果
type Report struct {
	Registry  *model.Registry
	Mapping   *mapper.Mapping
	Missing   []mapper.MissingRequiredField
	Std       *standardize.Result
	Conflicts []*conflict.Record
}

// MarkdownRenderer Markdown 重映射报告渲染器
type MarkdownRenderer struct{}

// NewMarkdownRenderer 创建渲染器
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render 渲染为 Markdown 格式
func (m *MarkdownRenderer) Render(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# 数据集重映射报告\n\n")

	m.renderMapping(&sb, r)
	m.renderMissing(&sb, r)
	m.renderStandardize(&sb, r)
	m.renderConflicts(&sb, r)

	return sb.String()
}

// renderMapping 渲染列映射表与未映射列
func (m *MarkdownRenderer) renderMapping(sb *strings.Builder, r *Report) {
	sb.WriteString("## 列映射\n\n")
	sb.WriteString("| 源列 | 目标 | 相似度 | 来源 |\n")
	sb.WriteString("|------|------|--------|------|\n")
	for _, e := range r.Mapping.Mapped() {
		sb.WriteString(fmt.Sprintf("| %s | %s | %.2f | %s |\n",
			e.Column, e.Target.String(), e.Score, e.Source))
	}
	sb.WriteString("\n")

	unmapped := r.Mapping.Unmapped()
	if len(unmapped) == 0 {
		return
	}
	sb.WriteString("### 未映射列\n\n")
	for _, e := range unmapped {
		sb.WriteString(fmt.Sprintf("- `%s`", e.Column))
		if len(e.Candidates) > 0 {
			var hints []string
			for _, c := range e.Candidates {
				hints = append(hints, fmt.Sprintf("%s(%.2f)", c.Target.String(), c.Score))
			}
			sb.WriteString(" 候选: " + strings.Join(hints, ", "))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

// renderMissing 渲染必填属性缺失警告
func (m *MarkdownRenderer) renderMissing(sb *strings.Builder, r *Report) {
	if len(r.Missing) == 0 {
		return
	}
	sb.WriteString("## 必填属性缺失\n\n")
	for _, f := range r.Missing {
		sb.WriteString(fmt.Sprintf("- ⚠️ `%s.%s` 没有映射到任何源列\n", f.Entity, f.Property))
	}
	sb.WriteString("\n")
}

// renderStandardize 渲染值标准化结果
// 高置信修正只汇总一行，中置信修正列入批量确认表，低置信逐条列出
func (m *MarkdownRenderer) renderStandardize(sb *strings.Builder, r *Report) {
	if r.Std == nil {
		return
	}
	sb.WriteString("## 值标准化\n\n")
	sb.WriteString(fmt.Sprintf("自动修正 %d / %d\n\n", r.Std.Corrected, r.Std.Total))

	if len(r.Std.Summary) > 0 {
		sb.WriteString("### 批量确认\n\n")
		sb.WriteString("| 实体 | 属性 | 原始值 | 标准值 | 方法 | 置信度 | 行数 |\n")
		sb.WriteString("|------|------|--------|--------|------|--------|------|\n")
		for _, c := range r.Std.Summary {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %.2f | %d |\n",
				c.Entity, c.Property, c.Raw, c.Canonical, c.Method, c.Confidence, len(c.RowIDs)))
		}
		sb.WriteString("\n")
	}

	if len(r.Std.Review) > 0 {
		sb.WriteString("### 待人工复核\n\n")
		for _, item := range r.Std.Review {
			sb.WriteString(fmt.Sprintf("- **%s.%s** `%s` (%d 行)",
				item.Entity, item.Property, item.Raw, len(item.RowIDs)))
			if item.Chosen != "" {
				sb.WriteString(fmt.Sprintf(" 已定: `%s`", item.Chosen))
			}
			sb.WriteString("\n")
			for _, alt := range item.Alternatives {
				sb.WriteString(fmt.Sprintf("  - %s (%.2f)\n", alt.Value, alt.Score))
			}
		}
		sb.WriteString("\n")
	}
}

// renderConflicts 渲染先期元数据冲突
func (m *MarkdownRenderer) renderConflicts(sb *strings.Builder, r *Report) {
	if len(r.Conflicts) == 0 {
		return
	}
	sb.WriteString("## 元数据冲突\n\n")
	sb.WriteString("| 实体 | 属性 | 先期值 | 本次值 | 行数 | 状态 |\n")
	sb.WriteString("|------|------|--------|--------|------|------|\n")
	for _, c := range r.Conflicts {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %s |\n",
			c.Entity, c.Property, c.Prior, c.New, len(c.RowIDs), c.State))
	}
	sb.WriteString("\n")
}
