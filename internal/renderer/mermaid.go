package renderer

import (
	"fmt"
	"strings"

	"dataset-remapper/internal/mapper"
	"dataset-remapper/internal/model"
)

// MermaidRenderer Mermaid ER 图渲染器
type MermaidRenderer struct{}

// NewMermaidRenderer 创建渲染器
func NewMermaidRenderer() *MermaidRenderer {
	return &MermaidRenderer{}
}

// Render 渲染为 Mermaid 格式
// 实体间关联用实线，源列到实体的映射用虚线
func (m *MermaidRenderer) Render(reg *model.Registry, mp *mapper.Mapping) string {
	var sb strings.Builder

	sb.WriteString("erDiagram\n")

	for _, entity := range reg.Entities() {
		sb.WriteString(fmt.Sprintf("    %s {\n", entity.Name))
		for _, p := range entity.Properties {
			attrs := ""
			if p.FromLink {
				attrs = " FK"
			}
			sb.WriteString(fmt.Sprintf("        %s %s%s\n", string(p.Kind), p.Name, attrs))
		}
		sb.WriteString("    }\n")
	}

	sb.WriteString("\n")

	for _, entity := range reg.Entities() {
		for _, link := range entity.Links {
			sb.WriteString(fmt.Sprintf("    %s ||--o{ %s : \"%s\"\n",
				link.To, link.From, link.Key))
		}
	}

	// 每个实体只画一条虚线，标注映射到它的源列数
	counts := make(map[string]int)
	for _, e := range mp.Mapped() {
		counts[e.Target.Entity]++
	}
	for _, entity := range reg.Entities() {
		if n := counts[entity.Name]; n > 0 {
			sb.WriteString(fmt.Sprintf("    SOURCE ||..o{ %s : \"%d 列\"\n", entity.Name, n))
		}
	}

	return sb.String()
}
