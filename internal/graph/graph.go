package graph

import (
	"encoding/json"
	"fmt"
	"sync"

	"dataset-remapper/internal/mapper"
	"dataset-remapper/internal/model"
)

// MappingGraph 映射结构图：目标模型加上源列到属性的映射边
type MappingGraph struct {
	mu    sync.RWMutex
	Nodes map[string]*Node `json:"nodes"`
	Edges map[string]*Edge `json:"edges"`
}

// NewMappingGraph 创建新图
func NewMappingGraph() *MappingGraph {
	return &MappingGraph{
		Nodes: make(map[string]*Node),
		Edges: make(map[string]*Edge),
	}
}

// AddNode 添加节点
func (g *MappingGraph) AddNode(node *Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Nodes[node.ID] = node
}

// AddEdge 添加边
func (g *MappingGraph) AddEdge(edge *Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Edges[edge.ID] = edge
}

// GetNode 获取节点
func (g *MappingGraph) GetNode(id string) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.Nodes[id]
}

// ToJSON 导出为JSON
func (g *MappingGraph) ToJSON() ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return json.MarshalIndent(g, "", "  ")
}

// Build 由目标模型和确认后的映射构建结构图
// 节点ID约定：entity:<实体名>、property:<实体名>.<属性名>、column:<源列名>
func Build(reg *model.Registry, m *mapper.Mapping) *MappingGraph {
	g := NewMappingGraph()

	for _, entity := range reg.Entities() {
		g.AddNode(&Node{
			ID:   "entity:" + entity.Name,
			Type: NodeTypeEntity,
			Name: entity.Name,
		})
		for _, p := range entity.Properties {
			ref := mapper.TargetRef{Entity: entity.Name, Property: p.Name}
			g.AddNode(&Node{
				ID:   "property:" + ref.String(),
				Type: NodeTypeProperty,
				Name: p.Name,
				Properties: map[string]interface{}{
					"detail": PropertyNode{
						Entity:     entity.Name,
						Kind:       string(p.Kind),
						Required:   p.Required,
						Vocabulary: p.Vocabulary,
						FromLink:   p.FromLink,
					},
				},
			})
			g.AddEdge(&Edge{
				ID:         fmt.Sprintf("has:%s", ref.String()),
				Type:       EdgeTypeHas,
				From:       "entity:" + entity.Name,
				To:         "property:" + ref.String(),
				Confidence: 1.0,
			})
		}
		for _, link := range entity.Links {
			g.AddEdge(&Edge{
				ID:         fmt.Sprintf("link:%s->%s", link.From, link.To),
				Type:       EdgeTypeLink,
				From:       "entity:" + link.From,
				To:         "entity:" + link.To,
				Confidence: 1.0,
				Properties: map[string]interface{}{"key": link.Key},
			})
		}
	}

	for _, entry := range m.Mapped() {
		g.AddNode(&Node{
			ID:   "column:" + entry.Column,
			Type: NodeTypeColumn,
			Name: entry.Column,
		})
		g.AddEdge(&Edge{
			ID:         fmt.Sprintf("map:%s->%s", entry.Column, entry.Target.String()),
			Type:       EdgeTypeMapping,
			From:       "column:" + entry.Column,
			To:         "property:" + entry.Target.String(),
			Confidence: entry.Score,
			Evidence: []Evidence{{
				Type:        entry.Source,
				Score:       entry.Score,
				Description: fmt.Sprintf("%s → %s", entry.Column, entry.Target.String()),
			}},
		})
	}

	return g
}
