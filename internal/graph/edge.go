package graph

// EdgeType 边类型
type EdgeType string

const (
	EdgeTypeHas     EdgeType = "has_property" // 实体拥有属性
	EdgeTypeLink    EdgeType = "link"         // 实体间关联
	EdgeTypeMapping EdgeType = "mapping"      // 源列映射到属性
)

// Edge 图的边
type Edge struct {
	ID         string                 `json:"id"`
	Type       EdgeType               `json:"type"`
	From       string                 `json:"from"`       // 节点ID
	To         string                 `json:"to"`         // 节点ID
	Confidence float64                `json:"confidence"` // 置信度 0-1
	Evidence   []Evidence             `json:"evidence,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// Evidence 证据
type Evidence struct {
	Type        string  `json:"type"` // proposed/override/ai
	Score       float64 `json:"score"`
	Description string  `json:"description"`
}
