package graph

// NodeType 节点类型
type NodeType string

const (
	NodeTypeEntity   NodeType = "entity"
	NodeTypeProperty NodeType = "property"
	NodeTypeColumn   NodeType = "column"
)

// Node 图节点
type Node struct {
	ID         string                 `json:"id"`
	Type       NodeType               `json:"type"`
	Name       string                 `json:"name"`
	Properties map[string]interface{} `json:"properties"`
}

// PropertyNode 属性节点属性
type PropertyNode struct {
	Entity     string `json:"entity"`
	Kind       string `json:"kind"`
	Required   bool   `json:"required"`
	Vocabulary string `json:"vocabulary,omitempty"`
	FromLink   bool   `json:"from_link,omitempty"`
}
