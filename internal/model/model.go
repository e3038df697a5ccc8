package model

// ValueKind 属性值类型
type ValueKind string

const (
	KindText   ValueKind = "text"   // 自由文本
	KindNumber ValueKind = "number" // 数值
	KindDate   ValueKind = "date"   // 日期
	KindEnum   ValueKind = "enum"   // 受控值域
)

// PropertyDef 属性定义
type PropertyDef struct {
	Name       string
	Required   bool
	Kind       ValueKind
	Vocabulary string // enum 属性引用的值域列表名
	FromLink   bool   // 由关联声明注入的链接键，不参与自动列映射
}

// LinkDef 实体间关联：From 实体通过共享键属性 Key 指向 To 实体
// 基数默认多对一
type LinkDef struct {
	From string
	To   string
	Key  string
}

// Entity 目标数据模型中的一张表
type Entity struct {
	Name       string
	Properties []PropertyDef
	Links      []LinkDef
}

// Property 按名称查属性定义，不存在返回 nil
func (e *Entity) Property(name string) *PropertyDef {
	for i := range e.Properties {
		if e.Properties[i].Name == name {
			return &e.Properties[i]
		}
	}
	return nil
}

// PropertyNames 按声明顺序返回属性名
func (e *Entity) PropertyNames() []string {
	names := make([]string, 0, len(e.Properties))
	for _, p := range e.Properties {
		names = append(names, p.Name)
	}
	return names
}

// Registry 目标数据模型注册表，加载后只读，可被并发读取
type Registry struct {
	entities []*Entity
	byName   map[string]*Entity
}

// Entity 按名称取实体，不存在返回 nil
func (r *Registry) Entity(name string) *Entity {
	return r.byName[name]
}

// Entities 按声明顺序返回全部实体
func (r *Registry) Entities() []*Entity {
	return r.entities
}

// RequiredProperties 返回实体的必填属性名
func (r *Registry) RequiredProperties(entity string) []string {
	e := r.byName[entity]
	if e == nil {
		return nil
	}
	var names []string
	for _, p := range e.Properties {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// LinksOf 返回实体声明的关联
func (r *Registry) LinksOf(entity string) []LinkDef {
	e := r.byName[entity]
	if e == nil {
		return nil
	}
	return e.Links
}
