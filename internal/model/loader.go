package model

import (
	"fmt"
	"os"

	"dataset-remapper/internal/vocab"

	"gopkg.in/yaml.v3"
)

// SchemaLoadError schema 加载错误（致命，需上游修正定义）
type SchemaLoadError struct {
	Msg string
}

func (e *SchemaLoadError) Error() string {
	return "schema 加载失败: " + e.Msg
}

type schemaDoc struct {
	Entities []entityDoc `yaml:"entities"`
}

type entityDoc struct {
	Name       string        `yaml:"name"`
	Properties []propertyDoc `yaml:"properties"`
	Links      []linkDoc     `yaml:"links"`
}

type propertyDoc struct {
	Name       string `yaml:"name"`
	Required   bool   `yaml:"required"`
	Kind       string `yaml:"kind"`
	Vocabulary string `yaml:"vocabulary"`
}

type linkDoc struct {
	To  string `yaml:"to"`
	Key string `yaml:"key"`
}

// Load 从 YAML 文件加载目标数据模型
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &SchemaLoadError{Msg: err.Error()}
	}
	return Parse(data)
}

// Parse 解析并校验模型定义
// 实体重名、关联指向未知实体、enum 属性缺少值域引用都是加载期错误
// 关联键属性若未在源实体声明，会自动注入（与目标实体同名同型的可选属性）
func Parse(data []byte) (*Registry, error) {
	var doc schemaDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &SchemaLoadError{Msg: err.Error()}
	}
	if len(doc.Entities) == 0 {
		return nil, &SchemaLoadError{Msg: "未定义任何实体"}
	}

	reg := &Registry{byName: make(map[string]*Entity)}

	for _, ed := range doc.Entities {
		if ed.Name == "" {
			return nil, &SchemaLoadError{Msg: "存在未命名实体"}
		}
		if _, exists := reg.byName[ed.Name]; exists {
			return nil, &SchemaLoadError{Msg: "实体重名: " + ed.Name}
		}

		entity := &Entity{Name: ed.Name}
		for _, pd := range ed.Properties {
			kind, err := parseKind(ed.Name, pd)
			if err != nil {
				return nil, err
			}
			if entity.Property(pd.Name) != nil {
				return nil, &SchemaLoadError{
					Msg: fmt.Sprintf("实体 %s 属性重名: %s", ed.Name, pd.Name),
				}
			}
			entity.Properties = append(entity.Properties, PropertyDef{
				Name:       pd.Name,
				Required:   pd.Required,
				Kind:       kind,
				Vocabulary: pd.Vocabulary,
			})
		}
		for _, ld := range ed.Links {
			entity.Links = append(entity.Links, LinkDef{
				From: ed.Name,
				To:   ld.To,
				Key:  ld.Key,
			})
		}

		reg.entities = append(reg.entities, entity)
		reg.byName[entity.Name] = entity
	}

	if err := validateLinks(reg); err != nil {
		return nil, err
	}

	return reg, nil
}

func parseKind(entity string, pd propertyDoc) (ValueKind, error) {
	if pd.Name == "" {
		return "", &SchemaLoadError{Msg: "实体 " + entity + " 存在未命名属性"}
	}
	switch ValueKind(pd.Kind) {
	case "", KindText:
		return KindText, nil
	case KindNumber, KindDate:
		return ValueKind(pd.Kind), nil
	case KindEnum:
		if pd.Vocabulary == "" {
			return "", &SchemaLoadError{
				Msg: fmt.Sprintf("实体 %s 属性 %s 为 enum 但未引用值域", entity, pd.Name),
			}
		}
		return KindEnum, nil
	default:
		return "", &SchemaLoadError{
			Msg: fmt.Sprintf("实体 %s 属性 %s 类型未知: %s", entity, pd.Name, pd.Kind),
		}
	}
}

// validateLinks 校验关联并注入缺失的链接键属性
func validateLinks(reg *Registry) error {
	for _, entity := range reg.entities {
		for _, link := range entity.Links {
			target := reg.byName[link.To]
			if target == nil {
				return &SchemaLoadError{
					Msg: fmt.Sprintf("实体 %s 关联了不存在的实体 %s", entity.Name, link.To),
				}
			}
			keyDef := target.Property(link.Key)
			if keyDef == nil {
				return &SchemaLoadError{
					Msg: fmt.Sprintf("关联键 %s 不是实体 %s 的属性", link.Key, link.To),
				}
			}
			// 拆分后靠这个共享键保持可关联，源实体缺省时注入
			if entity.Property(link.Key) == nil {
				entity.Properties = append(entity.Properties, PropertyDef{
					Name:     link.Key,
					Kind:     keyDef.Kind,
					FromLink: true,
				})
			}
		}
	}
	return nil
}

// ValidateVocabRefs 校验 enum 属性引用的值域列表都已定义
func (r *Registry) ValidateVocabRefs(idx *vocab.Index) error {
	for _, entity := range r.entities {
		for _, p := range entity.Properties {
			if p.Kind == KindEnum && !idx.Has(p.Vocabulary) {
				return &SchemaLoadError{
					Msg: fmt.Sprintf("实体 %s 属性 %s 引用了不存在的值域 %s",
						entity.Name, p.Name, p.Vocabulary),
				}
			}
		}
	}
	return nil
}
