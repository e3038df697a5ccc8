package vocab

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// VocabularyLoadError 值域加载错误（致命，需上游修正定义）
type VocabularyLoadError struct {
	Msg string
}

func (e *VocabularyLoadError) Error() string {
	return "值域加载失败: " + e.Msg
}

// Code 本体编码，如 (NCIt, C41261)
type Code struct {
	System string `yaml:"system" json:"system"`
	Code   string `yaml:"code" json:"code"`
}

// Entry 一个标准值及其同义词、本体编码
type Entry struct {
	Value    string   `yaml:"value" json:"value"`
	Synonyms []string `yaml:"synonyms,omitempty" json:"synonyms,omitempty"`
	Codes    []Code   `yaml:"codes,omitempty" json:"codes,omitempty"`
}

// List 一个受控属性的许可值列表
// 标准值保留原大小写，匹配一律大小写不敏感
type List struct {
	Name    string
	Entries []*Entry

	byValue   map[string]*Entry // lower(标准值) -> entry
	bySynonym map[string]*Entry // lower(同义词) -> entry
	byCode    map[string]*Entry // lower(编码) -> entry
}

// Canonical 按小写标准值查找
func (l *List) Canonical(lowered string) *Entry {
	return l.byValue[lowered]
}

// Synonym 按小写同义词查找
func (l *List) Synonym(lowered string) *Entry {
	return l.bySynonym[lowered]
}

// ByCode 按小写本体编码查找
func (l *List) ByCode(lowered string) *Entry {
	return l.byCode[lowered]
}

// Index 所有值域列表的只读索引，加载后可被并发读取
type Index struct {
	lists map[string]*List
	names []string
}

// List 按名称取列表，不存在返回 nil
func (i *Index) List(name string) *List {
	return i.lists[name]
}

// Has 判断列表是否存在
func (i *Index) Has(name string) bool {
	_, ok := i.lists[name]
	return ok
}

// Names 按定义顺序返回列表名
func (i *Index) Names() []string {
	return i.names
}

type vocabDoc struct {
	Lists yaml.Node `yaml:"lists"`
}

// Load 从 YAML 文件加载值域
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &VocabularyLoadError{Msg: err.Error()}
	}
	return Parse(data)
}

// Parse 解析并校验值域定义
// 同一列表内标准值重复、或一个同义词指向两个标准值，都是加载期错误
func Parse(data []byte) (*Index, error) {
	var doc vocabDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &VocabularyLoadError{Msg: err.Error()}
	}
	if doc.Lists.Kind != yaml.MappingNode {
		return nil, &VocabularyLoadError{Msg: "缺少 lists 定义"}
	}

	idx := &Index{lists: make(map[string]*List)}

	// MappingNode 的 Content 是 key/value 交替排列
	for i := 0; i+1 < len(doc.Lists.Content); i += 2 {
		name := doc.Lists.Content[i].Value
		var entries []*Entry
		if err := doc.Lists.Content[i+1].Decode(&entries); err != nil {
			return nil, &VocabularyLoadError{Msg: fmt.Sprintf("列表 %s: %v", name, err)}
		}

		list, err := buildList(name, entries)
		if err != nil {
			return nil, err
		}
		idx.lists[name] = list
		idx.names = append(idx.names, name)
	}

	return idx, nil
}

func buildList(name string, entries []*Entry) (*List, error) {
	list := &List{
		Name:      name,
		Entries:   entries,
		byValue:   make(map[string]*Entry),
		bySynonym: make(map[string]*Entry),
		byCode:    make(map[string]*Entry),
	}

	for _, entry := range entries {
		value := strings.TrimSpace(entry.Value)
		if value == "" {
			return nil, &VocabularyLoadError{Msg: fmt.Sprintf("列表 %s 存在空标准值", name)}
		}
		lowered := strings.ToLower(value)
		if _, exists := list.byValue[lowered]; exists {
			return nil, &VocabularyLoadError{
				Msg: fmt.Sprintf("列表 %s 标准值重复: %s", name, value),
			}
		}
		list.byValue[lowered] = entry
	}

	for _, entry := range entries {
		for _, syn := range entry.Synonyms {
			lowered := strings.ToLower(strings.TrimSpace(syn))
			if lowered == "" {
				continue
			}
			// 同义词与其他标准值冲突，同一个字符串就指向了两个值
			if other, exists := list.byValue[lowered]; exists && other != entry {
				return nil, &VocabularyLoadError{
					Msg: fmt.Sprintf("列表 %s 同义词 %q 与标准值 %q 冲突", name, syn, other.Value),
				}
			}
			if other, exists := list.bySynonym[lowered]; exists && other != entry {
				return nil, &VocabularyLoadError{
					Msg: fmt.Sprintf("列表 %s 同义词 %q 同时指向 %q 和 %q", name, syn, other.Value, entry.Value),
				}
			}
			list.bySynonym[lowered] = entry
		}
		for _, code := range entry.Codes {
			lowered := strings.ToLower(strings.TrimSpace(code.Code))
			if lowered == "" {
				continue
			}
			if _, exists := list.byCode[lowered]; !exists {
				list.byCode[lowered] = entry
			}
		}
	}

	return list, nil
}
