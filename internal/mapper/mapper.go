package mapper

import (
	"fmt"
	"sort"
	"strings"

	"dataset-remapper/internal/model"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// 映射条目来源
const (
	SourceProposed = "proposed" // 启发式自动提议
	SourceOverride = "override" // 人工指派
	SourceAI       = "ai"       // AI 建议
)

// TargetRef 目标属性引用
type TargetRef struct {
	Entity   string `json:"entity"`
	Property string `json:"property"`
}

func (t TargetRef) String() string {
	return t.Entity + "." + t.Property
}

// IsZero 判断是否未指派
func (t TargetRef) IsZero() bool {
	return t.Entity == ""
}

// Candidate 候选目标及其相似度
type Candidate struct {
	Target TargetRef `json:"target"`
	Score  float64   `json:"score"`
}

// Entry 一个源列的映射条目
// 低于阈值的列 Target 为空，候选保留给人工指派
type Entry struct {
	Column     string      `json:"column"`
	Target     TargetRef   `json:"target"`
	Score      float64     `json:"score"`
	Source     string      `json:"source"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Mapping 源列到目标属性的映射，条目按源列顺序排列
// 用户确认前可被覆盖，拆分前冻结
type Mapping struct {
	Entries  []*Entry
	byColumn map[string]*Entry
}

// Entry 按源列名查条目
func (m *Mapping) Entry(column string) *Entry {
	return m.byColumn[column]
}

// Mapped 已指派目标的条目
func (m *Mapping) Mapped() []*Entry {
	var out []*Entry
	for _, e := range m.Entries {
		if !e.Target.IsZero() {
			out = append(out, e)
		}
	}
	return out
}

// Unmapped 未指派目标的条目
func (m *Mapping) Unmapped() []*Entry {
	var out []*Entry
	for _, e := range m.Entries {
		if e.Target.IsZero() {
			out = append(out, e)
		}
	}
	return out
}

// MissingRequiredField 被引用实体缺少映射列的必填属性
type MissingRequiredField struct {
	Entity   string `json:"entity"`
	Property string `json:"property"`
}

// Mapper 列映射器
type Mapper struct {
	threshold float64
}

// DefaultThreshold 自动提议的最低相似度
const DefaultThreshold = 0.5

// New 创建映射器
func New(threshold float64) *Mapper {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Mapper{threshold: threshold}
}

// Propose 为每个源列提议最相似的目标属性
// 注入的链接键不作为提议目标（与原始键列重复映射会破坏键传播）
func (p *Mapper) Propose(columns []string, reg *model.Registry) *Mapping {
	targets := proposalTargets(reg)

	mapping := &Mapping{byColumn: make(map[string]*Entry)}
	for _, column := range columns {
		entry := &Entry{Column: column, Source: SourceProposed}

		var candidates []Candidate
		for _, target := range targets {
			score := nameSimilarity(column, target)
			if score > 0 {
				candidates = append(candidates, Candidate{Target: target, Score: score})
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Score > candidates[j].Score
		})
		if len(candidates) > 5 {
			candidates = candidates[:5]
		}
		entry.Candidates = candidates

		if len(candidates) > 0 && candidates[0].Score >= p.threshold {
			entry.Target = candidates[0].Target
			entry.Score = candidates[0].Score
		}

		mapping.Entries = append(mapping.Entries, entry)
		mapping.byColumn[column] = entry
	}
	return mapping
}

// ApplyOverride 人工指派一个源列的目标，替换原有条目
func (m *Mapping) ApplyOverride(reg *model.Registry, column, entity, property string) error {
	return m.assign(reg, column, entity, property, SourceOverride, 1.0)
}

// ApplySuggestion 采纳 AI 建议的目标
func (m *Mapping) ApplySuggestion(reg *model.Registry, column, entity, property string, confidence float64) error {
	return m.assign(reg, column, entity, property, SourceAI, confidence)
}

func (m *Mapping) assign(reg *model.Registry, column, entity, property, source string, score float64) error {
	entry := m.byColumn[column]
	if entry == nil {
		return fmt.Errorf("源列不存在: %s", column)
	}
	e := reg.Entity(entity)
	if e == nil {
		return fmt.Errorf("目标实体不存在: %s", entity)
	}
	if e.Property(property) == nil {
		return fmt.Errorf("目标属性不存在: %s.%s", entity, property)
	}
	entry.Target = TargetRef{Entity: entity, Property: property}
	entry.Score = score
	entry.Source = source
	return nil
}

// ValidateCompleteness 枚举被引用实体缺少映射列的必填属性
// 仅为警告：缺失字段可能由先期元数据补齐，生成不强制阻断
func ValidateCompleteness(m *Mapping, reg *model.Registry) []MissingRequiredField {
	referenced := make(map[string]bool)
	mappedProps := make(map[string]bool)
	for _, e := range m.Mapped() {
		referenced[e.Target.Entity] = true
		mappedProps[e.Target.String()] = true
	}

	var missing []MissingRequiredField
	for _, entity := range reg.Entities() {
		if !referenced[entity.Name] {
			continue
		}
		for _, name := range reg.RequiredProperties(entity.Name) {
			ref := TargetRef{Entity: entity.Name, Property: name}
			if !mappedProps[ref.String()] {
				missing = append(missing, MissingRequiredField{
					Entity:   entity.Name,
					Property: name,
				})
			}
		}
	}
	return missing
}

func proposalTargets(reg *model.Registry) []TargetRef {
	var targets []TargetRef
	for _, entity := range reg.Entities() {
		for _, p := range entity.Properties {
			if p.FromLink {
				continue
			}
			targets = append(targets, TargetRef{Entity: entity.Name, Property: p.Name})
		}
	}
	return targets
}

// nameSimilarity 源列名与目标属性的相似度
// 级联：归一化后全等 → 包含 → 词元重叠 + 编辑距离加权
func nameSimilarity(column string, target TargetRef) float64 {
	col := normalizeName(column)
	best := 0.0
	for _, cand := range []string{normalizeName(target.Property), normalizeName(target.String())} {
		if s := namePairScore(col, cand); s > best {
			best = s
		}
	}
	return best
}

func namePairScore(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1.0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.8
	}

	overlap := tokenOverlap(a, b)
	lev := levSimilarity(a, b)
	score := 0.6*overlap + 0.4*lev
	if score < 0.3 {
		return 0
	}
	return score
}

// tokenOverlap 词元重叠度（Dice 系数）
func tokenOverlap(a, b string) float64 {
	at := strings.Fields(a)
	bt := strings.Fields(b)
	if len(at) == 0 || len(bt) == 0 {
		return 0
	}
	matches := 0
	used := make([]bool, len(bt))
	for _, t := range at {
		for i, u := range bt {
			if !used[i] && t == u {
				used[i] = true
				matches++
				break
			}
		}
	}
	return float64(2*matches) / float64(len(at)+len(bt))
}

func levSimilarity(a, b string) float64 {
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 0
	}
	distance := levenshtein.DistanceForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
	return 1.0 - float64(distance)/float64(maxLen)
}

// normalizeName 列名归一化：驼峰拆词、分隔符归一、小写
func normalizeName(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r >= 'A' && r <= 'Z':
			if i > 0 && runes[i-1] >= 'a' && runes[i-1] <= 'z' {
				b.WriteRune(' ')
			}
			b.WriteRune(r - 'A' + 'a')
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
