package standardize

import (
	"sync"

	"dataset-remapper/internal/matcher"
	"dataset-remapper/internal/model"
	"dataset-remapper/internal/table"
	"dataset-remapper/internal/vocab"
)

// 自动套用的置信度下限；低于模糊下限的进入人工复核
const autoApplyConfidence = 0.9

// 唯一值数量达到该值时并行匹配
const parallelThreshold = 16

// Correction 一条已套用的修正
type Correction struct {
	Entity     string         `json:"entity"`
	Property   string         `json:"property"`
	Raw        string         `json:"raw"`
	Canonical  string         `json:"canonical"`
	Method     matcher.Method `json:"method"`
	Confidence float64        `json:"confidence"`
	RowIDs     []string       `json:"row_ids"`
}

// ReviewItem 待人工复核的条目，按唯一原始值分组
// 多行共享同一个坏值时只出一条，批量复核靠这个分组
type ReviewItem struct {
	Entity       string              `json:"entity"`
	Property     string              `json:"property"`
	Raw          string              `json:"raw"`
	RowIDs       []string            `json:"row_ids"`
	Alternatives []matcher.Candidate `json:"alternatives,omitempty"`
	Chosen       string              `json:"chosen,omitempty"`
}

// Result 标准化结果
// Applied 静默套用；Summary 套用但列入批量确认摘要；Review 待人工决定
type Result struct {
	RowSets   map[string]*table.EntityRowSet `json:"row_sets"`
	Applied   []*Correction                  `json:"applied"`
	Summary   []*Correction                  `json:"summary"`
	Review    []*ReviewItem                  `json:"review"`
	Total     int                            `json:"total"`     // 检查的受控值实例数
	Corrected int                            `json:"corrected"` // 自动修正的实例数
}

// Standardizer 值标准化器
type Standardizer struct {
	reg *model.Registry
	m   *matcher.Matcher
}

// New 创建标准化器
func New(reg *model.Registry, idx *vocab.Index, cfg matcher.Config) *Standardizer {
	return &Standardizer{reg: reg, m: matcher.New(idx, cfg)}
}

// Standardize 对每个实体每个受控属性的每个值做值域匹配
// 按唯一原始值分组匹配一次，再把结果套用到共享该值的所有行
func (s *Standardizer) Standardize(rowSets map[string]*table.EntityRowSet) *Result {
	result := &Result{RowSets: rowSets}

	for _, entity := range s.reg.Entities() {
		rowSet := rowSets[entity.Name]
		if rowSet.Len() == 0 {
			continue
		}
		for _, p := range entity.Properties {
			if p.Kind != model.KindEnum {
				continue
			}
			s.standardizeProperty(result, rowSet, entity.Name, p)
		}
	}

	return result
}

func (s *Standardizer) standardizeProperty(result *Result, rowSet *table.EntityRowSet,
	entity string, p model.PropertyDef) {

	// 按首次出现顺序收集唯一原始值及共享该值的行
	var values []string
	rowsByValue := make(map[string][]string)
	for _, row := range rowSet.Rows {
		v := row.Values[p.Name]
		if table.IsBlank(v) {
			continue
		}
		result.Total++
		if _, seen := rowsByValue[v]; !seen {
			values = append(values, v)
		}
		rowsByValue[v] = append(rowsByValue[v], row.ID)
	}

	matches := s.matchAll(p.Vocabulary, values)

	for i, raw := range values {
		match := matches[i]
		rowIDs := rowsByValue[raw]

		if match.Method == matcher.MethodNone || match.Confidence < s.m.Floor() {
			result.Review = append(result.Review, &ReviewItem{
				Entity:       entity,
				Property:     p.Name,
				Raw:          raw,
				RowIDs:       rowIDs,
				Alternatives: match.Alternatives,
			})
			continue
		}

		if match.Best != raw {
			for _, id := range rowIDs {
				rowSet.Row(id).Values[p.Name] = match.Best
			}
			result.Corrected += len(rowIDs)
		}

		correction := &Correction{
			Entity:     entity,
			Property:   p.Name,
			Raw:        raw,
			Canonical:  match.Best,
			Method:     match.Method,
			Confidence: match.Confidence,
			RowIDs:     rowIDs,
		}
		if match.Confidence >= autoApplyConfidence {
			if match.Best != raw {
				result.Applied = append(result.Applied, correction)
			}
		} else {
			result.Summary = append(result.Summary, correction)
		}
	}
}

// matchAll 匹配全部唯一值；匹配彼此独立，量大时并行
func (s *Standardizer) matchAll(list string, values []string) []matcher.MatchResult {
	matches := make([]matcher.MatchResult, len(values))
	if len(values) < parallelThreshold {
		for i, v := range values {
			matches[i] = s.m.Match(list, v)
		}
		return matches
	}

	sem := make(chan struct{}, 4)
	var wg sync.WaitGroup
	for i, v := range values {
		wg.Add(1)
		go func(i int, v string) {
			defer wg.Done()
			sem <- struct{}{}
			matches[i] = s.m.Match(list, v)
			<-sem
		}(i, v)
	}
	wg.Wait()
	return matches
}

// ApplyDecision 把一条人工决定传播到共享该原始值的所有行
// 幂等：重复套用同一决定不会再改变行集
func ApplyDecision(result *Result, entity, property, raw, canonical string) int {
	var item *ReviewItem
	for _, r := range result.Review {
		if r.Entity == entity && r.Property == property && r.Raw == raw {
			item = r
			break
		}
	}
	if item == nil || canonical == "" {
		return 0
	}

	rowSet := result.RowSets[entity]
	if rowSet == nil {
		return 0
	}

	updated := 0
	for _, id := range item.RowIDs {
		row := rowSet.Row(id)
		if row == nil {
			continue
		}
		if row.Values[property] != canonical {
			row.Values[property] = canonical
			result.Corrected++
		}
		updated++
	}
	item.Chosen = canonical
	return updated
}
