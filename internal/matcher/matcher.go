package matcher

import (
	"sort"
	"strings"

	"dataset-remapper/internal/vocab"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Method 匹配方法，按级联顺序排列
type Method string

const (
	MethodExact      Method = "exact"      // 标准值大小写不敏感精确匹配
	MethodSynonym    Method = "synonym"    // 同义词匹配
	MethodOntology   Method = "ontology"   // 本体编码匹配
	MethodNormalized Method = "normalized" // 归一化/限定词剥离匹配
	MethodFuzzy      Method = "fuzzy"      // 编辑距离模糊匹配
	MethodNone       Method = "none"       // 无匹配，进入人工复核
)

// 各方法对应的置信度
const (
	confExact      = 1.0
	confSynonym    = 0.95
	confOntology   = 0.9
	confNormalized = 0.85
)

// Candidate 候选标准值
type Candidate struct {
	Value string  `json:"value"`
	Score float64 `json:"score"`
}

// MatchResult 一次值域匹配的结果
// 模糊匹配低于下限时 Best 为空，候选只出现在 Alternatives 里
type MatchResult struct {
	Raw          string      `json:"raw"`
	Best         string      `json:"best"`
	Confidence   float64     `json:"confidence"`
	Method       Method      `json:"method"`
	Alternatives []Candidate `json:"alternatives,omitempty"`
}

// Config 匹配参数
type Config struct {
	FuzzyFloor      float64  // 模糊匹配下限，低于此值不自动选定
	Qualifiers      []string // 可剥离的尾部限定词
	MaxAlternatives int      // 返回的候选上限
}

// DefaultConfig 缺省参数
func DefaultConfig() Config {
	return Config{
		FuzzyFloor:      0.6,
		Qualifiers:      []string{"NOS", "Not Otherwise Specified", "Unspecified"},
		MaxAlternatives: 5,
	}
}

// Matcher 值域匹配器，只读 vocab.Index，可按值并发调用
type Matcher struct {
	index *vocab.Index
	cfg   Config
}

// New 创建匹配器
func New(index *vocab.Index, cfg Config) *Matcher {
	if cfg.FuzzyFloor <= 0 {
		cfg.FuzzyFloor = DefaultConfig().FuzzyFloor
	}
	if cfg.MaxAlternatives <= 0 {
		cfg.MaxAlternatives = DefaultConfig().MaxAlternatives
	}
	if len(cfg.Qualifiers) == 0 {
		cfg.Qualifiers = DefaultConfig().Qualifiers
	}
	return &Matcher{index: index, cfg: cfg}
}

// Match 在指定值域列表中匹配原始值
// 级联顺序：精确 → 同义词 → 本体编码 → 归一化 → 模糊
func (m *Matcher) Match(listName, raw string) MatchResult {
	result := MatchResult{Raw: raw, Method: MethodNone}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return result
	}
	list := m.index.List(listName)
	if list == nil {
		return result
	}

	lowered := strings.ToLower(trimmed)

	// 1. 标准值精确匹配
	if entry := list.Canonical(lowered); entry != nil {
		result.Best = entry.Value
		result.Confidence = confExact
		result.Method = MethodExact
		return result
	}

	// 2. 同义词匹配
	if entry := list.Synonym(lowered); entry != nil {
		result.Best = entry.Value
		result.Confidence = confSynonym
		result.Method = MethodSynonym
		return result
	}

	// 3. 本体编码匹配
	if looksLikeCode(trimmed) {
		if entry := list.ByCode(lowered); entry != nil {
			result.Best = entry.Value
			result.Confidence = confOntology
			result.Method = MethodOntology
			return result
		}
	}

	normRaw := normalize(trimmed)
	stripped := m.stripQualifiers(normRaw)

	// 4. 归一化匹配：去标点、合并空白、剥离尾部限定词
	// "Lung, NOS" 剥离后直接归约到标准值 "Lung"
	if best := matchNormalized(list, normRaw, stripped); best != "" {
		result.Best = best
		result.Confidence = confNormalized
		result.Method = MethodNormalized
		return result
	}

	// 5. 模糊匹配：对标准值和同义词计算编辑距离相似度
	candidates := fuzzyCandidates(list, normRaw)

	if len(candidates) > 0 && candidates[0].Score >= m.cfg.FuzzyFloor {
		result.Best = candidates[0].Value
		result.Confidence = candidates[0].Score
		result.Method = MethodFuzzy
		result.Alternatives = capAlternatives(candidates[1:], m.cfg.MaxAlternatives)
		return result
	}

	// 低于下限：不选定，候选留给人工复核
	// 剥离过限定词时，把父类目（标准值包含在剥离结果中）提到前面
	if stripped != normRaw {
		sort.SliceStable(candidates, func(i, j int) bool {
			ci := containsCanonical(stripped, candidates[i].Value)
			cj := containsCanonical(stripped, candidates[j].Value)
			return ci && !cj
		})
	}
	result.Alternatives = capAlternatives(candidates, m.cfg.MaxAlternatives)
	return result
}

// Floor 当前模糊匹配下限
func (m *Matcher) Floor() float64 {
	return m.cfg.FuzzyFloor
}

func matchNormalized(list *vocab.List, normRaw, stripped string) string {
	// 先试标准值，再试同义词；剥离形式只在原始归一化未命中时使用
	for _, form := range []string{normRaw, stripped} {
		if form == "" {
			continue
		}
		for _, entry := range list.Entries {
			if normalize(entry.Value) == form {
				return entry.Value
			}
		}
		for _, entry := range list.Entries {
			for _, syn := range entry.Synonyms {
				if normalize(syn) == form {
					return entry.Value
				}
			}
		}
		if stripped == normRaw {
			break
		}
	}
	return ""
}

func fuzzyCandidates(list *vocab.List, normRaw string) []Candidate {
	var candidates []Candidate
	for _, entry := range list.Entries {
		best := similarity(normRaw, normalize(entry.Value))
		for _, syn := range entry.Synonyms {
			if s := similarity(normRaw, normalize(syn)); s > best {
				best = s
			}
		}
		if best > 0 {
			candidates = append(candidates, Candidate{Value: entry.Value, Score: best})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// similarity 编辑距离相似度，0~1
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
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

// stripQualifiers 反复剥离尾部限定词，如 "lung nos" → "lung"
func (m *Matcher) stripQualifiers(norm string) string {
	for {
		stripped := norm
		for _, q := range m.cfg.Qualifiers {
			nq := normalize(q)
			if nq == "" {
				continue
			}
			if strings.HasSuffix(stripped, " "+nq) {
				stripped = strings.TrimSpace(strings.TrimSuffix(stripped, " "+nq))
			}
		}
		if stripped == norm {
			return norm
		}
		norm = stripped
	}
}

// normalize 小写、去标点、合并空白
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// looksLikeCode 判断原始值是否像本体编码，如 C41261、UBERON:0002048
func looksLikeCode(s string) bool {
	if strings.ContainsAny(s, " \t") {
		return false
	}
	hasDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case r == ':' || r == '_' || r == '-':
		default:
			return false
		}
	}
	return hasDigit
}

func containsCanonical(stripped, canonical string) bool {
	nc := normalize(canonical)
	return nc != "" && strings.Contains(" "+stripped+" ", " "+nc+" ")
}

func capAlternatives(candidates []Candidate, max int) []Candidate {
	if len(candidates) > max {
		candidates = candidates[:max]
	}
	if len(candidates) == 0 {
		return nil
	}
	out := make([]Candidate, len(candidates))
	copy(out, candidates)
	return out
}
