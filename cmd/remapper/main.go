package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"dataset-remapper/internal/adapter"
	"dataset-remapper/internal/ai"
	"dataset-remapper/internal/conflict"
	"dataset-remapper/internal/graph"
	"dataset-remapper/internal/mapper"
	"dataset-remapper/internal/matcher"
	"dataset-remapper/internal/model"
	"dataset-remapper/internal/renderer"
	"dataset-remapper/internal/splitter"
	"dataset-remapper/internal/standardize"
	"dataset-remapper/internal/table"
	"dataset-remapper/internal/vocab"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	schemaPath    string
	vocabPath     string
	inputPath     string
	dbType        string
	connStr       string
	dbSchema      string
	srcTable      string
	limit         int
	mappingPath   string
	metadataPath  string
	decisionsPath string
	outputDir     string
	fuzzyFloor    float64
	threshold     float64
	strict        bool
	enableAI      bool
	aiAPIKey      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dataset-remapper",
		Short: "数据集重映射器",
		Long:  "把扁平数据表按目标数据模型拆分重组，并对受控属性做值标准化",
	}

	remapCmd := &cobra.Command{
		Use:   "remap",
		Short: "执行重映射并生成目标实体表",
		Run:   runRemap,
	}
	addPipelineFlags(remapCmd)
	remapCmd.MarkFlagRequired("schema")
	remapCmd.MarkFlagRequired("vocab")

	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "套用人工复核决定后重新生成",
		Run:   runReview,
	}
	addPipelineFlags(reviewCmd)
	reviewCmd.MarkFlagRequired("schema")
	reviewCmd.MarkFlagRequired("vocab")
	reviewCmd.MarkFlagRequired("decisions")

	rootCmd.AddCommand(remapCmd)
	rootCmd.AddCommand(reviewCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&schemaPath, "schema", "", "目标数据模型 YAML")
	cmd.Flags().StringVar(&vocabPath, "vocab", "", "受控值域 YAML")
	cmd.Flags().StringVar(&inputPath, "input", "", "源数据文件 (CSV/TSV)")
	cmd.Flags().StringVar(&dbType, "type", "", "数据库类型 (sqlserver/mysql)，与 --input 二选一")
	cmd.Flags().StringVar(&connStr, "conn", "", "连接字符串")
	cmd.Flags().StringVar(&dbSchema, "db-schema", "", "数据库 schema (MySQL 必需)")
	cmd.Flags().StringVar(&srcTable, "table", "", "源表名")
	cmd.Flags().IntVar(&limit, "limit", 0, "读取行数上限，0 不限")
	cmd.Flags().StringVar(&mappingPath, "mapping", "", "人工映射覆盖 YAML")
	cmd.Flags().StringVar(&metadataPath, "metadata", "", "先期元数据 YAML（用于冲突检测）")
	cmd.Flags().StringVar(&decisionsPath, "decisions", "", "人工复核决定 YAML")
	cmd.Flags().StringVar(&outputDir, "output", "./output", "输出目录")
	cmd.Flags().Float64Var(&fuzzyFloor, "floor", 0, "模糊匹配下限（缺省 0.6）")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "列映射提议阈值（缺省 0.5）")
	cmd.Flags().BoolVar(&strict, "strict", false, "必填属性缺失时中止")
	cmd.Flags().BoolVar(&enableAI, "enable-ai", false, "对未映射列启用 AI 建议（需要 API Key）")
	cmd.Flags().StringVar(&aiAPIKey, "ai-key", "", "AI API Key（或使用环境变量 DASHSCOPE_API_KEY）")
}

func runRemap(cmd *cobra.Command, args []string) {
	runPipeline()
}

func runReview(cmd *cobra.Command, args []string) {
	runPipeline()
}

// overridesDoc 人工映射覆盖文件
type overridesDoc struct {
	Overrides []struct {
		Column   string `yaml:"column"`
		Entity   string `yaml:"entity"`
		Property string `yaml:"property"`
	} `yaml:"overrides"`
}

// decisionsDoc 人工复核决定文件
type decisionsDoc struct {
	Values []struct {
		Entity    string `yaml:"entity"`
		Property  string `yaml:"property"`
		Raw       string `yaml:"raw"`
		Canonical string `yaml:"canonical"`
	} `yaml:"values"`
	Conflicts []struct {
		Entity   string `yaml:"entity"`
		Property string `yaml:"property"`
		New      string `yaml:"new"`
		Keep     string `yaml:"keep"` // prior/new
	} `yaml:"conflicts"`
}

// reviewDoc 待复核清单，写出供人工填写 canonical 后做决定文件
type reviewDoc struct {
	Values    []reviewValue    `yaml:"values"`
	Conflicts []reviewConflict `yaml:"conflicts,omitempty"`
}

type reviewValue struct {
	Entity       string   `yaml:"entity"`
	Property     string   `yaml:"property"`
	Raw          string   `yaml:"raw"`
	RowCount     int      `yaml:"row_count"`
	Alternatives []string `yaml:"alternatives,omitempty"`
	Canonical    string   `yaml:"canonical"`
}

type reviewConflict struct {
	Entity   string `yaml:"entity"`
	Property string `yaml:"property"`
	Prior    string `yaml:"prior"`
	New      string `yaml:"new"`
	RowCount int    `yaml:"row_count"`
	Keep     string `yaml:"keep"`
}

func runPipeline() {
	fmt.Println("🔍 加载目标数据模型与值域...")

	idx, err := vocab.Load(vocabPath)
	if err != nil {
		log.Fatal(err)
	}
	reg, err := model.Load(schemaPath)
	if err != nil {
		log.Fatal(err)
	}
	if err := reg.ValidateVocabRefs(idx); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("✓ %d 个实体，%d 个值域列表\n", len(reg.Entities()), len(idx.Names()))

	// 1. 读取源数据
	fmt.Println("\n📊 读取源数据...")
	src, err := loadSource()
	if err != nil {
		log.Fatalf("读取源数据失败: %v", err)
	}
	fmt.Printf("✓ %d 列 × %d 行\n", len(src.Columns), len(src.Rows))

	// 2. 列映射提议与覆盖
	fmt.Println("\n🔗 提议列映射...")
	mp := mapper.New(threshold)
	mapping := mp.Propose(src.Columns, reg)
	applyOverrides(mapping, reg)
	if enableAI {
		runAISuggestions(mapping, src, reg)
	}
	fmt.Printf("✓ 已映射 %d / %d 列\n", len(mapping.Mapped()), len(mapping.Entries))

	missing := mapper.ValidateCompleteness(mapping, reg)
	for _, f := range missing {
		fmt.Printf("⚠️  必填属性 %s.%s 没有映射到任何源列\n", f.Entity, f.Property)
	}
	if strict && len(missing) > 0 {
		log.Fatal("存在必填属性缺失，--strict 模式中止")
	}

	// 3. 拆分
	fmt.Println("\n🔨 拆分实体表...")
	rowSets := splitter.New().Split(src, mapping, reg)
	for _, entity := range reg.Entities() {
		if rs := rowSets[entity.Name]; rs.Len() > 0 {
			fmt.Printf("  - %s: %d 行\n", entity.Name, rs.Len())
		}
	}

	// 4. 值标准化
	fmt.Println("\n📋 值标准化...")
	cfg := matcher.DefaultConfig()
	if fuzzyFloor > 0 {
		cfg.FuzzyFloor = fuzzyFloor
	}
	std := standardize.New(reg, idx, cfg).Standardize(rowSets)
	fmt.Printf("✓ 自动修正 %d / %d，待复核 %d 组\n", std.Corrected, std.Total, len(std.Review))

	// 5. 先期元数据冲突
	var detector *conflict.Detector
	var conflicts []*conflict.Record
	if metadataPath != "" {
		fmt.Println("\n🔎 检查先期元数据冲突...")
		prior, err := loadPrior(metadataPath)
		if err != nil {
			log.Fatalf("读取先期元数据失败: %v", err)
		}
		detector = conflict.New(prior)
		conflicts = detector.Detect(rowSets)
		fmt.Printf("✓ 发现 %d 处冲突\n", len(conflicts))
	}

	// 6. 套用人工决定
	if decisionsPath != "" {
		applyDecisions(std, detector, conflicts, rowSets)
	}

	// 7. 输出
	fmt.Println("\n📝 生成输出文件...")
	writeOutputs(reg, mapping, missing, std, conflicts, rowSets)

	fmt.Println("\n✅ 重映射完成！")
}

// loadSource 按参数选择文件或数据库适配器
func loadSource() (*table.Table, error) {
	var src adapter.SourceAdapter
	var name string

	switch {
	case inputPath != "":
		src = adapter.NewDelimitedAdapter(inputPath)
	case dbType == "mysql":
		if dbSchema == "" {
			log.Fatal("MySQL 需要指定 --db-schema 参数")
		}
		a, err := adapter.NewMySQLAdapter(connStr, dbSchema)
		if err != nil {
			return nil, err
		}
		src, name = a, srcTable
	case dbType == "sqlserver":
		a, err := adapter.NewSQLServerAdapter(connStr)
		if err != nil {
			return nil, err
		}
		src, name = a, srcTable
	default:
		log.Fatal("需要指定 --input 或 --type/--conn/--table")
	}
	defer src.Close()

	if inputPath == "" && name == "" {
		log.Fatal("数据库源需要指定 --table 参数")
	}
	return src.FetchTable(name, limit)
}

func applyOverrides(mapping *mapper.Mapping, reg *model.Registry) {
	if mappingPath == "" {
		return
	}
	data, err := os.ReadFile(mappingPath)
	if err != nil {
		log.Fatalf("读取映射覆盖失败: %v", err)
	}
	var doc overridesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		log.Fatalf("解析映射覆盖失败: %v", err)
	}
	for _, o := range doc.Overrides {
		if err := mapping.ApplyOverride(reg, o.Column, o.Entity, o.Property); err != nil {
			log.Fatalf("映射覆盖无效: %v", err)
		}
	}
}

// runAISuggestions 对仍未映射的列请求 AI 建议，低置信建议不采纳
func runAISuggestions(mapping *mapper.Mapping, src *table.Table, reg *model.Registry) {
	fmt.Println("\n🤖 对未映射列请求 AI 建议...")

	apiKey := aiAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("DASHSCOPE_API_KEY")
	}
	if apiKey == "" {
		fmt.Println("⚠️  未提供 API Key，跳过 AI 建议")
		fmt.Println("   提示：使用 --ai-key 或设置环境变量 DASHSCOPE_API_KEY")
		return
	}

	var targets []string
	for _, entity := range reg.Entities() {
		for _, p := range entity.Properties {
			if !p.FromLink {
				targets = append(targets, entity.Name+"."+p.Name)
			}
		}
	}

	client := ai.NewAlibabaClient(apiKey)
	adopted := 0
	for _, e := range mapping.Unmapped() {
		samples := src.DistinctValues(e.Column)
		if len(samples) > 5 {
			samples = samples[:5]
		}
		s, err := client.SuggestMapping(e.Column, samples, targets)
		if err != nil {
			fmt.Printf("⚠️  AI 建议失败 (%s): %v\n", e.Column, err)
			continue
		}
		if s.Target == "" || s.Confidence < 0.5 {
			continue
		}
		entity, property, ok := splitTarget(s.Target)
		if !ok {
			continue
		}
		if err := mapping.ApplySuggestion(reg, e.Column, entity, property, s.Confidence); err != nil {
			fmt.Printf("⚠️  AI 建议无效 (%s): %v\n", e.Column, err)
			continue
		}
		adopted++
		fmt.Printf("  - %s → %s (%.2f) %s\n", e.Column, s.Target, s.Confidence, s.Reason)
	}
	fmt.Printf("✓ 采纳 %d 条 AI 建议\n", adopted)
}

func splitTarget(target string) (string, string, bool) {
	for i := 0; i < len(target); i++ {
		if target[i] == '.' {
			return target[:i], target[i+1:], true
		}
	}
	return "", "", false
}

func loadPrior(path string) (map[string][]map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var prior map[string][]map[string]string
	if err := yaml.Unmarshal(data, &prior); err != nil {
		return nil, err
	}
	return prior, nil
}

// applyDecisions 套用人工复核决定到值标准化与冲突两侧
func applyDecisions(std *standardize.Result, detector *conflict.Detector,
	conflicts []*conflict.Record, rowSets map[string]*table.EntityRowSet) {

	fmt.Println("\n✍️  套用人工复核决定...")
	data, err := os.ReadFile(decisionsPath)
	if err != nil {
		log.Fatalf("读取决定文件失败: %v", err)
	}
	var doc decisionsDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		log.Fatalf("解析决定文件失败: %v", err)
	}

	applied := 0
	for _, d := range doc.Values {
		applied += standardize.ApplyDecision(std, d.Entity, d.Property, d.Raw, d.Canonical)
	}
	fmt.Printf("✓ 值决定更新 %d 行\n", applied)

	if detector == nil {
		return
	}
	resolved := 0
	for _, d := range doc.Conflicts {
		for _, record := range conflicts {
			if record.Entity == d.Entity && record.Property == d.Property && record.New == d.New {
				detector.Resolve(record, rowSets, d.Keep == "new")
				resolved++
			}
		}
	}
	fmt.Printf("✓ 冲突裁决 %d 条\n", resolved)
}

func writeOutputs(reg *model.Registry, mapping *mapper.Mapping,
	missing []mapper.MissingRequiredField, std *standardize.Result,
	conflicts []*conflict.Record, rowSets map[string]*table.EntityRowSet) {

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		log.Fatalf("创建输出目录失败: %v", err)
	}

	// 实体表 TSV
	paths, err := renderer.NewTSVWriter(outputDir).WriteAll(reg, rowSets)
	if err != nil {
		log.Fatalf("写出实体表失败: %v", err)
	}
	for _, p := range paths {
		fmt.Printf("✓ %s\n", p)
	}

	report := &renderer.Report{
		Registry:  reg,
		Mapping:   mapping,
		Missing:   missing,
		Std:       std,
		Conflicts: conflicts,
	}

	// Markdown 报告
	mdPath := filepath.Join(outputDir, "report.md")
	os.WriteFile(mdPath, []byte(renderer.NewMarkdownRenderer().Render(report)), 0o644)
	fmt.Printf("✓ %s\n", mdPath)

	// Mermaid ER 图
	mmdPath := filepath.Join(outputDir, "er.mmd")
	os.WriteFile(mmdPath, []byte(renderer.NewMermaidRenderer().Render(reg, mapping)), 0o644)
	fmt.Printf("✓ %s\n", mmdPath)

	// 结构图 JSON
	jsonData, _ := graph.Build(reg, mapping).ToJSON()
	jsonPath := filepath.Join(outputDir, "graph.json")
	os.WriteFile(jsonPath, jsonData, 0o644)
	fmt.Printf("✓ %s\n", jsonPath)

	// 待复核清单
	if err := writeReviewDoc(std, conflicts); err != nil {
		log.Fatalf("写出复核清单失败: %v", err)
	}
}

// writeReviewDoc 写出待复核清单，人工填好后作为 --decisions 输入
func writeReviewDoc(std *standardize.Result, conflicts []*conflict.Record) error {
	doc := reviewDoc{}
	for _, item := range std.Review {
		if item.Chosen != "" {
			continue
		}
		rv := reviewValue{
			Entity:   item.Entity,
			Property: item.Property,
			Raw:      item.Raw,
			RowCount: len(item.RowIDs),
		}
		for _, alt := range item.Alternatives {
			rv.Alternatives = append(rv.Alternatives, fmt.Sprintf("%s (%.2f)", alt.Value, alt.Score))
		}
		doc.Values = append(doc.Values, rv)
	}
	for _, record := range conflict.Unresolved(conflicts) {
		doc.Conflicts = append(doc.Conflicts, reviewConflict{
			Entity:   record.Entity,
			Property: record.Property,
			Prior:    record.Prior,
			New:      record.New,
			RowCount: len(record.RowIDs),
		})
	}
	if len(doc.Values) == 0 && len(doc.Conflicts) == 0 {
		return nil
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return err
	}
	path := filepath.Join(outputDir, "review.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("✓ %s\n", path)
	return nil
}
