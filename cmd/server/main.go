package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"dataset-remapper/internal/adapter"
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

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/websocket"
	"gopkg.in/yaml.v3"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许跨域
	},
}

// RemapRequest 重映射请求
type RemapRequest struct {
	SchemaPath   string  `json:"schema_path"`   // 目标数据模型 YAML
	VocabPath    string  `json:"vocab_path"`    // 受控值域 YAML
	InputPath    string  `json:"input_path"`    // 源数据文件 (CSV/TSV)
	DBType       string  `json:"db_type"`       // sqlserver/mysql，与 input_path 二选一
	Host         string  `json:"host"`          // 主机地址
	Port         string  `json:"port"`          // 端口
	Username     string  `json:"username"`      // 用户名
	Password     string  `json:"password"`      // 密码
	Database     string  `json:"database"`      // 数据库名
	Schema       string  `json:"schema"`        // Schema（MySQL需要）
	Table        string  `json:"table"`         // 源表名
	MetadataPath string  `json:"metadata_path"` // 先期元数据 YAML
	Floor        float64 `json:"floor"`         // 模糊匹配下限
	Threshold    float64 `json:"threshold"`     // 列映射提议阈值
}

// RemapTask 重映射任务
type RemapTask struct {
	ID        string       `json:"id"`
	Request   RemapRequest `json:"request"`
	Status    string       `json:"status"`   // pending/running/completed/failed
	Progress  int          `json:"progress"` // 0-100
	Message   string       `json:"message"`
	Result    *RemapResult `json:"result,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`

	// 决定接口要改写这些，完成后重渲染
	registry  *model.Registry
	mapping   *mapper.Mapping
	missing   []mapper.MissingRequiredField
	std       *standardize.Result
	detector  *conflict.Detector
	conflicts []*conflict.Record
	rowSets   map[string]*table.EntityRowSet
}

// RemapResult 重映射结果
type RemapResult struct {
	ReportMD  string            `json:"report_md"`
	ErMermaid string            `json:"er_mermaid"`
	GraphJSON string            `json:"graph_json"`
	Tables    map[string]string `json:"tables"` // 实体名 → TSV 内容
	Stats     map[string]int    `json:"stats"`
}

var (
	tasks   = make(map[string]*RemapTask)
	tasksMu sync.RWMutex
)

func main() {
	// 静态文件
	http.Handle("/", http.FileServer(http.Dir("web/static")))

	// API 路由
	http.HandleFunc("/api/remap", handleRemap)
	http.HandleFunc("/api/task/", handleTaskStatus)
	http.HandleFunc("/api/ws", handleWebSocket)
	http.HandleFunc("/api/decision", handleDecision)
	http.HandleFunc("/api/test-connection", handleTestConnection)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	fmt.Printf("🚀 Dataset Remapper Web Server\n")
	fmt.Printf("📡 服务地址: http://localhost:%s\n", port)
	fmt.Printf("📊 打开浏览器访问上述地址开始重映射\n\n")

	log.Fatal(http.ListenAndServe(":"+port, nil))
}

// handleRemap 处理重映射请求
func handleRemap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RemapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	taskID := fmt.Sprintf("task_%d", time.Now().UnixNano())
	task := &RemapTask{
		ID:        taskID,
		Request:   req,
		Status:    "pending",
		Progress:  0,
		Message:   "任务已创建，等待执行...",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	tasksMu.Lock()
	tasks[taskID] = task
	tasksMu.Unlock()

	// 异步执行
	go runRemap(task)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"task_id": taskID,
		"status":  "pending",
	})
}

// handleTaskStatus 查询任务状态
func handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := filepath.Base(r.URL.Path)

	tasksMu.RLock()
	task, exists := tasks[taskID]
	tasksMu.RUnlock()

	if !exists {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(task)
}

// handleWebSocket WebSocket 连接，持续推送任务状态
func handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	taskID := r.URL.Query().Get("task_id")
	if taskID == "" {
		return
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		tasksMu.RLock()
		task, exists := tasks[taskID]
		tasksMu.RUnlock()

		if !exists {
			break
		}

		if err := conn.WriteJSON(task); err != nil {
			break
		}

		if task.Status == "completed" || task.Status == "failed" {
			break
		}
	}
}

// DecisionRequest 人工复核决定
type DecisionRequest struct {
	TaskID    string `json:"task_id"`
	Kind      string `json:"kind"` // value/conflict
	Entity    string `json:"entity"`
	Property  string `json:"property"`
	Raw       string `json:"raw"`       // value 决定
	Canonical string `json:"canonical"` // value 决定
	New       string `json:"new"`       // conflict 决定
	Keep      string `json:"keep"`      // conflict 决定: prior/new
}

// handleDecision 套用一条人工决定并重渲染结果
func handleDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tasksMu.Lock()
	defer tasksMu.Unlock()

	task, exists := tasks[req.TaskID]
	if !exists {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}
	if task.Status != "completed" {
		http.Error(w, "Task not completed", http.StatusConflict)
		return
	}

	updated := 0
	switch req.Kind {
	case "value":
		updated = standardize.ApplyDecision(task.std, req.Entity, req.Property, req.Raw, req.Canonical)
	case "conflict":
		if task.detector == nil {
			http.Error(w, "Task has no prior metadata", http.StatusConflict)
			return
		}
		for _, record := range task.conflicts {
			if record.Entity == req.Entity && record.Property == req.Property && record.New == req.New {
				task.detector.Resolve(record, task.rowSets, req.Keep == "new")
				updated += len(record.RowIDs)
			}
		}
	default:
		http.Error(w, "Unknown decision kind", http.StatusBadRequest)
		return
	}

	task.Result = renderResult(task)
	task.UpdatedAt = time.Now()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"updated": updated,
	})
}

// runRemap 执行重映射
func runRemap(task *RemapTask) {
	updateTask := func(status string, progress int, message string) {
		tasksMu.Lock()
		task.Status = status
		task.Progress = progress
		task.Message = message
		task.UpdatedAt = time.Now()
		tasksMu.Unlock()
	}

	req := task.Request

	updateTask("running", 10, "加载目标数据模型与值域...")

	idx, err := vocab.Load(req.VocabPath)
	if err != nil {
		updateTask("failed", 10, err.Error())
		return
	}
	reg, err := model.Load(req.SchemaPath)
	if err != nil {
		updateTask("failed", 10, err.Error())
		return
	}
	if err := reg.ValidateVocabRefs(idx); err != nil {
		updateTask("failed", 10, err.Error())
		return
	}

	updateTask("running", 25, "读取源数据...")

	src, err := fetchSource(req)
	if err != nil {
		updateTask("failed", 25, fmt.Sprintf("读取源数据失败: %v", err))
		return
	}

	updateTask("running", 45, fmt.Sprintf("发现 %d 列 × %d 行，提议列映射...", len(src.Columns), len(src.Rows)))

	mapping := mapper.New(req.Threshold).Propose(src.Columns, reg)
	missing := mapper.ValidateCompleteness(mapping, reg)

	updateTask("running", 60, "拆分实体表...")

	rowSets := splitter.New().Split(src, mapping, reg)

	updateTask("running", 75, "值标准化...")

	cfg := matcher.DefaultConfig()
	if req.Floor > 0 {
		cfg.FuzzyFloor = req.Floor
	}
	std := standardize.New(reg, idx, cfg).Standardize(rowSets)

	var detector *conflict.Detector
	var conflicts []*conflict.Record
	if req.MetadataPath != "" {
		updateTask("running", 85, "检查先期元数据冲突...")
		prior, err := loadPrior(req.MetadataPath)
		if err != nil {
			updateTask("failed", 85, fmt.Sprintf("读取先期元数据失败: %v", err))
			return
		}
		detector = conflict.New(prior)
		conflicts = detector.Detect(rowSets)
	}

	updateTask("running", 95, "生成输出...")

	tasksMu.Lock()
	task.registry = reg
	task.mapping = mapping
	task.missing = missing
	task.std = std
	task.detector = detector
	task.conflicts = conflicts
	task.rowSets = rowSets
	task.Result = renderResult(task)
	tasksMu.Unlock()

	updateTask("completed", 100, "重映射完成！")
}

// renderResult 渲染任务结果，决定套用后会再次调用
func renderResult(task *RemapTask) *RemapResult {
	report := &renderer.Report{
		Registry:  task.registry,
		Mapping:   task.mapping,
		Missing:   task.missing,
		Std:       task.std,
		Conflicts: task.conflicts,
	}

	graphJSON, _ := graph.Build(task.registry, task.mapping).ToJSON()

	tables := make(map[string]string)
	rowCount := 0
	for name, rowSet := range task.rowSets {
		tables[name] = renderer.TSVString(rowSet)
		rowCount += rowSet.Len()
	}

	return &RemapResult{
		ReportMD:  renderer.NewMarkdownRenderer().Render(report),
		ErMermaid: renderer.NewMermaidRenderer().Render(task.registry, task.mapping),
		GraphJSON: string(graphJSON),
		Tables:    tables,
		Stats: map[string]int{
			"entities":  len(tables),
			"rows":      rowCount,
			"corrected": task.std.Corrected,
			"review":    len(task.std.Review),
			"conflicts": len(task.conflicts),
		},
	}
}

// fetchSource 按请求选择文件或数据库适配器
func fetchSource(req RemapRequest) (*table.Table, error) {
	if req.InputPath != "" {
		return adapter.NewDelimitedAdapter(req.InputPath).FetchTable("", 0)
	}

	var src adapter.SourceAdapter
	var err error
	switch req.DBType {
	case "sqlserver":
		connStr := fmt.Sprintf("server=%s;port=%s;user id=%s;password=%s;database=%s",
			req.Host, req.Port, req.Username, req.Password, req.Database)
		src, err = adapter.NewSQLServerAdapter(connStr)
	case "mysql":
		connStr := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?timeout=30s&readTimeout=30s&writeTimeout=30s",
			req.Username, req.Password, req.Host, req.Port, req.Database)
		src, err = adapter.NewMySQLAdapter(connStr, req.Schema)
	default:
		return nil, fmt.Errorf("不支持的数据库类型: %s", req.DBType)
	}
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if req.Table == "" {
		return nil, fmt.Errorf("数据库源需要指定源表名")
	}
	return src.FetchTable(req.Table, 0)
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

// handleTestConnection 测试数据库连接
func handleTestConnection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		DBType   string `json:"db_type"`
		Host     string `json:"host"`
		Port     string `json:"port"`
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var connStr string
	var db *sql.DB
	var err error

	switch req.DBType {
	case "sqlserver":
		connStr = fmt.Sprintf("server=%s;port=%s;user id=%s;password=%s",
			req.Host, req.Port, req.Username, req.Password)
		db, err = sql.Open("sqlserver", connStr)
	case "mysql":
		connStr = fmt.Sprintf("%s:%s@tcp(%s:%s)/?timeout=10s",
			req.Username, req.Password, req.Host, req.Port)
		db, err = sql.Open("mysql", connStr)
	default:
		http.Error(w, "Unsupported database type", http.StatusBadRequest)
		return
	}

	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": fmt.Sprintf("连接失败: %v", err),
		})
		return
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": fmt.Sprintf("连接失败: %v", err),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "连接成功！",
	})
}
