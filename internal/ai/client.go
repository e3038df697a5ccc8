package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client AI 客户端接口
type Client interface {
	// SuggestMapping 为无法自动映射的源列建议目标属性
	SuggestMapping(column string, samples []string, candidates []string) (*MappingSuggestion, error)
}

// MappingSuggestion 映射建议
type MappingSuggestion struct {
	Column     string  `json:"column"`
	Target     string  `json:"target"`     // "实体.属性"，无建议时为空
	Reason     string  `json:"reason"`     // 推断依据
	Confidence float64 `json:"confidence"` // 置信度
}

// AlibabaClient 阿里云通义千问客户端
type AlibabaClient struct {
	apiKey     string
	endpoint   string
	model      string
	httpClient *http.Client
}

// NewAlibabaClient 创建阿里云 AI 客户端
func NewAlibabaClient(apiKey string) *AlibabaClient {
	return &AlibabaClient{
		apiKey:   apiKey,
		endpoint: "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation",
		model:    "qwen-plus", // 或 qwen-turbo, qwen-max
		httpClient: &http.Client{},
	}
}

// SuggestMapping 基于列名和样本值推断目标属性
func (c *AlibabaClient) SuggestMapping(column string, samples []string, candidates []string) (*MappingSuggestion, error) {
	sampleDesc := strings.Join(samples, ", ")
	if len(sampleDesc) > 300 {
		sampleDesc = sampleDesc[:300]
	}

	prompt := fmt.Sprintf(`你是数据集整编专家。一个扁平数据表的列无法自动映射到目标数据模型，请推断它对应哪个目标属性。

源列名: %s
样本值: %s

可选目标属性（实体.属性）：
%s

请以 JSON 格式返回：
{
  "target": "实体.属性",
  "reason": "推断依据（30字以内）",
  "confidence": 0.75
}

注意：
1. 只返回 JSON，不要其他文字
2. target 必须从可选目标中选取，没有合适的就返回空字符串
3. 不确定时 confidence 设为 0.5 以下`, column, sampleDesc, strings.Join(candidates, "\n"))

	response, err := c.callAPI(prompt)
	if err != nil {
		return nil, err
	}

	var suggestion MappingSuggestion
	if err := json.Unmarshal([]byte(response), &suggestion); err != nil {
		return nil, fmt.Errorf("解析 AI 响应失败: %v", err)
	}

	suggestion.Column = column
	return &suggestion, nil
}

// callAPI 调用阿里云 API
func (c *AlibabaClient) callAPI(prompt string) (string, error) {
	requestBody := map[string]interface{}{
		"model": c.model,
		"input": map[string]interface{}{
			"messages": []map[string]string{
				{
					"role":    "system",
					"content": "你是数据集整编专家，精通临床与科研元数据的属性命名规范。",
				},
				{
					"role":    "user",
					"content": prompt,
				},
			},
		},
		"parameters": map[string]interface{}{
			"result_format": "message",
		},
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest("POST", c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API 调用失败: %s, 响应: %s", resp.Status, string(body))
	}

	var apiResp struct {
		Output struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		} `json:"output"`
	}

	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("解析响应失败: %v", err)
	}

	if len(apiResp.Output.Choices) == 0 {
		return "", fmt.Errorf("API 返回空响应")
	}

	return apiResp.Output.Choices[0].Message.Content, nil
}
