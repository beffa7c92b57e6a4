package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HildaM/logs/slog"
	"github.com/cloudwego/eino-ext/components/model/openai"
	openai3 "github.com/cloudwego/eino-ext/libs/acl/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/hildam/printlab/entity/conf"
)

// ErrReasoning 模型调用失败（网络、超时、空回复）
var ErrReasoning = errors.New("reasoning call failed")

// Reasoner 无状态的推理客户端，每次调用都是独立的补全请求
type Reasoner interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ChatReasoner 基于 eino ChatModel 的推理客户端
type ChatReasoner struct {
	model   model.BaseChatModel // llm模型服务
	timeout time.Duration       // 单次调用超时
}

// NewChatReasoner 创建实例
func NewChatReasoner(cm model.BaseChatModel, timeout time.Duration) *ChatReasoner {
	return &ChatReasoner{model: cm, timeout: timeout}
}

// Complete 发送单条用户消息并返回模型回复文本
func (r *ChatReasoner) Complete(ctx context.Context, prompt string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	msg, err := r.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		slog.Error("Complete failed, generate err = %+v", err)
		return "", fmt.Errorf("%w: %v", ErrReasoning, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("%w: empty reply", ErrReasoning)
	}
	return msg.Content, nil
}

// NewChatModel 创建 OpenAI 兼容的Chat模型
func NewChatModel(ctx context.Context, cfg conf.ModelConfig, timeout time.Duration) (*openai.ChatModel, error) {
	mc := &openai.ChatModelConfig{
		Model:       cfg.DefaultModel.ModelID,
		BaseURL:     cfg.DefaultModel.BaseURL,
		APIKey:      cfg.DefaultModel.APIKey,
		Timeout:     timeout,
		Temperature: &cfg.Temperature,
	}
	// 所有步骤都要求 JSON 回复，开启后模型只输出 JSON 对象
	if cfg.JSONMode {
		mc.ResponseFormat = &openai3.ChatCompletionResponseFormat{
			Type: openai3.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	llm, err := openai.NewChatModel(ctx, mc)
	if err != nil {
		slog.Error("NewChatModel failed, err: %v", err)
		return nil, err
	}
	return llm, nil
}

// New 根据配置创建推理客户端
func New(ctx context.Context, cfg conf.ModelConfig, timeout time.Duration) (Reasoner, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiReasoner(ctx, cfg, timeout)
	case "", "openai":
		cm, err := NewChatModel(ctx, cfg, timeout)
		if err != nil {
			return nil, err
		}
		return NewChatReasoner(cm, timeout), nil
	}
	return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
}
