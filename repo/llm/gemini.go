package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/HildaM/logs/slog"
	"github.com/hildam/printlab/entity/conf"
	"google.golang.org/genai"
)

// GeminiReasoner 基于 genai 的推理客户端，按顺序尝试候选模型
type GeminiReasoner struct {
	cli       *genai.Client
	models    []string
	maxTokens int32
	temp      float32
	timeout   time.Duration
}

// NewGeminiReasoner 创建实例
func NewGeminiReasoner(ctx context.Context, cfg conf.ModelConfig, timeout time.Duration) (*GeminiReasoner, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if len(cfg.Gemini.Models) == 0 {
		return nil, fmt.Errorf("no gemini models configured")
	}
	return &GeminiReasoner{
		cli:       cli,
		models:    cfg.Gemini.Models,
		maxTokens: int32(cfg.Gemini.MaxOutputTokens),
		temp:      cfg.Temperature,
		timeout:   timeout,
	}, nil
}

// Complete 依次尝试候选模型，全部失败时返回最后一个错误
func (g *GeminiReasoner) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for _, m := range g.models {
		text, err := g.generate(ctx, m, prompt)
		if err == nil {
			return text, nil
		}
		slog.Error("Complete failed, gemini model = %s, err = %+v", m, err)
		lastErr = err
	}
	return "", fmt.Errorf("%w: %v", ErrReasoning, lastErr)
}

func (g *GeminiReasoner) generate(ctx context.Context, model, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.cli.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temp),
		MaxOutputTokens: g.maxTokens,
	})
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty response from %s", model)
	}
	return text, nil
}
