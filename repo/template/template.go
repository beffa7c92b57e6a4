package template

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/HildaM/logs/slog"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/hildam/printlab/entity/conf"
)

// 提示词模板名字
const (
	Planner       = "planner"
	Evaluator     = "evaluator"
	Refiner       = "refiner"
	Synthesizer   = "synthesizer"
	FinalResponse = "final_response"
)

//go:embed prompts/*.md
var builtin embed.FS

// GetPromptTemplate 加载并返回一个提示模板，优先读取配置的覆盖目录
func GetPromptTemplate(ctx context.Context, promptName string) (string, error) {
	fileName := fmt.Sprintf("%s.md", promptName)

	// 覆盖目录中存在同名文件时使用覆盖版本
	if dir := conf.GetCfg().Setting.PromptDir; dir != "" {
		content, err := os.ReadFile(filepath.Join(dir, fileName))
		if err == nil {
			return string(content), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			msg := fmt.Errorf("GetPromptTemplate failed, read override file, err: %w", err)
			slog.Error(msg.Error())
			return "", msg
		}
	}

	content, err := builtin.ReadFile("prompts/" + fileName)
	if err != nil {
		msg := fmt.Errorf("GetPromptTemplate failed, read template file, err: %w", err)
		slog.Error(msg.Error())
		return "", msg
	}
	return string(content), nil
}

// Render 加载模板并用变量渲染为单条提示词
func Render(ctx context.Context, promptName string, variables map[string]any) (string, error) {
	tpl, err := GetPromptTemplate(ctx, promptName)
	if err != nil {
		return "", err
	}

	promptTemp := prompt.FromMessages(schema.Jinja2, schema.UserMessage(tpl))
	msgs, err := promptTemp.Format(ctx, variables)
	if err != nil {
		slog.Error("Render failed, format %s err = %+v", promptName, err)
		return "", fmt.Errorf("render %s: %w", promptName, err)
	}
	if len(msgs) == 0 {
		return "", fmt.Errorf("render %s: no message", promptName)
	}
	return msgs[0].Content, nil
}
