package comm

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/HildaM/logs/slog"
	"github.com/cloudwego/eino/compose"
	"github.com/hildam/printlab/entity/model"
	"github.com/hildam/printlab/repo/llm"
)

// NewReasonNode 返回调用推理服务的 lambda 节点函数
// 空提示词直接返回空串；调用失败时把错误记入状态并返回空串，由后续 router 走降级逻辑
func NewReasonNode(reasoner llm.Reasoner, step string) func(ctx context.Context, prompt string, opts ...any) (string, error) {
	return func(ctx context.Context, prompt string, opts ...any) (string, error) {
		if prompt == "" {
			slog.Debug("ReasonNode debug, %s prompt is empty, skip", step)
			return "", nil
		}

		reply, err := reasoner.Complete(ctx, prompt)
		if err != nil {
			slog.Error("ReasonNode failed, step = %s, err = %+v", step, err)
			_ = compose.ProcessState[*model.State](ctx, func(_ context.Context, state *model.State) error {
				state.AddError(fmt.Sprintf("%s: %v", step, err))
				return nil
			})
			return "", nil
		}
		slog.Debug("ReasonNode debug, step = %s, reply length = %d", step, len(reply))
		return reply, nil
	}
}

// ClipContent 截断超长文本，保留开头部分，不切断多字节字符
func ClipContent(content string, maxLimit int) string {
	if maxLimit <= 0 || len(content) <= maxLimit {
		return content
	}
	slog.Debug("ClipContent debug, content length is %d, max limit is %d", len(content), maxLimit)
	cut := maxLimit
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}

// Preview 取前 n 个字符
func Preview(content string, n int) string {
	if utf8.RuneCountInString(content) <= n {
		return content
	}
	return string([]rune(content)[:n])
}
