package callback

import (
	"context"

	"github.com/HildaM/logs/slog"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/schema"
	"github.com/hildam/printlab/entity/consts"
	"github.com/hildam/printlab/entity/model"
)

// StepCallback 研究流程回调，把节点开始执行转换为流式事件
type StepCallback struct {
	ID  string             // 会话ID
	Out chan<- model.Event // 事件通道，为空时只记录日志
}

var _ callbacks.Handler = (*StepCallback)(nil)

// push 推送事件，ctx 结束时放弃推送
func (cb *StepCallback) push(ctx context.Context, event model.Event) {
	if cb.Out == nil {
		return
	}
	select {
	case cb.Out <- event:
	case <-ctx.Done():
		slog.Debug("push debug, ctx done, drop event = %+v", event)
	}
}

// OnStart 研究节点开始执行时推送 start 事件，其它组件只记录日志
func (cb *StepCallback) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	if info == nil || !consts.IsStep(info.Name) {
		return ctx
	}
	slog.Debug("OnStart debug, session = %s, node = %s", cb.ID, info.Name)
	cb.push(ctx, model.Event{
		Type:      consts.EventStart,
		SessionID: cb.ID,
		Node:      info.Name,
	})
	return ctx
}

// OnEnd 节点执行结束
func (cb *StepCallback) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	if info != nil && consts.IsStep(info.Name) {
		slog.Debug("OnEnd debug, session = %s, node = %s, output = %v", cb.ID, info.Name, output)
	}
	return ctx
}

// OnError 节点执行出错，错误由调用方统一处理
func (cb *StepCallback) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	name := ""
	if info != nil {
		name = info.Name
	}
	slog.Error("OnError failed, session = %s, node = %s, err = %+v", cb.ID, name, err)
	return ctx
}

// OnEndWithStreamOutput 研究流程只使用 Invoke，收到流时直接关闭
func (cb *StepCallback) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo,
	output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	output.Close()
	return ctx
}

// OnStartWithStreamInput 关闭输入流，释放资源
func (cb *StepCallback) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo,
	input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	return ctx
}
