package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/HildaM/logs/slog"
	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/hildam/printlab/agent/evaluator"
	"github.com/hildam/printlab/agent/planner"
	"github.com/hildam/printlab/agent/refiner"
	"github.com/hildam/printlab/agent/repoter"
	"github.com/hildam/printlab/agent/searcher"
	"github.com/hildam/printlab/agent/synthesizer"
	"github.com/hildam/printlab/agent/validator"
	"github.com/hildam/printlab/entity/conf"
	"github.com/hildam/printlab/entity/consts"
	"github.com/hildam/printlab/entity/model"
	"github.com/hildam/printlab/repo/callback"
	"github.com/hildam/printlab/repo/llm"
)

// eventBuffer 流式事件通道缓冲
const eventBuffer = 16

// Agent 定义了一个代理接口，用于创建和管理代理实例
type Agent interface {
	// NewGraphNode 获取代理节点
	NewGraphNode(ctx context.Context) (key string, node compose.AnyGraph, nameOption compose.GraphAddNodeOpt)
}

// Deps 研究流程依赖
type Deps struct {
	Reasoner   llm.Reasoner            // 推理服务
	Sources    searcher.Sources        // 检索来源与知识库
	Setting    conf.SettingConfig      // 流程参数
	CheckPoint compose.CheckPointStore // 全局状态存储点，可为空
}

// Controller 研究控制器，图只编译一次，各会话互不共享状态
type Controller struct {
	runnable   compose.Runnable[string, string]
	setting    conf.SettingConfig
	checkPoint bool // 是否配置了状态存储点
}

// stateKey 每次调用的初始状态在 ctx 中的键
type stateKey struct{}

// NewController 构建并编译研究图
func NewController(ctx context.Context, deps Deps) (*Controller, error) {
	if deps.Reasoner == nil {
		return nil, errors.New("agent: reasoner is required")
	}
	setting := deps.Setting
	if setting.MaxIterations <= 0 {
		setting.MaxIterations = conf.DefaultMaxIterations
	}
	if setting.SufficientDocCount <= 0 {
		setting.SufficientDocCount = conf.DefaultSufficientDocCount
	}

	runnable, err := BuildAgentGraph(ctx, deps, setting)
	if err != nil {
		return nil, err
	}
	return &Controller{runnable: runnable, setting: setting, checkPoint: deps.CheckPoint != nil}, nil
}

// BuildAgentGraph 用于构建研究图
func BuildAgentGraph(ctx context.Context, deps Deps, setting conf.SettingConfig) (compose.Runnable[string, string], error) {
	// 状态由调用方放入 ctx，便于结束后读取
	stateGenFunc := func(ctx context.Context) *model.State {
		if state, ok := ctx.Value(stateKey{}).(*model.State); ok && state != nil {
			return state
		}
		return &model.State{
			MaxIterations:      setting.MaxIterations,
			SufficientDocCount: setting.SufficientDocCount,
		}
	}

	graph := compose.NewGraph[string, string](
		compose.WithGenLocalState(stateGenFunc),
	)

	// 定义agent实例映射，确保节点名字与实例严格对应
	agentInstances := map[string]Agent{
		consts.Plan:       planner.NewPlanner(deps.Reasoner),
		consts.Gather:     searcher.NewGather(deps.Sources),
		consts.Evaluate:   evaluator.NewEvaluator(deps.Reasoner),
		consts.Refine:     refiner.NewRefiner(deps.Reasoner),
		consts.WebSearch:  searcher.NewWebSearch(deps.Sources),
		consts.Synthesize: synthesizer.NewSynthesizer(deps.Reasoner, setting.MaxLimitToken),
		consts.Validate:   validator.NewValidator(),
		consts.Output:     repoter.NewRepoter(),
	}

	// 构造任务图
	for agentName, agentInstance := range agentInstances {
		key, node, nameOption := agentInstance.NewGraphNode(ctx)
		if key != agentName {
			slog.Error("BuildAgentGraph failed, agent key mismatch: expected %s, got %s", agentName, key)
			return nil, fmt.Errorf("agent key mismatch: expected %s, got %s", agentName, key)
		}
		if err := graph.AddGraphNode(key, node, nameOption); err != nil {
			slog.Error("BuildAgentGraph failed, AddGraphNode %s err = %+v", key, err)
			return nil, err
		}
	}

	// 构造branch
	for agentName := range agentInstances {
		if err := graph.AddBranch(agentName, compose.NewGraphBranch(routeToNextAgent, getAgentGraphMap())); err != nil {
			slog.Error("BuildAgentGraph failed, AddBranch %s err = %+v", agentName, err)
			return nil, err
		}
	}

	// 构造起始边
	if err := graph.AddEdge(compose.START, consts.Plan); err != nil {
		return nil, err
	}

	opts := []compose.GraphCompileOption{
		compose.WithGraphName(consts.GraphName),
		compose.WithNodeTriggerMode(compose.AnyPredecessor),
		// plan、gather 之后每轮 evaluate/refine/web_search 三步，再加收尾
		compose.WithMaxRunSteps(3*setting.MaxIterations + 10),
	}
	if deps.CheckPoint != nil {
		opts = append(opts, compose.WithCheckPointStore(deps.CheckPoint))
	}

	runnable, err := graph.Compile(ctx, opts...)
	if err != nil {
		slog.Error("BuildAgentGraph failed, err = %v", err)
		return nil, err
	}
	return runnable, nil
}

// Research 运行一次完整研究并返回最终状态，sessionID 为空时自动生成
func (c *Controller) Research(ctx context.Context, query, sessionID string) (*model.State, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return c.research(ctx, query, sessionID)
}

func (c *Controller) research(ctx context.Context, query, sessionID string, opts ...compose.Option) (*model.State, error) {
	state := &model.State{
		SessionID:          sessionID,
		OriginalQuery:      query,
		MaxIterations:      c.setting.MaxIterations,
		SufficientDocCount: c.setting.SufficientDocCount,
	}
	ctx = context.WithValue(ctx, stateKey{}, state)

	if c.checkPoint {
		opts = append(opts, compose.WithCheckPointID(sessionID))
	}
	if _, err := c.runnable.Invoke(ctx, query, opts...); err != nil {
		slog.Error("Research failed, session = %s, err = %+v", sessionID, err)
		return state, fmt.Errorf("research session %s: %w", sessionID, err)
	}
	slog.Info("Research info, session = %s, iterations = %d, evidence = %d, errors = %d",
		sessionID, state.IterationCount, state.Evidence.Len(), len(state.Errors))
	return state, nil
}

// Run 运行研究并返回最终回答，图无法运行时仍返回占位文本
func (c *Controller) Run(ctx context.Context, query, sessionID string) (string, error) {
	state, err := c.Research(ctx, query, sessionID)
	if err != nil {
		return failedResponse(err), err
	}
	return state.FinalResponse, nil
}

// RunStreaming 以事件流的方式运行研究，先推送节点 start 事件，最后推送 complete 或 error 事件后关闭通道
func (c *Controller) RunStreaming(ctx context.Context, query, sessionID string) <-chan model.Event {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	out := make(chan model.Event, eventBuffer)

	go func() {
		defer close(out)

		cb := &callback.StepCallback{ID: sessionID, Out: out}
		state, err := c.research(ctx, query, sessionID, compose.WithCallbacks(cb))

		event := model.Event{Type: consts.EventComplete, SessionID: sessionID}
		if err != nil {
			event = model.Event{Type: consts.EventError, SessionID: sessionID, Message: err.Error()}
		} else {
			event.Response = state.FinalResponse
			event.Sources = state.SourcesCited
		}

		select {
		case out <- event:
		case <-ctx.Done():
			slog.Debug("RunStreaming debug, ctx done, drop %s event", event.Type)
		}
	}()
	return out
}

// failedResponse 图无法运行时的占位回答
func failedResponse(err error) string {
	return fmt.Sprintf("Analysis in progress... The research could not be completed (%v).", err)
}

// routeToNextAgent 根据状态中的Goto字段路由到下一个代理节点
func routeToNextAgent(ctx context.Context, input string) (next string, err error) {
	defer func() {
		slog.Debug("routeToNextAgent debug, input = %s, next = %s", input, next)
	}()
	_ = compose.ProcessState[*model.State](ctx, func(_ context.Context, state *model.State) error {
		next = state.Goto
		return nil
	})
	if next == "" {
		return compose.END, nil
	}
	return next, nil
}

// getAgentGraphMap 返回所有可用的节点
// 注意：这个函数应该与BuildAgentGraph中的agentInstances保持一致
func getAgentGraphMap() map[string]bool {
	m := map[string]bool{
		compose.END: true, // 流程结束节点
	}
	for _, step := range consts.GetStepNameList() {
		m[step] = true
	}
	return m
}
