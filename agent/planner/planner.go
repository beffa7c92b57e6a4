package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/HildaM/logs/slog"
	"github.com/cloudwego/eino/compose"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/hildam/printlab/agent/comm"
	"github.com/hildam/printlab/entity/consts"
	"github.com/hildam/printlab/entity/model"
	"github.com/hildam/printlab/repo/llm"
	"github.com/hildam/printlab/repo/template"
)

// plannerImpl 规划者，把用户问题拆解为研究计划
type plannerImpl struct {
	reasoner llm.Reasoner // 推理服务
}

// NewPlanner 创建实例
func NewPlanner(reasoner llm.Reasoner) *plannerImpl {
	return &plannerImpl{reasoner: reasoner}
}

// NewGraphNode 创建任务图
func (p *plannerImpl) NewGraphNode(ctx context.Context) (key string, node compose.AnyGraph, nameOption compose.GraphAddNodeOpt) {
	graph := compose.NewGraph[string, string]()

	// 添加节点
	_ = graph.AddLambdaNode("load", compose.InvokableLambdaWithOption(load))
	_ = graph.AddLambdaNode("agent", compose.InvokableLambdaWithOption(comm.NewReasonNode(p.reasoner, consts.Plan)))
	_ = graph.AddLambdaNode("router", compose.InvokableLambdaWithOption(router))

	// 构造关联
	_ = graph.AddEdge(compose.START, "load")
	_ = graph.AddEdge("load", "agent")
	_ = graph.AddEdge("agent", "router")
	_ = graph.AddEdge("router", compose.END)

	return consts.Plan, graph, compose.WithNodeName(consts.Plan)
}

// load 重置本轮研究的状态并渲染规划提示词
func load(ctx context.Context, input string, opts ...any) (output string, err error) {
	err = compose.ProcessState[*model.State](ctx, func(ctx context.Context, state *model.State) error {
		if state.OriginalQuery == "" {
			state.OriginalQuery = input
		}
		state.IterationCount = 0
		state.IsSufficient = false
		state.ConfidenceScore = 0
		state.MissingInfo = nil
		state.Errors = nil

		output, err = template.Render(ctx, template.Planner, map[string]any{
			"query": state.OriginalQuery,
		})
		if err != nil {
			// 模板异常时跳过模型调用，直接使用退化计划
			state.AddError(fmt.Sprintf("%s: %v", consts.Plan, err))
			output = ""
		}
		return nil
	})
	return output, err
}

// router 解析研究计划，失败时使用退化计划
func router(ctx context.Context, input string, opts ...any) (output string, err error) {
	err = compose.ProcessState[*model.State](ctx, func(ctx context.Context, state *model.State) error {
		defer func() {
			output = state.Goto
		}()

		state.Goto = consts.Gather
		state.Plan = ParsePlan(input, state.OriginalQuery)
		slog.Debug("router debug, plan = %+v", state.Plan)
		return nil
	})
	return output, err
}

// planSchema 计划回复的结构约束
var planSchema = llm.ObjectSchema(map[string]*openapi3.Schema{
	"main_query":           openapi3.NewStringSchema(),
	"sub_queries":          llm.StringList(),
	"search_strategies":    llm.StringList(),
	"material_type":        llm.NullableString(),
	"defect_type":          llm.NullableString(),
	"parameters_mentioned": llm.StringList().WithNullable(),
}, "main_query", "sub_queries", "search_strategies")

// ParsePlan 解析模型回复为规范化的研究计划，回复不合法时返回退化计划
func ParsePlan(reply, query string) *model.Plan {
	r := llm.ParseReply(reply, planSchema, func() model.Plan { return *model.FallbackPlan(query) })
	if r.Fallback {
		slog.Error("ParsePlan failed, use fallback plan, err = %+v", r.Err)
		return &r.Value
	}

	plan := r.Value
	plan.Normalize()
	if strings.TrimSpace(plan.MainQuery) == "" {
		plan.MainQuery = query
	}
	plan.SubQueries = compact(plan.SubQueries)
	if len(plan.SubQueries) == 0 {
		plan.SubQueries = []string{query}
	}
	return &plan
}

// compact 去掉空白子查询
func compact(queries []string) []string {
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}
