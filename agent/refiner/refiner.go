package refiner

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

// refinerImpl 改写者，根据缺失信息补充子查询
type refinerImpl struct {
	reasoner llm.Reasoner // 推理服务
}

// NewRefiner 创建实例
func NewRefiner(reasoner llm.Reasoner) *refinerImpl {
	return &refinerImpl{reasoner: reasoner}
}

// NewGraphNode 创建任务图
func (r *refinerImpl) NewGraphNode(ctx context.Context) (key string, node compose.AnyGraph, nameOption compose.GraphAddNodeOpt) {
	graph := compose.NewGraph[string, string]()

	_ = graph.AddLambdaNode("load", compose.InvokableLambdaWithOption(load))
	_ = graph.AddLambdaNode("agent", compose.InvokableLambdaWithOption(comm.NewReasonNode(r.reasoner, consts.Refine)))
	_ = graph.AddLambdaNode("router", compose.InvokableLambdaWithOption(router))

	_ = graph.AddEdge(compose.START, "load")
	_ = graph.AddEdge("load", "agent")
	_ = graph.AddEdge("agent", "router")
	_ = graph.AddEdge("router", compose.END)

	return consts.Refine, graph, compose.WithNodeName(consts.Refine)
}

// load 渲染改写提示词，没有计划时跳过
func load(ctx context.Context, input string, opts ...any) (output string, err error) {
	err = compose.ProcessState[*model.State](ctx, func(ctx context.Context, state *model.State) error {
		if state.Plan == nil {
			return nil
		}
		output, err = template.Render(ctx, template.Refiner, map[string]any{
			"query":        state.OriginalQuery,
			"missing_info": strings.Join(state.MissingInfo, ", "),
			"sub_queries":  strings.Join(state.Plan.SubQueries, "; "),
		})
		if err != nil {
			state.AddError(fmt.Sprintf("%s: %v", consts.Refine, err))
			output = ""
		}
		return nil
	})
	return output, err
}

// router 追加新的子查询，失败时计划保持不变，之后只重跑网页检索
func router(ctx context.Context, input string, opts ...any) (output string, err error) {
	err = compose.ProcessState[*model.State](ctx, func(ctx context.Context, state *model.State) error {
		defer func() {
			output = state.Goto
		}()

		state.Goto = consts.WebSearch
		state.Plan = Extend(state.Plan, input)
		return nil
	})
	return output, err
}

var refineSchema = llm.ObjectSchema(map[string]*openapi3.Schema{
	"new_queries": llm.StringList(),
}, "new_queries")

type refineReply struct {
	NewQueries []string `json:"new_queries"`
}

// Extend 返回追加了新子查询的计划副本，回复不合法时原样返回
func Extend(plan *model.Plan, reply string) *model.Plan {
	if plan == nil {
		return nil
	}
	r := llm.ParseReply(reply, refineSchema, func() refineReply { return refineReply{} })
	if r.Fallback {
		slog.Error("Extend failed, keep plan unchanged, err = %+v", r.Err)
		return plan
	}

	next := plan.Clone()
	for _, q := range r.Value.NewQueries {
		if q = strings.TrimSpace(q); q != "" {
			next.SubQueries = append(next.SubQueries, q)
		}
	}
	slog.Debug("Extend debug, sub queries = %v", next.SubQueries)
	return next
}
