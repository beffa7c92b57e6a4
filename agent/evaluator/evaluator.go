package evaluator

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/HildaM/logs/slog"
	"github.com/cloudwego/eino/compose"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/hildam/printlab/agent/comm"
	"github.com/hildam/printlab/entity/conf"
	"github.com/hildam/printlab/entity/consts"
	"github.com/hildam/printlab/entity/model"
	"github.com/hildam/printlab/repo/llm"
	"github.com/hildam/printlab/repo/template"
)

const (
	summaryDocs      = 10  // 评估摘要使用的证据条数
	summaryChars     = 300 // 每条证据摘要长度
	noResults        = "no results"
	replyConfidence  = 0.5 // 回复缺少 confidence 时的缺省值
	fallbackPerDoc   = 0.1 // 降级时每条证据贡献的置信度
	fallbackMaxScore = 0.8 // 降级置信度上限
)

// evaluatorImpl 评估者，判断证据是否足够回答问题
type evaluatorImpl struct {
	reasoner llm.Reasoner // 推理服务
}

// NewEvaluator 创建实例
func NewEvaluator(reasoner llm.Reasoner) *evaluatorImpl {
	return &evaluatorImpl{reasoner: reasoner}
}

// NewGraphNode 创建任务图
func (e *evaluatorImpl) NewGraphNode(ctx context.Context) (key string, node compose.AnyGraph, nameOption compose.GraphAddNodeOpt) {
	graph := compose.NewGraph[string, string]()

	_ = graph.AddLambdaNode("load", compose.InvokableLambdaWithOption(load))
	_ = graph.AddLambdaNode("agent", compose.InvokableLambdaWithOption(comm.NewReasonNode(e.reasoner, consts.Evaluate)))
	_ = graph.AddLambdaNode("router", compose.InvokableLambdaWithOption(router))

	_ = graph.AddEdge(compose.START, "load")
	_ = graph.AddEdge("load", "agent")
	_ = graph.AddEdge("agent", "router")
	_ = graph.AddEdge("router", compose.END)

	return consts.Evaluate, graph, compose.WithNodeName(consts.Evaluate)
}

// load 没有证据时返回空提示词，跳过模型调用
func load(ctx context.Context, input string, opts ...any) (output string, err error) {
	err = compose.ProcessState[*model.State](ctx, func(ctx context.Context, state *model.State) error {
		all := state.Evidence.All()
		if len(all) == 0 {
			return nil
		}

		output, err = template.Render(ctx, template.Evaluator, map[string]any{
			"query":   state.OriginalQuery,
			"count":   len(all),
			"summary": Summary(all),
		})
		if err != nil {
			state.AddError(fmt.Sprintf("%s: %v", consts.Evaluate, err))
			output = ""
		}
		return nil
	})
	return output, err
}

// router 写入评估结论，迭代次数最后加一，再决定下一步
func router(ctx context.Context, input string, opts ...any) (output string, err error) {
	err = compose.ProcessState[*model.State](ctx, func(ctx context.Context, state *model.State) error {
		defer func() {
			output = state.Goto
		}()

		v := Judge(input, state.Evidence.Len(), state.SufficientDocCount)
		state.IsSufficient = v.IsSufficient
		state.ConfidenceScore = v.Confidence
		state.MissingInfo = v.Missing
		state.IterationCount++

		state.Goto = Decide(state)
		slog.Debug("router debug, iteration = %d, verdict = %+v, goto = %s", state.IterationCount, v, state.Goto)
		return nil
	})
	return output, err
}

// Verdict 评估结论
type Verdict struct {
	IsSufficient bool     `json:"is_sufficient"`
	Confidence   float64  `json:"confidence"`
	Missing      []string `json:"missing"`
}

// verdictReply 模型回复，confidence 缺省时取 0.5
type verdictReply struct {
	IsSufficient bool     `json:"is_sufficient"`
	Confidence   *float64 `json:"confidence"`
	Missing      []string `json:"missing"`
}

var verdictSchema = llm.ObjectSchema(map[string]*openapi3.Schema{
	"is_sufficient": openapi3.NewBoolSchema(),
	"confidence":    openapi3.NewFloat64Schema().WithNullable(),
	"missing":       llm.StringList().WithNullable(),
}, "is_sufficient")

// Judge 解析评估回复；没有证据时直接判定不充分，回复不合法时按证据条数降级
func Judge(reply string, count, sufficientDocCount int) Verdict {
	if count == 0 {
		return Verdict{IsSufficient: false, Confidence: 0, Missing: []string{noResults}}
	}

	r := llm.ParseReply(reply, verdictSchema, func() verdictReply {
		return fallbackReply(count, sufficientDocCount)
	})
	if r.Fallback {
		slog.Debug("Judge debug, use heuristic verdict, err = %+v", r.Err)
	}

	v := Verdict{
		IsSufficient: r.Value.IsSufficient,
		Confidence:   replyConfidence,
		Missing:      r.Value.Missing,
	}
	if r.Value.Confidence != nil {
		v.Confidence = *r.Value.Confidence
	}
	v.Confidence = model.ClampConfidence(v.Confidence)
	if v.Missing == nil {
		v.Missing = []string{}
	}
	return v
}

// fallbackReply 证据条数达到阈值即视为充分
func fallbackReply(count, sufficientDocCount int) verdictReply {
	if sufficientDocCount <= 0 {
		sufficientDocCount = conf.DefaultSufficientDocCount
	}
	confidence := math.Min(fallbackPerDoc*float64(count), fallbackMaxScore)
	return verdictReply{
		IsSufficient: count >= sufficientDocCount,
		Confidence:   &confidence,
		Missing:      []string{},
	}
}

// Decide 证据充分或达到迭代上限时进入综合，否则继续改写查询
func Decide(state *model.State) string {
	maxIterations := state.MaxIterations
	if maxIterations <= 0 {
		maxIterations = conf.DefaultMaxIterations
	}
	if state.IsSufficient || state.IterationCount >= maxIterations {
		return consts.Synthesize
	}
	return consts.Refine
}

// Summary 前 10 条证据的标题与内容开头
func Summary(items []model.Evidence) string {
	if len(items) > summaryDocs {
		items = items[:summaryDocs]
	}
	parts := make([]string, 0, len(items))
	for _, ev := range items {
		parts = append(parts, fmt.Sprintf("[%s] %s\n%s...", ev.Source, ev.Title, comm.Preview(ev.Content, summaryChars)))
	}
	return strings.Join(parts, "\n\n")
}
