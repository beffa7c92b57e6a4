package synthesizer

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

const (
	evidenceLimit     = 15  // 参与综合的证据条数
	defaultConfidence = 0.5 // 推荐缺省置信度
)

// synthesizerImpl 综合者，把证据归纳为参数推荐
type synthesizerImpl struct {
	reasoner llm.Reasoner // 推理服务
	maxLimit int          // 单条证据最大字符数
}

// NewSynthesizer 创建实例，maxLimit<=0 时不截断证据
func NewSynthesizer(reasoner llm.Reasoner, maxLimit int) *synthesizerImpl {
	return &synthesizerImpl{reasoner: reasoner, maxLimit: maxLimit}
}

// NewGraphNode 创建任务图
func (s *synthesizerImpl) NewGraphNode(ctx context.Context) (key string, node compose.AnyGraph, nameOption compose.GraphAddNodeOpt) {
	graph := compose.NewGraph[string, string]()

	_ = graph.AddLambdaNode("load", compose.InvokableLambdaWithOption(s.load))
	_ = graph.AddLambdaNode("agent", compose.InvokableLambdaWithOption(comm.NewReasonNode(s.reasoner, consts.Synthesize)))
	_ = graph.AddLambdaNode("router", compose.InvokableLambdaWithOption(router))

	_ = graph.AddEdge(compose.START, "load")
	_ = graph.AddEdge("load", "agent")
	_ = graph.AddEdge("agent", "router")
	_ = graph.AddEdge("router", compose.END)

	return consts.Synthesize, graph, compose.WithNodeName(consts.Synthesize)
}

// load 按相关度挑选证据并渲染综合提示词
func (s *synthesizerImpl) load(ctx context.Context, input string, opts ...any) (output string, err error) {
	err = compose.ProcessState[*model.State](ctx, func(ctx context.Context, state *model.State) error {
		output, err = template.Render(ctx, template.Synthesizer, map[string]any{
			"query":    state.OriginalQuery,
			"evidence": FormatEvidence(state.Evidence.All(), s.maxLimit),
		})
		if err != nil {
			state.AddError(fmt.Sprintf("%s: %v", consts.Synthesize, err))
			output = ""
		}
		return nil
	})
	return output, err
}

// router 写入综合结论与推荐
func router(ctx context.Context, input string, opts ...any) (output string, err error) {
	err = compose.ProcessState[*model.State](ctx, func(ctx context.Context, state *model.State) error {
		defer func() {
			output = state.Goto
		}()

		state.Goto = consts.Validate
		state.SynthesizedKnowledge, state.Recommendations = Parse(input)
		slog.Debug("router debug, recommendations = %d", len(state.Recommendations))
		return nil
	})
	return output, err
}

// FormatEvidence 按相关度降序取前 15 条证据，拼成提示词片段
func FormatEvidence(items []model.Evidence, maxLimit int) string {
	sorted := model.SortByRelevance(items)
	if len(sorted) > evidenceLimit {
		sorted = sorted[:evidenceLimit]
	}
	parts := make([]string, 0, len(sorted))
	for _, ev := range sorted {
		parts = append(parts, fmt.Sprintf("[%s] (relevance: %.2f)\nURL: %s\n%s",
			ev.Source, ev.RelevanceScore, ev.URL, comm.ClipContent(ev.Content, maxLimit)))
	}
	return strings.Join(parts, "\n\n")
}

var synthesisSchema = llm.ObjectSchema(map[string]*openapi3.Schema{
	"synthesis": openapi3.NewStringSchema(),
	"recommendations": openapi3.NewArraySchema().WithItems(llm.ObjectSchema(map[string]*openapi3.Schema{
		"parameter":         openapi3.NewStringSchema(),
		"current_value":     llm.Scalar(),
		"recommended_value": llm.Scalar(),
		"confidence":        openapi3.NewFloat64Schema().WithNullable(),
		"sources":           llm.StringList().WithNullable(),
		"reasoning":         llm.NullableString(),
	}, "parameter", "recommended_value")),
	"conflicts":       llm.StringList().WithNullable(),
	"additional_tips": llm.StringList().WithNullable(),
}, "synthesis", "recommendations")

type recommendationReply struct {
	Parameter        string           `json:"parameter"`
	CurrentValue     model.FlexString `json:"current_value"`
	RecommendedValue model.FlexString `json:"recommended_value"`
	Confidence       *float64         `json:"confidence"`
	Sources          []string         `json:"sources"`
	Reasoning        string           `json:"reasoning"`
}

type synthesisReply struct {
	Synthesis       string                `json:"synthesis"`
	Recommendations []recommendationReply `json:"recommendations"`
}

// Parse 解析综合回复；回复不合法时把原文作为结论，不给推荐
func Parse(reply string) (string, []model.Recommendation) {
	r := llm.ParseReply(reply, synthesisSchema, func() synthesisReply { return synthesisReply{Synthesis: reply} })
	if r.Fallback {
		slog.Error("Parse failed, use raw reply as synthesis, err = %+v", r.Err)
		return r.Value.Synthesis, nil
	}

	recs := make([]model.Recommendation, 0, len(r.Value.Recommendations))
	for _, item := range r.Value.Recommendations {
		confidence := defaultConfidence
		if item.Confidence != nil {
			confidence = *item.Confidence
		}
		recs = append(recs, model.Recommendation{
			Parameter:        item.Parameter,
			CurrentValue:     item.CurrentValue,
			RecommendedValue: item.RecommendedValue,
			Confidence:       model.ClampConfidence(confidence),
			Sources:          item.Sources,
			Reasoning:        item.Reasoning,
		})
	}
	return r.Value.Synthesis, recs
}
