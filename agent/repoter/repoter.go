package repoter

import (
	"context"
	"fmt"
	"strings"

	"github.com/HildaM/logs/slog"
	"github.com/cloudwego/eino/compose"
	"github.com/hildam/printlab/entity/consts"
	"github.com/hildam/printlab/entity/model"
	"github.com/hildam/printlab/repo/template"
)

const (
	maxSources    = 8 // 引用来源上限
	maxDetails    = 5 // 详细说明条数
	noSynthesis   = "Analysis in progress..."
	noRecommend   = "Unable to generate recommendations."
	noDetails     = "No detailed explanation available."
	noSources     = "No sources."
	staticTips    = "- Dry the filament before printing\n- Check bed leveling"
	tableHeader   = "| Parameter | Current | Recommended | Confidence |\n|-----------|---------|-------------|------------|\n"
	missingRecVal = "N/A"
)

// repoterImpl 报告者，把研究结果整理为最终回答
type repoterImpl struct{}

// NewRepoter 创建实例
func NewRepoter() *repoterImpl {
	return &repoterImpl{}
}

// NewGraphNode 创建任务图
func (r *repoterImpl) NewGraphNode(ctx context.Context) (key string, node compose.AnyGraph, nameOption compose.GraphAddNodeOpt) {
	graph := compose.NewGraph[string, string]()

	// 添加节点
	_ = graph.AddLambdaNode("load", compose.InvokableLambdaWithOption(load))
	_ = graph.AddLambdaNode("router", compose.InvokableLambdaWithOption(router))

	// 构造关联
	_ = graph.AddEdge(compose.START, "load")
	_ = graph.AddEdge("load", "router")
	_ = graph.AddEdge("router", compose.END)

	return consts.Output, graph, compose.WithNodeName(consts.Output)
}

// load 渲染最终回答，模板异常时退化为纯文本拼接
func load(ctx context.Context, input string, opts ...any) (output string, err error) {
	err = compose.ProcessState[*model.State](ctx, func(ctx context.Context, state *model.State) error {
		sources := Sources(state.Evidence.All())
		state.SourcesCited = sources

		vars := Variables(state, sources)
		output, err = template.Render(ctx, template.FinalResponse, vars)
		if err != nil {
			slog.Error("load failed, Render err = %+v", err)
			state.AddError(fmt.Sprintf("%s: %v", consts.Output, err))
			output = fmt.Sprintf("%v\n\n%v", vars["synthesis"], vars["table"])
		}
		return nil
	})
	return output, err
}

// router 写入最终回答并结束流程
func router(ctx context.Context, input string, opts ...any) (output string, err error) {
	err = compose.ProcessState[*model.State](ctx, func(_ context.Context, state *model.State) error {
		defer func() {
			output = state.Goto
		}()

		slog.Debug("router debug, final response length = %d", len(input))
		state.FinalResponse = input
		state.Goto = compose.END
		return nil
	})
	return output, err
}

// Sources 按出现顺序收集外部来源 URL，去重后最多 8 个
func Sources(items []model.Evidence) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, maxSources)
	for _, ev := range items {
		if len(out) >= maxSources {
			break
		}
		if ev.URL == "" || strings.HasPrefix(ev.URL, consts.InternalScheme) {
			continue
		}
		if _, ok := seen[ev.URL]; ok {
			continue
		}
		seen[ev.URL] = struct{}{}
		out = append(out, ev.URL)
	}
	return out
}

// Table 推荐参数的 markdown 表格
func Table(recs []model.Recommendation) string {
	if len(recs) == 0 {
		return noRecommend
	}
	var b strings.Builder
	b.WriteString(tableHeader)
	for _, rec := range recs {
		current := rec.CurrentValue.String()
		if current == "" {
			current = missingRecVal
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", rec.Parameter, current, rec.RecommendedValue, Percent(rec.Confidence))
	}
	return b.String()
}

// Details 前 5 条推荐的理由
func Details(recs []model.Recommendation) string {
	if len(recs) > maxDetails {
		recs = recs[:maxDetails]
	}
	parts := make([]string, 0, len(recs))
	for _, rec := range recs {
		parts = append(parts, fmt.Sprintf("**%s**: %s", rec.Parameter, rec.Reasoning))
	}
	if len(parts) == 0 {
		return noDetails
	}
	return strings.Join(parts, "\n\n")
}

// Citations 编号引用列表
func Citations(sources []string) string {
	if len(sources) == 0 {
		return noSources
	}
	lines := make([]string, 0, len(sources))
	for i, url := range sources {
		lines = append(lines, fmt.Sprintf("[%d] %s", i+1, url))
	}
	return strings.Join(lines, "\n")
}

// Percent 置信度转为百分比文本
func Percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

// Variables 最终回答模板变量
func Variables(state *model.State, sources []string) map[string]any {
	synthesis := state.SynthesizedKnowledge
	if strings.TrimSpace(synthesis) == "" {
		synthesis = noSynthesis
	}
	return map[string]any{
		"synthesis":   synthesis,
		"confidence":  Percent(state.ConfidenceScore),
		"table":       Table(state.Recommendations),
		"details":     Details(state.Recommendations),
		"tips":        staticTips,
		"sources":     Citations(sources),
		"num_sources": state.Evidence.Len(),
		"iterations":  state.IterationCount,
	}
}
