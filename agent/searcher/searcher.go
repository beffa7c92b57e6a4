package searcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HildaM/logs/slog"
	"github.com/cloudwego/eino/compose"
	"github.com/hildam/printlab/entity/consts"
	"github.com/hildam/printlab/entity/model"
	"github.com/hildam/printlab/repo/knowledge"
	"github.com/hildam/printlab/repo/search"
	"golang.org/x/sync/errgroup"
)

const (
	webQueryLimit   = 3                  // 每轮网页检索的子查询上限
	experimentLimit = 3                  // 相似实验条数
	paperSuffix     = "FDM optimization" // 论文检索固定后缀
)

// Sources 检索依赖，Provider 为空时跳过对应检索
type Sources struct {
	Web       search.Provider
	Paper     search.Provider
	Community search.Provider
	Knowledge *knowledge.Store
}

// result 一路检索的结果
type result struct {
	items []model.Evidence
	errs  []string
}

// searchWeb 逐条发起网页检索，任一条失败则本轮网页结果作废
func searchWeb(ctx context.Context, provider search.Provider, queries []string) result {
	var r result
	if provider == nil {
		return r
	}
	for _, q := range queries {
		docs, err := provider.Search(ctx, q, 0)
		if err != nil {
			slog.Error("searchWeb failed, query = %s, err = %+v", q, err)
			return result{errs: []string{fmt.Sprintf("web search %q: %v", q, err)}}
		}
		r.items = append(r.items, toEvidence(consts.SourceWeb, docs)...)
	}
	return r
}

// searchPaper 用材料与缺陷拼出一条论文查询
func searchPaper(ctx context.Context, provider search.Provider, plan *model.Plan) result {
	var r result
	if provider == nil {
		return r
	}
	q := PaperQuery(plan)
	docs, err := provider.Search(ctx, q, 0)
	if err != nil {
		slog.Error("searchPaper failed, query = %s, err = %+v", q, err)
		r.errs = append(r.errs, fmt.Sprintf("paper search %q: %v", q, err))
		return r
	}
	r.items = toEvidence(consts.SourcePaper, docs)
	return r
}

// searchCommunity 用主查询检索社区帖子
func searchCommunity(ctx context.Context, provider search.Provider, plan *model.Plan) result {
	var r result
	if provider == nil {
		return r
	}
	docs, err := provider.Search(ctx, plan.MainQuery, 0)
	if err != nil {
		slog.Error("searchCommunity failed, query = %s, err = %+v", plan.MainQuery, err)
		r.errs = append(r.errs, fmt.Sprintf("community search %q: %v", plan.MainQuery, err))
		return r
	}
	r.items = toEvidence(consts.SourceCommunity, docs)
	return r
}

// PaperQuery 材料 + 缺陷 + 固定后缀
func PaperQuery(plan *model.Plan) string {
	parts := make([]string, 0, 3)
	if plan.MaterialType != "" {
		parts = append(parts, plan.MaterialType)
	}
	if plan.DefectType != "" {
		parts = append(parts, plan.DefectType)
	}
	parts = append(parts, paperSuffix)
	return strings.Join(parts, " ")
}

// LookupKnowledge 查询材料指南、缺陷指南与相似实验
func LookupKnowledge(store *knowledge.Store, plan *model.Plan) []model.Evidence {
	if store == nil || plan == nil {
		return nil
	}
	var items []model.Evidence

	if plan.MaterialType != "" {
		if text, ok := store.MaterialGuide(plan.MaterialType); ok {
			items = append(items, internalEvidence(consts.MaterialGuideURL,
				plan.MaterialType+" guide", text, consts.GuideRelevance))
		}
	}
	if plan.DefectType != "" {
		if text, ok := store.DefectSolution(plan.DefectType); ok {
			items = append(items, internalEvidence(consts.DefectGuideURL,
				plan.DefectType+" troubleshooting guide", text, consts.GuideRelevance))
		}
	}

	for _, exp := range store.SimilarExperiments(plan.MaterialType, plan.DefectType, experimentLimit) {
		content, err := json.Marshal(exp)
		if err != nil {
			slog.Error("LookupKnowledge failed, marshal experiment %s, err = %+v", exp.ExperimentID, err)
			continue
		}
		items = append(items, internalEvidence(consts.ExperimentURLPrefix+exp.ExperimentID,
			"Experiment: "+exp.ExperimentID, string(content), consts.ExperimentRelevance))
	}
	return items
}

func internalEvidence(url, title, content string, score float64) model.Evidence {
	return model.Document{Title: title, URL: url, Content: content, Score: score}.ToEvidence(consts.SourceKB)
}

func toEvidence(source string, docs []model.Document) []model.Evidence {
	out := make([]model.Evidence, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ToEvidence(source))
	}
	return out
}

// gatherImpl 首轮检索：知识库先查，外部三路并发，完成后按固定顺序合并
type gatherImpl struct {
	src Sources
}

// NewGather 创建实例
func NewGather(src Sources) *gatherImpl {
	return &gatherImpl{src: src}
}

// NewGraphNode 创建任务图
func (g *gatherImpl) NewGraphNode(ctx context.Context) (key string, node compose.AnyGraph, nameOption compose.GraphAddNodeOpt) {
	graph := compose.NewGraph[string, string]()
	_ = graph.AddLambdaNode("search", compose.InvokableLambdaWithOption(g.search))
	_ = graph.AddEdge(compose.START, "search")
	_ = graph.AddEdge("search", compose.END)
	return consts.Gather, graph, compose.WithNodeName(consts.Gather)
}

func (g *gatherImpl) search(ctx context.Context, input string, opts ...any) (output string, err error) {
	plan, queries := snapshot(ctx)
	if plan == nil {
		return finish(ctx, nil, []string{"gather: no research plan"}, nil)
	}

	kb := result{items: LookupKnowledge(g.src.Knowledge, plan)}

	var web, paper, community result
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		web = searchWeb(egCtx, g.src.Web, queries)
		return nil
	})
	if plan.HasStrategy(consts.SourcePaper) {
		eg.Go(func() error {
			paper = searchPaper(egCtx, g.src.Paper, plan)
			return nil
		})
	}
	if plan.HasStrategy(consts.SourceCommunity) {
		eg.Go(func() error {
			community = searchCommunity(egCtx, g.src.Community, plan)
			return nil
		})
	}
	_ = eg.Wait()

	return finish(ctx, nil, map[string]result{
		consts.SourceWeb:       web,
		consts.SourceKB:        kb,
		consts.SourcePaper:     paper,
		consts.SourceCommunity: community,
	})
}

// webSearchImpl refine 之后的检索，只重跑网页检索
type webSearchImpl struct {
	src Sources
}

// NewWebSearch 创建实例
func NewWebSearch(src Sources) *webSearchImpl {
	return &webSearchImpl{src: src}
}

// NewGraphNode 创建任务图
func (w *webSearchImpl) NewGraphNode(ctx context.Context) (key string, node compose.AnyGraph, nameOption compose.GraphAddNodeOpt) {
	graph := compose.NewGraph[string, string]()
	_ = graph.AddLambdaNode("search", compose.InvokableLambdaWithOption(w.search))
	_ = graph.AddEdge(compose.START, "search")
	_ = graph.AddEdge("search", compose.END)
	return consts.WebSearch, graph, compose.WithNodeName(consts.WebSearch)
}

func (w *webSearchImpl) search(ctx context.Context, input string, opts ...any) (output string, err error) {
	plan, queries := snapshot(ctx)
	if plan == nil {
		return finish(ctx, nil, []string{"web_search: no research plan"}, nil)
	}
	web := searchWeb(ctx, w.src.Web, queries)
	return finish(ctx, nil, map[string]result{consts.SourceWeb: web})
}

// snapshot 读取计划副本和本轮网页检索的子查询
func snapshot(ctx context.Context) (plan *model.Plan, queries []string) {
	_ = compose.ProcessState[*model.State](ctx, func(_ context.Context, state *model.State) error {
		plan = state.Plan.Clone()
		queries = plan.WebQueries(webQueryLimit)
		return nil
	})
	return plan, queries
}

// finish 按 web、kb、paper、community 的顺序合并结果并转到评估
func finish(ctx context.Context, errs []string, results map[string]result) (output string, err error) {
	err = compose.ProcessState[*model.State](ctx, func(_ context.Context, state *model.State) error {
		defer func() {
			output = state.Goto
		}()

		state.Goto = consts.Evaluate
		for _, msg := range errs {
			state.AddError(msg)
		}
		for _, source := range []string{consts.SourceWeb, consts.SourceKB, consts.SourcePaper, consts.SourceCommunity} {
			r, ok := results[source]
			if !ok {
				continue
			}
			added := state.Evidence.Merge(source, r.items)
			for _, msg := range r.errs {
				state.AddError(msg)
			}
			slog.Debug("finish debug, source = %s, fetched = %d, added = %d", source, len(r.items), added)
		}
		return nil
	})
	return output, err
}
