// Package agenttest 研究流程测试用的假依赖与单节点运行器
package agenttest

import (
	"context"
	"strings"
	"sync"

	"github.com/cloudwego/eino/compose"
	"github.com/hildam/printlab/entity/consts"
	"github.com/hildam/printlab/entity/model"
)

// Node 研究流程节点
type Node interface {
	NewGraphNode(ctx context.Context) (key string, node compose.AnyGraph, nameOption compose.GraphAddNodeOpt)
}

// RunNode 在只有一个节点的图中运行 node，state 作为图状态，返回节点输出
func RunNode(ctx context.Context, node Node, state *model.State) (string, error) {
	graph := compose.NewGraph[string, string](
		compose.WithGenLocalState(func(context.Context) *model.State { return state }),
	)
	key, sub, opt := node.NewGraphNode(ctx)
	if err := graph.AddGraphNode(key, sub, opt); err != nil {
		return "", err
	}
	if err := graph.AddEdge(compose.START, key); err != nil {
		return "", err
	}
	if err := graph.AddEdge(key, compose.END); err != nil {
		return "", err
	}
	runnable, err := graph.Compile(ctx)
	if err != nil {
		return "", err
	}
	return runnable.Invoke(ctx, state.OriginalQuery)
}

// StepOf 根据提示词内容判断所属步骤
func StepOf(prompt string) string {
	switch {
	case strings.Contains(prompt, "Question to analyze:"):
		return consts.Plan
	case strings.Contains(prompt, "research quality reviewer"):
		return consts.Evaluate
	case strings.Contains(prompt, "Rewrite the search queries"):
		return consts.Refine
	case strings.Contains(prompt, "Combine the collected information"):
		return consts.Synthesize
	}
	return ""
}

// Reasoner 按步骤返回预设回复，同一步骤多次调用依次取值，用完后重复最后一个
type Reasoner struct {
	mu      sync.Mutex
	Replies map[string][]string
	Errs    map[string]error
	calls   map[string]int
	prompts map[string][]string
}

// Complete 实现 llm.Reasoner
func (r *Reasoner) Complete(ctx context.Context, prompt string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = map[string]int{}
		r.prompts = map[string][]string{}
	}

	step := StepOf(prompt)
	n := r.calls[step]
	r.calls[step]++
	r.prompts[step] = append(r.prompts[step], prompt)

	if err := r.Errs[step]; err != nil {
		return "", err
	}
	replies := r.Replies[step]
	if len(replies) == 0 {
		return "", nil
	}
	if n >= len(replies) {
		n = len(replies) - 1
	}
	return replies[n], nil
}

// Calls 某个步骤的调用次数
func (r *Reasoner) Calls(step string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[step]
}

// Prompts 某个步骤收到的全部提示词
func (r *Reasoner) Prompts(step string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.prompts[step]...)
}

// Provider 按查询返回预设文档
type Provider struct {
	mu      sync.Mutex
	Docs    map[string][]model.Document // 按查询匹配
	Default []model.Document            // 未匹配时返回
	Err     error
	Errs    map[string]error // 按查询返回错误
	queries []string
}

// Search 实现 search.Provider
func (p *Provider) Search(ctx context.Context, query string, maxResults int) ([]model.Document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, query)
	if p.Err != nil {
		return nil, p.Err
	}
	if err := p.Errs[query]; err != nil {
		return nil, err
	}
	if docs, ok := p.Docs[query]; ok {
		return docs, nil
	}
	return p.Default, nil
}

// Queries 收到的全部查询
func (p *Provider) Queries() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.queries...)
}
