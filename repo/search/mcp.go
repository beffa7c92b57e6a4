package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/HildaM/logs/slog"
	"github.com/hildam/printlab/entity/model"
	"github.com/hildam/printlab/repo/llm"
	"github.com/hildam/printlab/repo/mcp"
)

// MCPSearch 通过 MCP 检索工具完成检索
type MCPSearch struct {
	manager *mcp.Manager
	suffix  string
	profile Profile
	timeout time.Duration
}

// NewMCPSearch 创建实例，suffix 用于匹配工具名
func NewMCPSearch(manager *mcp.Manager, suffix string, profile Profile, timeout time.Duration) *MCPSearch {
	return &MCPSearch{manager: manager, suffix: suffix, profile: profile, timeout: timeout}
}

// Search 调用第一个匹配的 MCP 工具
func (m *MCPSearch) Search(ctx context.Context, query string, maxResults int) ([]model.Document, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	tool, err := m.manager.FindTool(ctx, m.suffix)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProvider, m.profile.Name, err)
	}

	params, err := toolParams(ctx, tool)
	if err != nil {
		slog.Error("Search failed, mcp tool = %s, err = %+v", tool.Name(), err)
		return nil, fmt.Errorf("%w: %s: %v", ErrProvider, m.profile.Name, err)
	}

	q := m.profile.Query(query)
	args := map[string]any{"query": q}
	if params["max_results"] {
		args["max_results"] = m.profile.limit(maxResults)
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProvider, m.profile.Name, err)
	}
	text, err := tool.InvokableRun(ctx, string(raw))
	if err != nil {
		slog.Error("Search failed, mcp tool = %s, query = %s, err = %+v", tool.Name(), q, err)
		return nil, fmt.Errorf("%w: %s: %v", ErrProvider, m.profile.Name, err)
	}

	docs := parseToolResult(text)
	if docs == nil {
		// 非结构化结果整体作为一条文档
		docs = []model.Document{{
			Title:   fmt.Sprintf("%s: %s", tool.Name(), q),
			URL:     fmt.Sprintf("mcp://%s/%s?query=%s", tool.Server(), tool.Name(), url.QueryEscape(q)),
			Content: strings.TrimSpace(text),
			Score:   scoreOrDefault(nil),
		}}
	}
	return docs, nil
}

// toolParams 读取工具入参名，不接受 query 的工具不能用于检索
func toolParams(ctx context.Context, tool *mcp.MCPTool) (map[string]bool, error) {
	info, err := tool.Info(ctx)
	if err != nil {
		return nil, err
	}
	if info.ParamsOneOf == nil {
		return nil, fmt.Errorf("tool %s has no input schema", tool.Name())
	}
	sc, err := info.ParamsOneOf.ToOpenAPIV3()
	if err != nil {
		return nil, err
	}
	params := make(map[string]bool, len(sc.Properties))
	for name := range sc.Properties {
		params[name] = true
	}
	if !params["query"] {
		return nil, fmt.Errorf("tool %s does not accept a query", tool.Name())
	}
	return params, nil
}

// parseToolResult 解析 {"results": [...]} 格式的工具输出，不是该格式时返回 nil
func parseToolResult(text string) []model.Document {
	var out tavilyResponse
	if err := json.Unmarshal([]byte(llm.ExtractJSON(text)), &out); err != nil || out.Results == nil {
		return nil
	}
	docs := make([]model.Document, 0, len(out.Results))
	for _, r := range out.Results {
		docs = append(docs, model.Document{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   scoreOrDefault(r.Score),
		})
	}
	return docs
}
