package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestManager 启动一个进程内 MCP 服务并返回管理器
func newTestManager(t *testing.T) *Manager {
	t.Helper()

	s := server.NewMCPServer("test", "0.0.1", server.WithToolCapabilities(true))
	s.AddTool(mcpgo.NewTool("fetch",
		mcpgo.WithDescription("fetch a page"),
		mcpgo.WithString("url", mcpgo.Required()),
	), func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		return mcpgo.NewToolResultText("page " + req.GetString("url", "")), nil
	})
	s.AddTool(mcpgo.NewTool("tavily_search",
		mcpgo.WithDescription("search the web"),
		mcpgo.WithString("query", mcpgo.Required()),
		mcpgo.WithNumber("max_results"),
	), func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		q := req.GetString("query", "")
		if q == "" {
			return mcpgo.NewToolResultError("'query' is required"), nil
		}
		return mcpgo.NewToolResultText("results for " + q), nil
	})

	cli, err := client.NewInProcessClient(s)
	require.NoError(t, err)
	require.NoError(t, cli.Start(context.Background()))
	require.NoError(t, initialize(context.Background(), cli))

	m := NewManagerWithClients(map[string]client.MCPClient{"local": cli})
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestManager_ToolsAndFind(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	tools, err := m.Tools(ctx)
	require.NoError(t, err)
	assert.Len(t, tools, 2)

	found, err := m.FindTool(ctx, "search")
	require.NoError(t, err)
	assert.Equal(t, "tavily_search", found.Name())
	assert.Equal(t, "local", found.Server())

	_, err = m.FindTool(ctx, "nothing")
	assert.True(t, errors.Is(err, ErrToolNotFound))
}

func TestMCPTool_Run(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	found, err := m.FindTool(ctx, "search")
	require.NoError(t, err)

	out, err := found.InvokableRun(ctx, `{"query":"petg stringing","max_results":3}`)
	require.NoError(t, err)
	assert.Equal(t, "results for petg stringing", out)

	_, err = found.Call(ctx, map[string]any{"query": ""})
	assert.Error(t, err)

	_, err = found.InvokableRun(ctx, `not json`)
	assert.Error(t, err)
}

func TestMCPTool_Info(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	found, err := m.FindTool(ctx, "search")
	require.NoError(t, err)

	info, err := found.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tavily_search", info.Name)
	assert.Equal(t, "search the web", info.Desc)
	require.NotNil(t, info.ParamsOneOf)

	sc, err := info.ParamsOneOf.ToOpenAPIV3()
	require.NoError(t, err)
	assert.Contains(t, sc.Properties, "query")
	assert.Contains(t, sc.Properties, "max_results")
	assert.Equal(t, []string{"query"}, sc.Required)
}

func TestParseHeaders(t *testing.T) {
	h := parseHeaders([]string{"Authorization: Bearer x", "bad", " X-Key :  v "})
	assert.Equal(t, map[string]string{"Authorization": "Bearer x", "X-Key": "v"}, h)
}
