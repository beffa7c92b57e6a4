package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/HildaM/logs/slog"
	"github.com/cloudwego/eino/schema"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/hildam/printlab/entity/conf"
	"github.com/hildam/printlab/entity/consts"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// ErrToolNotFound 没有匹配的 MCP 工具
var ErrToolNotFound = errors.New("mcp tool not found")

// initTimeout MCP 服务初始化超时
const initTimeout = 30 * time.Second

// Manager MCP 客户端管理，按服务名持有客户端并缓存工具列表
type Manager struct {
	clients map[string]client.MCPClient // MCP服务端客户端

	mu    sync.Mutex
	tools []*MCPTool // 缓存的MCP工具
}

// NewManager 根据配置创建并初始化全部 MCP 客户端，任一失败则关闭已创建的客户端
func NewManager(ctx context.Context, servers map[string]conf.MCPServerConfig) (*Manager, error) {
	clients := make(map[string]client.MCPClient, len(servers))
	closeAll := func() {
		for _, c := range clients {
			_ = c.Close()
		}
	}

	for name, server := range servers {
		mcpClient, err := newClient(ctx, name, server)
		if err != nil {
			closeAll()
			slog.Error("NewManager failed, name = %+v, err = %+v", name, err)
			return nil, fmt.Errorf("failed to create MCP client for %s: %w", name, err)
		}

		if err := initialize(ctx, mcpClient); err != nil {
			_ = mcpClient.Close()
			closeAll()
			slog.Error("NewManager failed, initialize name = %+v, err = %+v", name, err)
			return nil, fmt.Errorf("failed to initialize MCP client for %s: %w", name, err)
		}
		clients[name] = mcpClient
	}
	return NewManagerWithClients(clients), nil
}

// NewManagerWithClients 使用已初始化的客户端创建管理器
func NewManagerWithClients(clients map[string]client.MCPClient) *Manager {
	return &Manager{clients: clients}
}

// newClient 根据配置选择 SSE 或 stdio 传输
func newClient(ctx context.Context, name string, server conf.MCPServerConfig) (client.MCPClient, error) {
	if server.URL != "" {
		slog.Debug("newClient debug, load mcp sse client = %+v, url = %+v", name, server.URL)

		var options []transport.ClientOption
		if len(server.Headers) > 0 {
			options = append(options, transport.WithHeaders(parseHeaders(server.Headers)))
		}
		cli, err := client.NewSSEMCPClient(server.URL, options...)
		if err != nil {
			return nil, err
		}
		if err := cli.Start(ctx); err != nil {
			_ = cli.Close()
			return nil, err
		}
		return cli, nil
	}

	env := make([]string, 0, len(server.Env))
	for k, v := range server.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	slog.Debug("newClient debug, load mcp stdio client = %+v, command = %+v, args = %+v", name, server.Command, server.Args)
	return client.NewStdioMCPClient(server.Command, env, server.Args...)
}

// parseHeaders 解析 "Key: Value" 格式的请求头
func parseHeaders(lines []string) map[string]string {
	headers := make(map[string]string, len(lines))
	for _, header := range lines {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return headers
}

// initialize 完成 MCP 握手
func initialize(ctx context.Context, cli client.MCPClient) error {
	ctx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()

	initRequest := mcpgo.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcpgo.Implementation{
		Name:    consts.AppName,
		Version: consts.Version,
	}
	initRequest.Params.Capabilities = mcpgo.ClientCapabilities{}

	_, err := cli.Initialize(ctx, initRequest)
	return err
}

// Tools 获取所有MCP工具，成功后缓存
func (m *Manager) Tools(ctx context.Context) ([]*MCPTool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tools != nil {
		return m.tools, nil
	}

	tools, err := m.loadTools(ctx)
	if err != nil {
		return nil, err
	}
	m.tools = tools
	return tools, nil
}

// loadTools 按服务名顺序加载工具，单个服务失败时跳过
func (m *Manager) loadTools(ctx context.Context) ([]*MCPTool, error) {
	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	sort.Strings(names)

	allTools := make([]*MCPTool, 0)
	for _, serverName := range names {
		mcpClient := m.clients[serverName]
		toolsResp, err := mcpClient.ListTools(ctx, mcpgo.ListToolsRequest{})
		if err != nil {
			slog.Error("loadTools failed, list tools from %s, err = %+v", serverName, err)
			continue
		}

		slog.Debug("loadTools debug, found %d tools from %s", len(toolsResp.Tools), serverName)
		for _, mcpTool := range toolsResp.Tools {
			allTools = append(allTools, &MCPTool{
				cli:         mcpClient,
				server:      serverName,
				toolName:    mcpTool.Name,
				toolDesc:    mcpTool.Description,
				inputSchema: mcpTool.InputSchema,
			})
		}
	}

	slog.Debug("loadTools debug, total tools loaded: %d", len(allTools))
	return allTools, nil
}

// FindTool 返回第一个名字以 suffix 结尾的工具
func (m *Manager) FindTool(ctx context.Context, suffix string) (*MCPTool, error) {
	tools, err := m.Tools(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tools {
		if strings.HasSuffix(t.toolName, suffix) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: suffix %q", ErrToolNotFound, suffix)
}

// Close 关闭所有客户端
func (m *Manager) Close() error {
	var errs []error
	for name, c := range m.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// convertMCPSchemaToEinoParams 将MCP的InputSchema转换为eino的ParamsOneOf
func convertMCPSchemaToEinoParams(inputSchema mcpgo.ToolInputSchema) (*schema.ParamsOneOf, error) {
	schemaBytes, err := json.Marshal(inputSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input schema: %w", err)
	}

	var schemaMap map[string]any
	if err := json.Unmarshal(schemaBytes, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal to map: %w", err)
	}

	// openapi3 要求每个节点都有 type，缺失时补齐
	if _, hasType := schemaMap["type"]; !hasType {
		if _, hasAnyOf := schemaMap["anyOf"]; !hasAnyOf {
			schemaMap["type"] = "object"
		}
	}
	if properties, ok := schemaMap["properties"].(map[string]any); ok {
		for _, propValue := range properties {
			propMap, ok := propValue.(map[string]any)
			if !ok {
				continue
			}
			if _, hasType := propMap["type"]; !hasType {
				if _, hasAnyOf := propMap["anyOf"]; !hasAnyOf {
					propMap["type"] = "string"
				}
			}
		}
	}

	fixedSchemaBytes, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fixed schema: %w", err)
	}

	var openAPISchema openapi3.Schema
	if err := json.Unmarshal(fixedSchemaBytes, &openAPISchema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal to OpenAPI schema: %w", err)
	}
	return schema.NewParamsOneOfByOpenAPIV3(&openAPISchema), nil
}
