// Package mcpserver 以 MCP 工具的形式开放知识库
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/HildaM/logs/slog"
	"github.com/hildam/printlab/entity/consts"
	"github.com/hildam/printlab/repo/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// 工具名称
const (
	MaterialGuideTool      = "material_guide"
	DefectGuideTool        = "defect_guide"
	SimilarExperimentsTool = "similar_experiments"
)

// defaultExperimentLimit 相似实验缺省条数
const defaultExperimentLimit = 3

// Tools 知识库工具集合
type Tools struct {
	store *knowledge.Store
}

// New 创建 MCP 服务并注册知识库工具
func New(store *knowledge.Store) *server.MCPServer {
	s := server.NewMCPServer(consts.AppName, consts.Version, server.WithToolCapabilities(false))
	t := &Tools{store: store}
	s.AddTool(materialGuideDef(), t.MaterialGuide)
	s.AddTool(defectGuideDef(), t.DefectGuide)
	s.AddTool(similarExperimentsDef(), t.SimilarExperiments)
	return s
}

// ServeStdio 通过标准输入输出提供服务，阻塞直到输入结束
func ServeStdio(store *knowledge.Store) error {
	return server.ServeStdio(New(store))
}

func materialGuideDef() mcp.Tool {
	return mcp.NewTool(MaterialGuideTool,
		mcp.WithDescription("Recommended print settings and tips for a filament (PLA, ABS, PETG, TPU)."),
		mcp.WithString("material", mcp.Required(), mcp.Description("Filament name, case-insensitive")),
	)
}

func defectGuideDef() mcp.Tool {
	return mcp.NewTool(DefectGuideTool,
		mcp.WithDescription("Causes and prioritized fixes for a print defect such as stringing or warping."),
		mcp.WithString("defect", mcp.Required(), mcp.Description("Defect name, aliases like oozing or adhesion are accepted")),
	)
}

func similarExperimentsDef() mcp.Tool {
	return mcp.NewTool(SimilarExperimentsTool,
		mcp.WithDescription("Recorded print experiments that match a material and/or defect."),
		mcp.WithString("material", mcp.Description("Filament name")),
		mcp.WithString("defect", mcp.Description("Defect name")),
		mcp.WithNumber("limit", mcp.Description("Max results (default: 3)")),
	)
}

// MaterialGuide 材料指南
func (t *Tools) MaterialGuide(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	material := req.GetString("material", "")
	if material == "" {
		return mcp.NewToolResultError("'material' is required"), nil
	}
	guide, ok := t.store.MaterialGuide(material)
	if !ok {
		return mcp.NewToolResultText(fmt.Sprintf("No guide for material %q. Known materials: %v", material, t.store.Materials())), nil
	}
	return mcp.NewToolResultText(guide), nil
}

// DefectGuide 缺陷指南
func (t *Tools) DefectGuide(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	defect := req.GetString("defect", "")
	if defect == "" {
		return mcp.NewToolResultError("'defect' is required"), nil
	}
	guide, ok := t.store.DefectSolution(defect)
	if !ok {
		return mcp.NewToolResultText(fmt.Sprintf("No guide for defect %q. Known defects: %v", defect, t.store.Defects())), nil
	}
	return mcp.NewToolResultText(guide), nil
}

// SimilarExperiments 相似实验，结果为 JSON 数组
func (t *Tools) SimilarExperiments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	material := req.GetString("material", "")
	defect := req.GetString("defect", "")
	if material == "" && defect == "" {
		return mcp.NewToolResultError("'material' or 'defect' is required"), nil
	}
	limit := int(req.GetFloat("limit", defaultExperimentLimit))
	if limit <= 0 {
		limit = defaultExperimentLimit
	}

	found := t.store.SimilarExperiments(material, defect, limit)
	raw, err := json.Marshal(found)
	if err != nil {
		slog.Error("SimilarExperiments failed, marshal err = %+v", err)
		return mcp.NewToolResultError(fmt.Sprintf("encode experiments: %v", err)), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}
