package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/hildam/printlab/entity/conf"
	"github.com/hildam/printlab/entity/consts"
	"github.com/hildam/printlab/entity/model"
	"github.com/hildam/printlab/repo/mcp"
)

// ErrProvider 检索服务调用失败
var ErrProvider = errors.New("search provider failed")

// Provider 检索服务，返回按服务端排序的文档
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) ([]model.Document, error)
}

// Providers 三路外部检索
type Providers struct {
	Web       Provider
	Paper     Provider
	Community Provider
}

// New 根据配置创建三路检索服务，mcp 后端需要传入已初始化的管理器
func New(cfg conf.SearchConfig, setting conf.SettingConfig, manager *mcp.Manager) (*Providers, error) {
	timeout := setting.CallTimeout()
	switch cfg.Backend {
	case "", "tavily":
		cli, err := newHTTPClient(timeout, nil)
		if err != nil {
			return nil, err
		}
		return &Providers{
			Web:       NewTavily(cli, cfg.Tavily, WebProfile(cfg.Tavily.WebMaxResults), timeout),
			Paper:     NewTavily(cli, cfg.Tavily, PaperProfile(cfg.Tavily.PaperMaxResults), timeout),
			Community: NewTavily(cli, cfg.Tavily, CommunityProfile(cfg.Tavily.CommunityMaxResults), timeout),
		}, nil
	case "mcp":
		if manager == nil {
			return nil, fmt.Errorf("mcp search backend requires mcp servers")
		}
		return &Providers{
			Web:       NewMCPSearch(manager, cfg.MCPToolSuffix, WebProfile(cfg.Tavily.WebMaxResults), timeout),
			Paper:     NewMCPSearch(manager, cfg.MCPToolSuffix, PaperProfile(cfg.Tavily.PaperMaxResults), timeout),
			Community: NewMCPSearch(manager, cfg.MCPToolSuffix, CommunityProfile(cfg.Tavily.CommunityMaxResults), timeout),
		}, nil
	}
	return nil, fmt.Errorf("unknown search backend %q", cfg.Backend)
}

// scoreOrDefault 服务端未给出分数时使用缺省相关度
func scoreOrDefault(score *float64) float64 {
	if score == nil {
		return consts.DefaultRelevance
	}
	return *score
}
