package main

import (
	"context"
	"fmt"
	"os"

	"github.com/HildaM/logs/slog"
	"github.com/hildam/printlab/agent"
	"github.com/hildam/printlab/agent/searcher"
	"github.com/hildam/printlab/entity/conf"
	"github.com/hildam/printlab/entity/consts"
	"github.com/hildam/printlab/repo/checkpoint"
	"github.com/hildam/printlab/repo/knowledge"
	"github.com/hildam/printlab/repo/llm"
	"github.com/hildam/printlab/repo/mcp"
	"github.com/hildam/printlab/repo/search"
	"github.com/spf13/cobra"
)

// rootCmd 命令行入口
var rootCmd = &cobra.Command{
	Use:     consts.AppName,
	Short:   "Research agent for 3D printing parameters",
	Version: consts.Version,
	Long: `printlab plans a research strategy for a 3D printing question, gathers
evidence from the web, papers, communities and a local knowledge base, and
recommends range-checked print parameters with cited sources.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		return conf.Init(path)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "config.yaml", "config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app 进程级依赖
type app struct {
	store      *knowledge.Store
	manager    *mcp.Manager
	controller *agent.Controller
}

// Close 释放外部连接
func (a *app) Close() {
	if a.manager != nil {
		if err := a.manager.Close(); err != nil {
			slog.Error("Close failed, close mcp manager err = %+v", err)
		}
	}
}

// openStore 打开实验记录
func openStore() (*knowledge.Store, error) {
	store, err := knowledge.Open(conf.GetCfg().Knowledge.ExperimentsPath)
	if err != nil {
		slog.Error("openStore failed, err = %+v", err)
		return nil, err
	}
	return store, nil
}

// bootstrap 按配置组装研究控制器
func bootstrap(ctx context.Context) (*app, error) {
	cfg := conf.GetCfg()
	a := &app{}

	store, err := openStore()
	if err != nil {
		return nil, err
	}
	a.store = store

	reasoner, err := llm.New(ctx, cfg.Model, cfg.Setting.CallTimeout())
	if err != nil {
		slog.Error("bootstrap failed, llm.New err = %+v", err)
		return nil, err
	}

	if len(cfg.MCP.Servers) > 0 {
		a.manager, err = mcp.NewManager(ctx, cfg.MCP.Servers)
		if err != nil {
			slog.Error("bootstrap failed, mcp.NewManager err = %+v", err)
			return nil, err
		}
	}

	providers, err := search.New(cfg.Search, cfg.Setting, a.manager)
	if err != nil {
		a.Close()
		slog.Error("bootstrap failed, search.New err = %+v", err)
		return nil, err
	}

	cp, err := checkpoint.NewCheckPoint(cfg.Setting.CheckpointCapacity)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.controller, err = agent.NewController(ctx, agent.Deps{
		Reasoner: reasoner,
		Sources: searcher.Sources{
			Web:       providers.Web,
			Paper:     providers.Paper,
			Community: providers.Community,
			Knowledge: store,
		},
		Setting:    cfg.Setting,
		CheckPoint: cp,
	})
	if err != nil {
		a.Close()
		slog.Error("bootstrap failed, NewController err = %+v", err)
		return nil, err
	}
	return a, nil
}
