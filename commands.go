package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/HildaM/logs/slog"
	"github.com/google/uuid"
	"github.com/hildam/printlab/biz/mcpserver"
	"github.com/hildam/printlab/biz/server"
	"github.com/hildam/printlab/entity/conf"
	"github.com/hildam/printlab/entity/consts"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Research a single question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		answer, err := a.controller.Run(ctx, strings.Join(args, " "), "")
		fmt.Println(answer)
		return err
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive console, one research session per question",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		return runConsole(ctx, a)
	},
}

// runConsole 读取终端输入，逐个问题流式输出研究进度
func runConsole(ctx context.Context, a *app) error {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("\nYour question (empty line to quit): ")
		line, err := reader.ReadString('\n')
		query := strings.TrimSpace(line)
		if query == "" || err != nil {
			return nil
		}

		for ev := range a.controller.RunStreaming(ctx, query, uuid.NewString()) {
			switch ev.Type {
			case consts.EventStart:
				fmt.Printf("-> %s\n", ev.Node)
			case consts.EventComplete:
				fmt.Printf("\n%s\n", ev.Response)
			case consts.EventError:
				fmt.Printf("\nresearch failed: %s\n", ev.Message)
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = conf.GetCfg().Server.Addr
		}
		slog.Info("serve info, listen on %s", addr)
		srv := server.New(addr, server.NewHandler(a.controller, a.store))
		srv.Spin()
		return nil
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the knowledge base as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		return mcpserver.ServeStdio(store)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address, overrides server.addr")
	rootCmd.AddCommand(askCmd, chatCmd, serveCmd, mcpCmd)
}
