package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storyloom/internal/causality"
	"storyloom/internal/coherence"
	"storyloom/internal/config"
	"storyloom/internal/mcp"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		RunE:  runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig("storyloom.yaml")
	if err != nil {
		return err
	}

	kb, err := loadKnowledge(cfg.Knowledge.Path)
	if err != nil {
		return err
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	// Stdout carries the MCP transport; the production logger writes to
	// stderr.
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	manager := causality.NewManager(causalityConfig(cfg), logger)
	orchestrator := coherence.NewOrchestrator(coherenceConfig(cfg), kb, nil, logger)

	server := mcp.NewServer(manager, orchestrator, db, logger, version)
	return server.Run(ctx, &sdk.StdioTransport{})
}
