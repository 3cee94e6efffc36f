package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"storyloom/internal/causality"
	"storyloom/internal/coherence"
	"storyloom/internal/store"
)

// Server exposes the causality manager and coherence orchestrator as MCP
// tools over stdio. db is an optional persistence sink; with a nil db the
// server runs purely in memory.
type Server struct {
	causality *causality.Manager
	coherence *coherence.Orchestrator
	db        store.Store
	logger    *zap.Logger
	mcp       *sdk.Server
}

func NewServer(manager *causality.Manager, orchestrator *coherence.Orchestrator, db store.Store, logger *zap.Logger, version string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		causality: manager,
		coherence: orchestrator,
		db:        db,
		logger:    logger,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "storyloom",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
