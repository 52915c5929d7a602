package ssa

import (
	"context"

	"github.com/kiosk404/sankhya-agent/internal/ssa/config"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/mcp"
	"github.com/kiosk404/sankhya-agent/pkg/logger"
)

// Run starts the HTTP and gRPC servers and blocks until shutdown.
func Run(cfg *config.Config) error {
	server, err := createAPIServer(cfg)
	if err != nil {
		return err
	}

	return server.PrepareRun().Run()
}

// RunMCP serves the tool registry over stdio until the client disconnects.
func RunMCP(cfg *config.Config) error {
	ctx := context.Background()
	svc, err := newServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("[SSA] close services: %v", err)
		}
		logger.FlushLog()
	}()

	return mcp.NewServer(svc.registry).ServeStdio(ctx)
}
