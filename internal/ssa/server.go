package ssa

import (
	"context"
	"log"

	"github.com/kiosk404/sankhya-agent/internal/ssa/config"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/metrics"
	genericapiserver "github.com/kiosk404/sankhya-agent/internal/pkg/server"
	"github.com/kiosk404/sankhya-agent/pkg/http/shutdown"
	"github.com/kiosk404/sankhya-agent/pkg/http/shutdown/posixsignal"
	"github.com/kiosk404/sankhya-agent/pkg/logger"
)

type apiServer struct {
	gs               *shutdown.GracefulShutdown
	gRPCAPIServer    *genericapiserver.GRPCAPIServer
	genericAPIServer *genericapiserver.GenericAPIServer

	cfg      *config.Config
	services *services
}

type preparedAPIServer struct {
	*apiServer
}

func createAPIServer(cfg *config.Config) (*apiServer, error) {
	gs := shutdown.New()
	gs.AddShutdownManager(posixsignal.NewPosixSignalManager())

	genericConfig, err := buildGenericConfig(cfg)
	if err != nil {
		return nil, err
	}
	genericServer, err := genericConfig.Complete().New()
	if err != nil {
		return nil, err
	}

	var grpcServer *genericapiserver.GRPCAPIServer
	if cfg.GRPCOptions.BindPort > 0 {
		grpcServer = genericapiserver.NewGRPCAPIServer(cfg.GRPCOptions.Addr(), cfg.GRPCOptions.MaxMsgSize)
	}

	svc, err := newServices(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	genericServer.HealthCheck = func(context.Context) error { return nil }

	return &apiServer{
		gs:               gs,
		genericAPIServer: genericServer,
		gRPCAPIServer:    grpcServer,
		cfg:              cfg,
		services:         svc,
	}, nil
}

func (s *apiServer) PrepareRun() preparedAPIServer {
	initRouter(s.genericAPIServer.Engine, &routerDeps{
		controller: s.services.controller,
		registry:   s.services.registry,
		rules:      s.services.rules,
		authConfig: s.cfg.AuthOptions.Config(),
		model:      s.cfg.AgentOptions.Model,
	})

	s.gs.AddShutdownCallback(shutdown.Func(func(string) error {
		if s.gRPCAPIServer != nil {
			s.gRPCAPIServer.Stop()
		}
		s.genericAPIServer.Close()
		if err := s.services.Close(); err != nil {
			logger.Warn("[SSA] close services: %v", err)
		}
		logger.FlushLog()
		return nil
	}))
	return preparedAPIServer{s}
}

func (s preparedAPIServer) Run() error {
	if s.gRPCAPIServer != nil {
		go s.gRPCAPIServer.Run()
	}

	// start shutdown managers
	if err := s.gs.Start(); err != nil {
		log.Fatalf("start shutdown manager failed: %s", err.Error())
	}

	return s.genericAPIServer.Run()
}

func buildGenericConfig(cfg *config.Config) (*genericapiserver.Config, error) {
	genericConfig := genericapiserver.NewConfig()
	if err := cfg.GenericServerRunOptions.ApplyTo(genericConfig); err != nil {
		return nil, err
	}
	genericConfig.Gatherer = metrics.Registry
	return genericConfig, nil
}
