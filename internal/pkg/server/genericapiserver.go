package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kiosk404/sankhya-agent/internal/pkg/middleware"
	"github.com/kiosk404/sankhya-agent/pkg/logger"
	"github.com/kiosk404/sankhya-agent/pkg/version"
)

// GenericAPIServer is the gin HTTP server. Routes are added on Engine.
type GenericAPIServer struct {
	*gin.Engine

	address         string
	healthz         bool
	enableMetrics   bool
	enableProfiling bool
	middlewares     []string
	gatherer        prometheus.Gatherer
	shutdownTimeout time.Duration

	// HealthCheck, when set, decides /healthz.
	HealthCheck func(ctx context.Context) error

	server *http.Server
}

func (s *GenericAPIServer) init() error {
	s.Use(gin.Recovery())
	for _, name := range s.middlewares {
		mw, ok := middleware.Middlewares[name]
		if !ok {
			return fmt.Errorf("unknown middleware %q", name)
		}
		if name == "recovery" {
			continue
		}
		logger.Debug("install middleware: %s", name)
		s.Use(mw)
	}
	s.installAPIs()
	return nil
}

func (s *GenericAPIServer) installAPIs() {
	if s.healthz {
		s.GET("/healthz", func(c *gin.Context) {
			if s.HealthCheck != nil {
				if err := s.HealthCheck(c.Request.Context()); err != nil {
					c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
					return
				}
			}
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}
	if s.enableMetrics {
		s.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
	if s.enableProfiling {
		pprof.Register(s.Engine)
	}
	s.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Get())
	})
}

// Run serves until Close. A closed server returns nil.
func (s *GenericAPIServer) Run() error {
	s.server = &http.Server{
		Addr:              s.address,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("start to listening the incoming requests on http address: %s", s.address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("server on %s stopped", s.address)
	return nil
}

// Close stops accepting requests and waits for in-flight ones.
func (s *GenericAPIServer) Close() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		logger.Warn("shutdown http server failed: %v", err)
	}
}
