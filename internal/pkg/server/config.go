// Package server provides the generic HTTP (gin) and gRPC servers the
// binaries build on: health, version, metrics and profiling endpoints,
// selectable middlewares and graceful stop.
package server

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Config is the HTTP server configuration.
type Config struct {
	Mode            string
	BindAddress     string
	BindPort        int
	Healthz         bool
	EnableMetrics   bool
	EnableProfiling bool
	Middlewares     []string

	// Gatherer is exposed on /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
	// ShutdownTimeout bounds the graceful stop of in-flight requests.
	ShutdownTimeout time.Duration
}

func NewConfig() *Config {
	return &Config{
		Mode:            gin.ReleaseMode,
		BindAddress:     "0.0.0.0",
		BindPort:        11789,
		Healthz:         true,
		EnableMetrics:   true,
		EnableProfiling: false,
		Middlewares:     []string{"requestid", "logger"},
		ShutdownTimeout: 10 * time.Second,
	}
}

type CompletedConfig struct {
	*Config
}

func (c *Config) Complete() CompletedConfig {
	if c.Gatherer == nil {
		c.Gatherer = prometheus.DefaultGatherer
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return CompletedConfig{c}
}

// Address is host:port of the HTTP listener.
func (c *Config) Address() string {
	return net.JoinHostPort(c.BindAddress, strconv.Itoa(c.BindPort))
}

// New builds the server with the generic endpoints installed.
func (c CompletedConfig) New() (*GenericAPIServer, error) {
	gin.SetMode(c.Mode)
	s := &GenericAPIServer{
		Engine:          gin.New(),
		address:         c.Address(),
		healthz:         c.Healthz,
		enableMetrics:   c.EnableMetrics,
		enableProfiling: c.EnableProfiling,
		middlewares:     c.Middlewares,
		gatherer:        c.Gatherer,
		shutdownTimeout: c.ShutdownTimeout,
	}
	if err := s.init(); err != nil {
		return nil, fmt.Errorf("init http server: %w", err)
	}
	return s, nil
}
