package options

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"github.com/kiosk404/sankhya-agent/internal/pkg/server"
)

// ServerRunOptions configure the HTTP listener.
type ServerRunOptions struct {
	Mode            string   `json:"mode"             mapstructure:"mode"`
	BindAddress     string   `json:"bind-address"     mapstructure:"bind-address"`
	BindPort        int      `json:"bind-port"        mapstructure:"bind-port"`
	Healthz         bool     `json:"healthz"          mapstructure:"healthz"`
	EnableMetrics   bool     `json:"enable-metrics"   mapstructure:"enable-metrics"`
	EnableProfiling bool     `json:"enable-profiling" mapstructure:"enable-profiling"`
	Middlewares     []string `json:"middlewares"      mapstructure:"middlewares"`
}

func NewServerRunOptions() *ServerRunOptions {
	defaults := server.NewConfig()
	return &ServerRunOptions{
		Mode:            defaults.Mode,
		BindAddress:     defaults.BindAddress,
		BindPort:        defaults.BindPort,
		Healthz:         defaults.Healthz,
		EnableMetrics:   defaults.EnableMetrics,
		EnableProfiling: defaults.EnableProfiling,
		Middlewares:     defaults.Middlewares,
	}
}

// ApplyTo copies the options into the server config.
func (s *ServerRunOptions) ApplyTo(c *server.Config) error {
	c.Mode = s.Mode
	c.BindAddress = s.BindAddress
	c.BindPort = s.BindPort
	c.Healthz = s.Healthz
	c.EnableMetrics = s.EnableMetrics
	c.EnableProfiling = s.EnableProfiling
	c.Middlewares = s.Middlewares
	return nil
}

func (s *ServerRunOptions) Validate() []error {
	var errs []error
	switch s.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		errs = append(errs, fmt.Errorf("server.mode %q must be one of debug, release, test", s.Mode))
	}
	if s.BindPort < 1 || s.BindPort > 65535 {
		errs = append(errs, fmt.Errorf("server.bind-port %v must be between 1 and 65535, inclusive", s.BindPort))
	}
	return errs
}

func (s *ServerRunOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&s.Mode, "server.mode", s.Mode, "Server mode: debug, test or release.")
	fs.StringVar(&s.BindAddress, "server.bind-address", s.BindAddress, "IP address of the HTTP listener.")
	fs.IntVar(&s.BindPort, "server.bind-port", s.BindPort, "Port of the HTTP listener.")
	fs.BoolVar(&s.Healthz, "server.healthz", s.Healthz, "Install /healthz.")
	fs.BoolVar(&s.EnableMetrics, "server.enable-metrics", s.EnableMetrics, "Install /metrics.")
	fs.BoolVar(&s.EnableProfiling, "server.enable-profiling", s.EnableProfiling, "Install /debug/pprof.")
	fs.StringSliceVar(&s.Middlewares, "server.middlewares", s.Middlewares, "Extra gin middlewares, comma separated: "+
		"recovery, logger, cors, requestid, nocache.")
}
