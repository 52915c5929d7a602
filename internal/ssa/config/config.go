// Package config is the running configuration of the ssa server.
package config

import (
	"github.com/kiosk404/sankhya-agent/internal/ssa/options"
)

// Config is the running configuration structure of the ssa service.
type Config struct {
	*options.Options
}

// CreateConfigFromOptions creates a running configuration from the parsed
// options.
func CreateConfigFromOptions(opts *options.Options) (*Config, error) {
	return &Config{opts}, nil
}
