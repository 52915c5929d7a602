package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kiosk404/sankhya-agent/internal/ssa/handler/middleware"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/agent"
)

// AgentOptions tune the conversation controller.
type AgentOptions struct {
	MaxRounds   int           `json:"max-rounds"   mapstructure:"max-rounds"`
	ToolTimeout time.Duration `json:"tool-timeout" mapstructure:"tool-timeout"`
	// Model is the name reported in chat completion responses.
	Model string `json:"model" mapstructure:"model"`
}

func NewAgentOptions() *AgentOptions {
	return &AgentOptions{
		MaxRounds: agent.DefaultMaxRounds,
		Model:     "sankhya-agent",
	}
}

func (o *AgentOptions) Validate() []error {
	var errs []error
	if o.MaxRounds < 1 || o.MaxRounds > agent.DefaultMaxRounds {
		errs = append(errs, fmt.Errorf("agent.max-rounds must be between 1 and %d", agent.DefaultMaxRounds))
	}
	if o.ToolTimeout < 0 {
		errs = append(errs, fmt.Errorf("agent.tool-timeout must not be negative"))
	}
	return errs
}

func (o *AgentOptions) AddFlags(fs *pflag.FlagSet) {
	fs.IntVar(&o.MaxRounds, "agent.max-rounds", o.MaxRounds, "Provider calls allowed per turn.")
	fs.DurationVar(&o.ToolTimeout, "agent.tool-timeout", o.ToolTimeout, "Timeout of one tool call, 0 for none.")
	fs.StringVar(&o.Model, "agent.model", o.Model, "Model name reported by the chat API.")
}

// AuthOptions protect the HTTP API with a bearer token.
type AuthOptions struct {
	Enabled    bool   `json:"enabled"     mapstructure:"enabled"`
	Token      string `json:"-"           mapstructure:"token"`
	AllowLocal bool   `json:"allow-local" mapstructure:"allow-local"`
}

func NewAuthOptions() *AuthOptions {
	return &AuthOptions{Token: "${SSA_API_TOKEN}", AllowLocal: true}
}

func (o *AuthOptions) Validate() []error {
	if o.Enabled && o.Token == "" {
		return []error{fmt.Errorf("auth.token is required when auth is enabled")}
	}
	return nil
}

func (o *AuthOptions) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, "auth.enabled", o.Enabled, "Require a bearer token on the API.")
	fs.StringVar(&o.Token, "auth.token", o.Token, "Bearer token or ${ENV} reference.")
	fs.BoolVar(&o.AllowLocal, "auth.allow-local", o.AllowLocal, "Let loopback clients in without a token.")
}

func (o *AuthOptions) Config() *middleware.AuthConfig {
	return &middleware.AuthConfig{Enabled: o.Enabled, Token: o.Token, AllowLocal: o.AllowLocal}
}
