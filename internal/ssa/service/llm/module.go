// Package llm builds the completion provider used by the conversation
// controller. A missing provider or key selects simulation mode, signalled
// by a nil provider.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/provider"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/provider/helper"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/spi"
	"github.com/kiosk404/sankhya-agent/pkg/logger"
)

const (
	ModuleName = "llm"

	DefaultProvider = "gemini"
	DefaultTimeout  = 60 * time.Second
)

// Config holds the completion provider settings. APIKey may be a "${ENV}"
// reference; when empty the provider's conventional variable is used.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature *float32
	Timeout     time.Duration

	// OutOfTreeRegistry adds provider plugins beyond the built-in ones.
	OutOfTreeRegistry *provider.Registry
}

type completedConfig struct {
	*Config
}

// Complete fills defaults. The provider name "none" disables completion.
func (c *Config) Complete() completedConfig {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return completedConfig{c}
}

// New returns the configured provider, or nil when no provider is
// configured or its key is missing.
func (c completedConfig) New(ctx context.Context) (spi.CompletionProvider, error) {
	if c.Provider == "" || c.Provider == "none" {
		logger.InfoX(ModuleName, "no completion provider configured, running in simulation mode")
		return nil, nil
	}

	registry := provider.NewInTreeRegistry()
	if c.OutOfTreeRegistry != nil {
		if err := registry.Merge(c.OutOfTreeRegistry); err != nil {
			return nil, fmt.Errorf("merge out-of-tree providers: %w", err)
		}
	}
	plugin, err := registry.Get(c.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %s)", err, strings.Join(registry.List(), ", "))
	}

	key := helper.ResolveEnvValue(c.APIKey)
	if c.APIKey == "" && plugin.APIKeyEnv != "" {
		key = helper.ResolveEnvValue("${" + plugin.APIKeyEnv + "}")
	}
	if key == "" && !plugin.KeyOptional {
		logger.WarnX(ModuleName, "provider %s has no API key, running in simulation mode", plugin.Name)
		return nil, nil
	}

	model := c.Model
	if model == "" {
		model = plugin.DefaultModel
	}
	p, err := plugin.Factory(ctx, &spi.ProviderConfig{
		Model:       model,
		APIKey:      key,
		BaseURL:     c.BaseURL,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("build provider %s: %w", plugin.Name, err)
	}
	logger.InfoX(ModuleName, "completion provider %s ready (model %s)", plugin.Name, model)
	return WithTimeout(p, c.Timeout), nil
}

// WithTimeout bounds every Generate call of p.
func WithTimeout(p spi.CompletionProvider, d time.Duration) spi.CompletionProvider {
	if d <= 0 {
		return p
	}
	return &timeoutProvider{CompletionProvider: p, timeout: d}
}

type timeoutProvider struct {
	spi.CompletionProvider
	timeout time.Duration
}

func (p *timeoutProvider) Generate(ctx context.Context, req *spi.Request) (*schema.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.CompletionProvider.Generate(ctx, req)
}
