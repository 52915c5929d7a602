// Package spi is the completion-provider boundary seen by the conversation
// controller. Vendor types stay behind it.
package spi

import (
	"context"

	"github.com/cloudwego/eino/schema"

	toolschema "github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/schema"
)

// Request is one completion call: the system instruction, the transcript so
// far and the callable functions.
type Request struct {
	System    string
	Messages  []*schema.Message
	Functions []toolschema.FunctionSpec
}

// CompletionProvider generates the next assistant message, which carries
// either text or tool calls.
type CompletionProvider interface {
	Name() string
	Generate(ctx context.Context, req *Request) (*schema.Message, error)
}

// ProviderConfig is the resolved connection of one provider.
type ProviderConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature *float32
}

// PluginFactory builds a provider from its configuration.
type PluginFactory func(ctx context.Context, cfg *ProviderConfig) (CompletionProvider, error)

// Plugin describes one provider implementation.
type Plugin struct {
	Name string
	// DefaultModel is used when no model is configured.
	DefaultModel string
	// APIKeyEnv is the conventional environment variable of the key.
	APIKeyEnv string
	// KeyOptional marks providers that run without credentials.
	KeyOptional bool
	Factory     PluginFactory
}
