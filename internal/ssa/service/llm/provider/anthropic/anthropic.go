package anthropic

import (
	"context"

	einoClaude "github.com/cloudwego/eino-ext/components/model/claude"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/provider/helper"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/spi"
)

const Name = "anthropic"

// defaultMaxTokens is required by the messages API.
const defaultMaxTokens = 4096

func Plugin() spi.Plugin {
	return spi.Plugin{
		Name:         Name,
		DefaultModel: "claude-sonnet-4-5",
		APIKeyEnv:    "ANTHROPIC_API_KEY",
		Factory:      build,
	}
}

func build(ctx context.Context, cfg *spi.ProviderConfig) (spi.CompletionProvider, error) {
	conf := &einoClaude.Config{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   defaultMaxTokens,
		Temperature: cfg.Temperature,
	}
	if cfg.MaxTokens != 0 {
		conf.MaxTokens = cfg.MaxTokens
	}
	if cfg.BaseURL != "" {
		conf.BaseURL = &cfg.BaseURL
	}
	chat, err := einoClaude.NewChatModel(ctx, conf)
	if err != nil {
		return nil, err
	}
	return helper.NewEinoProvider(Name, cfg.Model, chat), nil
}
