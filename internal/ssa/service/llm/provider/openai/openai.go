package openai

import (
	"context"

	"github.com/bytedance/gg/gptr"
	einoOpenAI "github.com/cloudwego/eino-ext/components/model/openai"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/provider/helper"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/spi"
)

const Name = "openai"

func Plugin() spi.Plugin {
	return spi.Plugin{
		Name:         Name,
		DefaultModel: "gpt-4o-mini",
		APIKeyEnv:    "OPENAI_API_KEY",
		Factory:      build,
	}
}

func build(ctx context.Context, cfg *spi.ProviderConfig) (spi.CompletionProvider, error) {
	conf := &einoOpenAI.ChatModelConfig{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		Temperature: cfg.Temperature,
	}
	if cfg.MaxTokens != 0 {
		conf.MaxTokens = gptr.Of(cfg.MaxTokens)
	}
	chat, err := einoOpenAI.NewChatModel(ctx, conf)
	if err != nil {
		return nil, err
	}
	return helper.NewEinoProvider(Name, cfg.Model, chat), nil
}
