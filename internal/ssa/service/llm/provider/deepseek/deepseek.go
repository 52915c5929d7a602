package deepseek

import (
	"context"

	einoDeepseek "github.com/cloudwego/eino-ext/components/model/deepseek"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/provider/helper"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/spi"
)

const (
	Name = "deepseek"

	defaultBaseURL = "https://api.deepseek.com/v1"
)

func Plugin() spi.Plugin {
	return spi.Plugin{
		Name:         Name,
		DefaultModel: "deepseek-chat",
		APIKeyEnv:    "DEEPSEEK_API_KEY",
		Factory:      build,
	}
}

func build(ctx context.Context, cfg *spi.ProviderConfig) (spi.CompletionProvider, error) {
	conf := &einoDeepseek.ChatModelConfig{
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		BaseURL:   defaultBaseURL,
		MaxTokens: cfg.MaxTokens,
	}
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}
	if cfg.Temperature != nil {
		conf.Temperature = *cfg.Temperature
	}
	chat, err := einoDeepseek.NewChatModel(ctx, conf)
	if err != nil {
		return nil, err
	}
	return helper.NewEinoProvider(Name, cfg.Model, chat), nil
}
