package qwen

import (
	"context"

	"github.com/bytedance/gg/gptr"
	einoQwen "github.com/cloudwego/eino-ext/components/model/qwen"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/provider/helper"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/spi"
)

const (
	Name = "qwen"

	defaultBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
)

func Plugin() spi.Plugin {
	return spi.Plugin{
		Name:         Name,
		DefaultModel: "qwen-plus",
		APIKeyEnv:    "DASHSCOPE_API_KEY",
		Factory:      build,
	}
}

func build(ctx context.Context, cfg *spi.ProviderConfig) (spi.CompletionProvider, error) {
	conf := &einoQwen.ChatModelConfig{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		BaseURL:     defaultBaseURL,
		Temperature: gptr.Of(float32(0.7)),
	}
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}
	if cfg.Temperature != nil {
		conf.Temperature = cfg.Temperature
	}
	if cfg.MaxTokens != 0 {
		conf.MaxTokens = gptr.Of(cfg.MaxTokens)
	}
	chat, err := einoQwen.NewChatModel(ctx, conf)
	if err != nil {
		return nil, err
	}
	return helper.NewEinoProvider(Name, cfg.Model, chat), nil
}
