package ollama

import (
	"context"

	einoOllama "github.com/cloudwego/eino-ext/components/model/ollama"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/provider/helper"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/spi"
)

const (
	Name = "ollama"

	defaultBaseURL = "http://127.0.0.1:11434"
)

// Plugin serves a local model; no key is needed.
func Plugin() spi.Plugin {
	return spi.Plugin{
		Name:         Name,
		DefaultModel: "qwen2.5",
		KeyOptional:  true,
		Factory:      build,
	}
}

func build(ctx context.Context, cfg *spi.ProviderConfig) (spi.CompletionProvider, error) {
	conf := &einoOllama.ChatModelConfig{
		BaseURL: defaultBaseURL,
		Model:   cfg.Model,
		Options: &einoOllama.Options{},
	}
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}
	if cfg.Temperature != nil {
		conf.Options.Temperature = *cfg.Temperature
	}
	chat, err := einoOllama.NewChatModel(ctx, conf)
	if err != nil {
		return nil, err
	}
	return helper.NewEinoProvider(Name, cfg.Model, chat), nil
}
