package helper

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/entity"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/spi"
	toolschema "github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/schema"
)

// ResolveEnvValue expands a "${NAME}" reference from the environment. Any
// other value is returned unchanged.
func ResolveEnvValue(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		envKey := s[2 : len(s)-1]
		return os.Getenv(envKey)
	}
	return s
}

// EinoProvider adapts an eino tool-calling chat model to the provider SPI.
// Function specs are rendered with the eino generator on every call, so a
// reloaded registry is always reflected.
type EinoProvider struct {
	name  string
	model string
	chat  model.ToolCallingChatModel
	gen   toolschema.EinoGenerator
}

var _ spi.CompletionProvider = (*EinoProvider)(nil)

func NewEinoProvider(name, modelName string, chat model.ToolCallingChatModel) *EinoProvider {
	return &EinoProvider{name: name, model: modelName, chat: chat}
}

func (p *EinoProvider) Name() string { return p.name }

func (p *EinoProvider) Generate(ctx context.Context, req *spi.Request) (*schema.Message, error) {
	chat := p.chat
	if infos := p.gen.Generate(req.Functions); len(infos) > 0 {
		bound, err := p.chat.WithTools(infos)
		if err != nil {
			return nil, fmt.Errorf("bind tools: %w", err)
		}
		chat = bound
	}

	msgs := make([]*schema.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, schema.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		if m.Role != schema.System {
			msgs = append(msgs, m)
		}
	}

	out, err := chat.Generate(ctx, msgs)
	if err != nil {
		return nil, entity.NewProviderError(err, p.name, p.model)
	}
	return out, nil
}
