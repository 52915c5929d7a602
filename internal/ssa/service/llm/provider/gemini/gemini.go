// Package gemini talks to the Gemini API through the native genai SDK, so
// function declarations keep the Gemini schema dialect.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/entity"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/spi"
	toolschema "github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/schema"
	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
)

const Name = "gemini"

func Plugin() spi.Plugin {
	return spi.Plugin{
		Name:         Name,
		DefaultModel: "gemini-2.0-flash",
		APIKeyEnv:    "GEMINI_API_KEY",
		Factory:      build,
	}
}

type provider struct {
	client *genai.Client
	cfg    spi.ProviderConfig
	gen    toolschema.GeminiGenerator
}

func build(ctx context.Context, cfg *spi.ProviderConfig) (spi.CompletionProvider, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &provider{client: client, cfg: *cfg}, nil
}

func (p *provider) Name() string { return Name }

func (p *provider) Generate(ctx context.Context, req *spi.Request) (*schema.Message, error) {
	conf := &genai.GenerateContentConfig{Temperature: p.cfg.Temperature}
	if p.cfg.MaxTokens != 0 {
		conf.MaxOutputTokens = int32(p.cfg.MaxTokens)
	}
	if req.System != "" {
		conf.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if decls := p.gen.Generate(req.Functions); len(decls) > 0 {
		conf.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	contents, err := ToContents(req.Messages)
	if err != nil {
		return nil, entity.NewProviderError(err, Name, p.cfg.Model)
	}
	resp, err := p.client.Models.GenerateContent(ctx, p.cfg.Model, contents, conf)
	if err != nil {
		return nil, MapError(err, p.cfg.Model)
	}
	return FromResponse(resp)
}

// ToContents converts a transcript to Gemini contents. System messages and
// empty turns are skipped; consecutive tool results share one user turn.
func ToContents(msgs []*schema.Message) ([]*genai.Content, error) {
	callNames := make(map[string]string)
	var out []*genai.Content
	var pending *genai.Content

	flush := func() {
		if pending != nil {
			out = append(out, pending)
			pending = nil
		}
	}

	for _, m := range msgs {
		switch m.Role {
		case schema.User:
			flush()
			if strings.TrimSpace(m.Content) == "" {
				continue
			}
			out = append(out, &genai.Content{Role: string(genai.RoleUser), Parts: []*genai.Part{{Text: m.Content}}})
		case schema.Assistant:
			flush()
			var parts []*genai.Part
			if strings.TrimSpace(m.Content) != "" {
				parts = append(parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				args := map[string]any{}
				if tc.Function.Arguments != "" {
					if err := json.UnmarshalString(tc.Function.Arguments, &args); err != nil {
						return nil, fmt.Errorf("arguments of %s: %w", tc.Function.Name, err)
					}
				}
				callNames[tc.ID] = tc.Function.Name
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Function.Name, Args: args}})
			}
			if len(parts) == 0 {
				continue
			}
			out = append(out, &genai.Content{Role: string(genai.RoleModel), Parts: parts})
		case schema.Tool:
			name := m.ToolName
			if name == "" {
				name = callNames[m.ToolCallID]
			}
			if pending == nil {
				pending = &genai.Content{Role: string(genai.RoleUser)}
			}
			pending.Parts = append(pending.Parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       m.ToolCallID,
				Name:     name,
				Response: toolResponse(m.Content),
			}})
		}
	}
	flush()
	return out, nil
}

// toolResponse keeps JSON object results as they are and wraps anything
// else under "result".
func toolResponse(content string) map[string]any {
	var obj map[string]any
	if err := json.UnmarshalString(content, &obj); err == nil && obj != nil {
		return obj
	}
	return map[string]any{"result": content}
}

// FromResponse turns the first candidate into an assistant message. Calls
// without an id get a fresh one so tool results can be matched.
func FromResponse(resp *genai.GenerateContentResponse) (*schema.Message, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, &entity.ProviderError{Kind: entity.FailureOther, Provider: Name, Message: "empty response"}
	}
	msg := &schema.Message{Role: schema.Assistant}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		switch {
		case part.FunctionCall != nil:
			fc := part.FunctionCall
			args, err := json.MarshalString(fc.Args)
			if err != nil {
				return nil, err
			}
			id := fc.ID
			if id == "" {
				id = uuid.NewString()
			}
			msg.ToolCalls = append(msg.ToolCalls, schema.ToolCall{
				ID:       id,
				Type:     "function",
				Function: schema.FunctionCall{Name: fc.Name, Arguments: args},
			})
		case part.Text != "" && !part.Thought:
			text.WriteString(part.Text)
		}
	}
	msg.Content = text.String()
	return msg, nil
}

// MapError converts a genai API error into a classified provider error.
func MapError(err error, model string) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		pe := &entity.ProviderError{
			Provider:   Name,
			Model:      model,
			StatusCode: apiErr.Code,
			Code:       apiErr.Status,
			Message:    apiErr.Message,
			Cause:      err,
		}
		pe.Kind = entity.ClassifyError(statusError{pe})
		return pe
	}
	return entity.NewProviderError(err, Name, model)
}

// statusError exposes the HTTP status and code of an unclassified error.
type statusError struct{ pe *entity.ProviderError }

func (e statusError) Error() string { return e.pe.Error() }
func (e statusError) StatusCode() int { return e.pe.StatusCode }
func (e statusError) ErrorCode() string { return e.pe.Code }
