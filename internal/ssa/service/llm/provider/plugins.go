package provider

import (
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/provider/anthropic"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/provider/deepseek"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/provider/gemini"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/provider/ollama"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/provider/openai"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/provider/qwen"
)

// NewInTreeRegistry returns a registry holding every built-in provider.
func NewInTreeRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister(gemini.Plugin())
	r.MustRegister(openai.Plugin())
	r.MustRegister(anthropic.Plugin())
	r.MustRegister(deepseek.Plugin())
	r.MustRegister(qwen.Plugin())
	r.MustRegister(ollama.Plugin())
	return r
}
