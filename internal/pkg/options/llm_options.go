package options

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// LLMOptions select the completion provider. An empty provider, "none", or
// a provider without key runs the agent in simulation mode.
type LLMOptions struct {
	Provider string `json:"provider" mapstructure:"provider"`
	Model    string `json:"model" mapstructure:"model"`
	// APIKey accepts "${ENV}" references; empty reads the provider's
	// conventional variable (GEMINI_API_KEY, OPENAI_API_KEY, ...).
	APIKey    string `json:"-" mapstructure:"api-key"`
	BaseURL   string `json:"base-url" mapstructure:"base-url"`
	MaxTokens int    `json:"max-tokens" mapstructure:"max-tokens"`
	// Temperature below zero keeps the provider default.
	Temperature float64       `json:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
}

func NewLLMOptions() *LLMOptions {
	return &LLMOptions{
		Provider:    "gemini",
		Temperature: -1,
		Timeout:     60 * time.Second,
	}
}

func (o *LLMOptions) Validate() []error {
	var errs []error
	if o.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature %.2f out of range [0, 2]", o.Temperature))
	}
	if o.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("llm.max-tokens must not be negative"))
	}
	if o.Timeout < 0 {
		errs = append(errs, fmt.Errorf("llm.timeout must not be negative"))
	}
	return errs
}

// TemperaturePtr returns the temperature to send, or nil for the provider
// default.
func (o *LLMOptions) TemperaturePtr() *float32 {
	if o.Temperature < 0 {
		return nil
	}
	t := float32(o.Temperature)
	return &t
}

func (o *LLMOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Provider, "llm.provider", o.Provider,
		"Completion provider: gemini, openai, anthropic, deepseek, qwen, ollama or none. "+
			"Without a usable provider the agent answers in simulation mode.")
	fs.StringVar(&o.Model, "llm.model", o.Model, "Model name; empty selects the provider default.")
	fs.StringVar(&o.APIKey, "llm.api-key", o.APIKey, "API key or ${ENV} reference.")
	fs.StringVar(&o.BaseURL, "llm.base-url", o.BaseURL, "Override the provider endpoint.")
	fs.IntVar(&o.MaxTokens, "llm.max-tokens", o.MaxTokens, "Output token limit, 0 for the provider default.")
	fs.Float64Var(&o.Temperature, "llm.temperature", o.Temperature, "Sampling temperature, negative for the provider default.")
	fs.DurationVar(&o.Timeout, "llm.timeout", o.Timeout, "Timeout of one completion request.")
}

// Disabled reports whether the options explicitly turn completion off.
func (o *LLMOptions) Disabled() bool {
	p := strings.ToLower(strings.TrimSpace(o.Provider))
	return p == "" || p == "none"
}
