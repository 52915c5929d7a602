// Package agent runs one conversation turn: the bounded observe, orient,
// decide, act loop between the completion provider and the tool registry,
// with deterministic fallback when no provider can answer.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/entity"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/spi"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/metrics"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/rules"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	toolschema "github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/schema"
	"github.com/kiosk404/sankhya-agent/pkg/logger"
)

const (
	ModuleName = "agent"

	// DefaultMaxRounds bounds the provider calls of one turn.
	DefaultMaxRounds = 5

	simulationBanner = "**[MODO SIMULAÇÃO - SEM LLM]**\n\n"
	toolErrorPrefix  = "Erro na execução da ferramenta: "
)

// ErrEmptyResponse is the provider failure recorded when Generate returns
// neither a message nor an error.
var ErrEmptyResponse = errors.New("provider returned an empty response")

// Outcome is how a turn ended.
type Outcome string

const (
	OutcomeFinal      Outcome = "final"
	OutcomeRoundLimit Outcome = "round_limit"
	OutcomeFallback   Outcome = "fallback"
	OutcomeSimulation Outcome = "simulation"
)

// TurnResult is the answer of one turn.
type TurnResult struct {
	ID      string
	Text    string
	Outcome Outcome
	// Rounds is the number of provider calls made.
	Rounds int
	// Calls are the tool executions, in order.
	Calls []ToolResult
	// Failure is set when the turn fell back after a provider error.
	Failure *entity.ProviderError
}

// Config holds the controller collaborators.
type Config struct {
	Registry *tools.Registry
	// Provider may be nil, which selects simulation mode.
	Provider spi.CompletionProvider
	// Rules feeds the active business rules into the system instruction.
	Rules rules.Store

	MaxRounds int
	// ToolTimeout bounds each tool call; zero means no bound.
	ToolTimeout time.Duration
}

type completedConfig struct {
	*Config
}

func (c *Config) Complete() completedConfig {
	if c.MaxRounds <= 0 {
		c.MaxRounds = DefaultMaxRounds
	}
	return completedConfig{c}
}

func (c completedConfig) New() (*Controller, error) {
	if c.Registry == nil {
		return nil, fmt.Errorf("agent: tool registry is required")
	}
	return &Controller{
		registry:    c.Registry,
		provider:    c.Provider,
		rules:       c.Rules,
		maxRounds:   c.MaxRounds,
		toolTimeout: c.ToolTimeout,
		corrector:   NewSelfCorrector(),
		fallback:    NewFallbackResponder(),
	}, nil
}

// Controller runs conversation turns. It is safe for concurrent use; each
// turn works on its own registry snapshot.
type Controller struct {
	registry    *tools.Registry
	provider    spi.CompletionProvider
	rules       rules.Store
	maxRounds   int
	toolTimeout time.Duration

	corrector *SelfCorrector
	learner   AutoLearner
	fallback  *FallbackResponder
}

// Simulated reports whether turns are answered without a provider.
func (c *Controller) Simulated() bool { return c.provider == nil }

// ProviderName is the configured provider, or "" in simulation mode.
func (c *Controller) ProviderName() string {
	if c.provider == nil {
		return ""
	}
	return c.provider.Name()
}

// Registry returns the tool registry the turns run against.
func (c *Controller) Registry() *tools.Registry { return c.registry }

// Run answers the transcript. It never fails: provider errors end in the
// deterministic fallback and tool errors are fed back to the provider.
func (c *Controller) Run(ctx context.Context, transcript []*schema.Message) *TurnResult {
	res := &TurnResult{ID: uuid.NewString()}
	st := newTurnState(res.ID)

	if err := c.registry.Reload(ctx); err != nil {
		logger.WarnX(ModuleName, "registry reload failed, using previous snapshot: %v", err)
	}
	snap := c.registry.Snapshot()
	lastUser := LastUserMessage(transcript)

	if c.provider == nil {
		st.to(statusFallback)
		res.Outcome = OutcomeSimulation
		res.Text = simulationBanner + c.fallback.Respond(ctx, snap, lastUser)
		metrics.Turns.WithLabelValues(string(res.Outcome)).Inc()
		return res
	}

	req := &spi.Request{
		System:    BuildSystemPrompt(snap, c.activeRules(ctx)),
		Messages:  append([]*schema.Message(nil), transcript...),
		Functions: toolschema.Build(snap),
	}

	for {
		st.awaitProvider()
		res.Rounds = st.round

		resp, err := c.provider.Generate(ctx, req)
		if err == nil && resp == nil {
			err = ErrEmptyResponse
		}
		if err != nil {
			st.to(statusFallback)
			c.fail(ctx, res, snap, lastUser, err)
			return res
		}

		if len(resp.ToolCalls) == 0 {
			st.to(statusFinal)
			res.Outcome = OutcomeFinal
			res.Text = resp.Content
			break
		}
		st.to(statusHasToolCalls)

		// Liveness bound: at most maxRounds provider calls per turn. Tool calls
		// requested by the last allowed response are never executed; the turn
		// answers with that response's text.
		if st.round >= c.maxRounds {
			logger.WarnX(ModuleName, "turn %s hit the %d round limit with %d pending tool calls", res.ID, c.maxRounds, len(resp.ToolCalls))
			st.to(statusFinal)
			res.Outcome = OutcomeRoundLimit
			res.Text = resp.Content
			break
		}

		st.to(statusExecutingTools)
		req.Messages = append(req.Messages, resp)
		for i, call := range resp.ToolCalls {
			logger.InfoX(ModuleName, "🛠️ Executando [%d/%d]: %s(%s)", st.round, c.maxRounds, call.Function.Name, call.Function.Arguments)
			tr := c.execute(ctx, snap, call)
			res.Calls = append(res.Calls, tr)
			req.Messages = append(req.Messages, tr.message(i))
		}
	}

	metrics.Turns.WithLabelValues(string(res.Outcome)).Inc()
	return res
}

func (c *Controller) activeRules(ctx context.Context) []rules.Rule {
	if c.rules == nil {
		return nil
	}
	active, err := c.rules.Active(ctx)
	if err != nil {
		logger.WarnX(ModuleName, "load active rules: %v", err)
		return nil
	}
	return active
}

// fail classifies a provider error and answers through the fallback
// responder with a banner naming the failure.
func (c *Controller) fail(ctx context.Context, res *TurnResult, snap *tools.Snapshot, lastUser string, err error) {
	pe := entity.NewProviderError(err, c.provider.Name(), "")
	res.Failure = pe
	res.Outcome = OutcomeFallback

	metrics.ProviderFailures.WithLabelValues(pe.Provider, pe.Kind.String()).Inc()
	metrics.Turns.WithLabelValues(string(res.Outcome)).Inc()
	logger.WarnX(ModuleName, "Falha no provedor %s (%v). Entrando em modo FALLBACK (Simulação).", pe.Provider, err)

	res.Text = FallbackBanner(pe.Kind, pe.Provider, err.Error()) + c.fallback.Respond(ctx, snap, lastUser)
}

// FallbackBanner is the notice put before a fallback answer.
func FallbackBanner(kind entity.FailureKind, provider, errMsg string) string {
	label := strings.ToUpper(provider)
	switch kind {
	case entity.FailureQuota:
		return fmt.Sprintf("⚠️ **[MODO FALLBACK - QUOTA %s EXCEDIDA]**\n\n"+
			"Sua API Key %s atingiu o limite de uso. Verifique billing/limites e tente novamente.\n\n", label, displayName(provider))
	case entity.FailureAuth:
		return fmt.Sprintf("⚠️ **[MODO FALLBACK - %s NAO AUTENTICOU]**\n\n"+
			"A chave de API do provedor `%s` parece inválida ou sem permissão. Verifique a chave configurada.\n\n", label, provider)
	}
	return fmt.Sprintf("⚠️ **[MODO FALLBACK - ERRO %s]**\n\n*Erro: %s*\n\n", label, errMsg)
}

func displayName(provider string) string {
	if provider == "" {
		return provider
	}
	return strings.ToUpper(provider[:1]) + provider[1:]
}

// LastUserMessage is the content of the latest user message, or "".
func LastUserMessage(transcript []*schema.Message) string {
	for i := len(transcript) - 1; i >= 0; i-- {
		if m := transcript[i]; m != nil && m.Role == schema.User {
			return m.Content
		}
	}
	return ""
}
