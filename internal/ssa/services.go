package ssa

import (
	"context"
	"errors"
	"fmt"

	"github.com/kiosk404/sankhya-agent/internal/ssa/config"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/agent"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/gateway"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/guard"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/knowledge"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/mcp"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/rules"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/core"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/skills"
	"github.com/kiosk404/sankhya-agent/pkg/logger"
)

// services are the collaborators shared by the HTTP server and the MCP
// server.
type services struct {
	gateway    *gateway.Client
	rules      rules.Store
	registry   *tools.Registry
	controller *agent.Controller

	mcpSource  *mcp.SkillSource
	watcher    *tools.Watcher
	closeRules func() error
}

// newServices wires the collaborators bottom-up: gateway, write guard, rule
// store, tool registry with its skill sources, completion provider and the
// controller. The first registry load happens here.
func newServices(ctx context.Context, cfg *config.Config) (*services, error) {
	s := &services{}

	s.gateway = cfg.GatewayOptions.Config().Complete().New()
	if !s.gateway.Configured() {
		logger.Warn("[SSA] gateway credentials not set, ERP tools will report the missing configuration")
	}

	store, closeRules, err := cfg.RulesOptions.Config().Complete().New()
	if err != nil {
		return nil, fmt.Errorf("open rule store: %w", err)
	}
	s.rules, s.closeRules = store, closeRules

	mcpCfg, err := mcp.LoadConfig(cfg.SkillsOptions.MCPConfigFile)
	if err != nil {
		s.Close()
		return nil, err
	}
	if errs := mcpCfg.Complete().Validate(); len(errs) > 0 {
		s.Close()
		return nil, fmt.Errorf("invalid MCP config %q: %w", cfg.SkillsOptions.MCPConfigFile, errors.Join(errs...))
	}
	s.mcpSource = mcp.NewSkillSource(mcpCfg)

	// the guard reads SSA_* at check time so operators can flip writes
	// without a restart
	wg := guard.NewWriteGuard(guard.EnvSource{})
	coreTools := core.Tools(core.Deps{
		Exec:        s.gateway,
		Guard:       wg,
		Docs:        knowledge.Docs{Dir: cfg.KnowledgeOptions.DocsDir},
		KnowledgeDB: cfg.KnowledgeOptions.DB,
	})
	segments, err := skills.ParseSegments(cfg.SkillsOptions.Segments)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("skills segments: %w", err)
	}
	deps := skills.Deps{Exec: s.gateway, Guard: wg, Rules: s.rules, Segments: segments, Dir: cfg.SkillsOptions.Dir}
	s.registry = tools.NewRegistry(coreTools,
		skills.NewInTreeSource(deps),
		skills.NewManifestSource(cfg.SkillsOptions.Dir, deps),
		s.mcpSource,
	)
	if err := s.registry.Reload(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("load tools: %w", err)
	}
	snap := s.registry.Snapshot()
	logger.Info("[SSA] %d tools loaded (%d modules skipped)", snap.Len(), len(snap.Errors()))

	if cfg.SkillsOptions.Watch {
		s.watcher, err = tools.NewWatcher(s.registry, cfg.SkillsOptions.Dir, cfg.SkillsOptions.Debounce)
		if err != nil {
			logger.Warn("[SSA] skills watcher disabled: %v", err)
		}
	}

	llmCfg := &llm.Config{
		Provider:    cfg.LLMOptions.Provider,
		Model:       cfg.LLMOptions.Model,
		APIKey:      cfg.LLMOptions.APIKey,
		BaseURL:     cfg.LLMOptions.BaseURL,
		MaxTokens:   cfg.LLMOptions.MaxTokens,
		Temperature: cfg.LLMOptions.TemperaturePtr(),
		Timeout:     cfg.LLMOptions.Timeout,
	}
	provider, err := llmCfg.Complete().New(ctx)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("create completion provider: %w", err)
	}

	agentCfg := &agent.Config{
		Registry:    s.registry,
		Provider:    provider,
		Rules:       s.rules,
		MaxRounds:   cfg.AgentOptions.MaxRounds,
		ToolTimeout: cfg.AgentOptions.ToolTimeout,
	}
	s.controller, err = agentCfg.Complete().New()
	if err != nil {
		s.Close()
		return nil, err
	}
	if s.controller.Simulated() {
		logger.Info("[SSA] agent ready in simulation mode")
	} else {
		logger.Info("[SSA] agent ready with provider %s", s.controller.ProviderName())
	}
	return s, nil
}

// Close releases the watcher, the MCP connections and the rule store.
func (s *services) Close() error {
	var errs []error
	if s.watcher != nil {
		errs = append(errs, s.watcher.Close())
	}
	if s.mcpSource != nil {
		errs = append(errs, s.mcpSource.Close())
	}
	if s.closeRules != nil {
		errs = append(errs, s.closeRules())
	}
	return errors.Join(errs...)
}
