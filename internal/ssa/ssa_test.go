package ssa

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiosk404/sankhya-agent/internal/ssa/config"
	"github.com/kiosk404/sankhya-agent/internal/ssa/options"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	opts := options.NewOptions()
	opts.LLMOptions.Provider = "none"
	opts.SkillsOptions.Dir = filepath.Join(dir, "skills")
	opts.SkillsOptions.Watch = false
	opts.SkillsOptions.MCPConfigFile = filepath.Join(dir, "mcp.json")
	opts.RulesOptions.Path = filepath.Join(dir, "rules.json")
	opts.KnowledgeOptions.DocsDir = filepath.Join(dir, "docs")
	opts.KnowledgeOptions.DB = filepath.Join(dir, "kb.db")
	opts.GatewayOptions.BaseURL = "http://127.0.0.1:1"
	opts.GatewayOptions.ClientID = ""
	opts.GatewayOptions.ClientSecret = ""
	opts.GatewayOptions.XToken = ""
	require.Empty(t, opts.Validate())
	cfg, err := config.CreateConfigFromOptions(opts)
	require.NoError(t, err)
	return cfg
}

func newTestRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	svc, err := newServices(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	gin.SetMode(gin.TestMode)
	g := gin.New()
	initRouter(g, &routerDeps{
		controller: svc.controller,
		registry:   svc.registry,
		rules:      svc.rules,
		authConfig: cfg.AuthOptions.Config(),
		model:      cfg.AgentOptions.Model,
	})
	return g
}

func serve(g *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	g.ServeHTTP(w, req)
	return w
}

func TestRouter_SimulationTurn(t *testing.T) {
	g := newTestRouter(t, testConfig(t))

	w := serve(g, http.MethodPost, "/v1/chat/completions", `{"messages":[{"role":"user","content":"olá"}]}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "MODO SIMULAÇÃO")
	assert.Contains(t, w.Body.String(), `"outcome":"simulation"`)

	w = serve(g, http.MethodGet, "/v1/models", "", "")
	assert.Contains(t, w.Body.String(), `"owned_by":"simulation"`)
}

func TestRouter_ToolsAndRules(t *testing.T) {
	g := newTestRouter(t, testConfig(t))

	w := serve(g, http.MethodGet, "/v1/tools", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"run_sql_select"`)
	assert.Contains(t, w.Body.String(), `"source":"core"`)

	w = serve(g, http.MethodPost, "/v1/tools/reload", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(g, http.MethodGet, "/v1/rules", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"active":[],"pending":[]}`, w.Body.String())

	w = serve(g, http.MethodPost, "/v1/rules/nope/approve", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_BearerAuth(t *testing.T) {
	cfg := testConfig(t)
	cfg.AuthOptions.Enabled = true
	cfg.AuthOptions.Token = "s3cret"
	cfg.AuthOptions.AllowLocal = false
	g := newTestRouter(t, cfg)

	assert.Equal(t, http.StatusUnauthorized, serve(g, http.MethodGet, "/v1/tools", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(g, http.MethodGet, "/v1/tools", "", "wrong").Code)
	assert.Equal(t, http.StatusOK, serve(g, http.MethodGet, "/v1/tools", "", "s3cret").Code)
}

func TestNewServices_InvalidMCPConfig(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.SkillsOptions.MCPConfigFile, []byte(`{"mcpServers":{"crm":{"transport":"sse"}}}`), 0o644))
	_, err := newServices(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url is required")
}
