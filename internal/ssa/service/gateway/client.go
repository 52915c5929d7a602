// Package gateway is the Sankhya ERP gateway client. It owns the OAuth token
// lifecycle and performs no safety filtering of its own.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/metrics"
	"github.com/kiosk404/sankhya-agent/pkg/logger"
	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
)

const (
	ModuleName = "gateway"

	queryService = "DbExplorerSP.executeQuery"
	servicePath  = "/gateway/v1/mge/service.sbr"

	defaultTokenTTL = 3600 * time.Second
	tokenMargin     = 60 * time.Second
)

// Row is one result row keyed by column name.
type Row = map[string]any

// ResultSet is a query result. Columns keeps the order reported by the
// gateway, which Row maps cannot.
type ResultSet struct {
	Columns []string
	Rows    []Row
}

// Len is the number of rows; nil-safe.
func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Executor is the query-executor boundary used by the tools.
type Executor interface {
	ExecuteQuery(ctx context.Context, sql string) (*ResultSet, error)
	CallService(ctx context.Context, name string, body map[string]any) (map[string]any, error)
}

// Config holds the gateway connection settings.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	XToken       string

	AuthTimeout    time.Duration
	RequestTimeout time.Duration

	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client
}

type completedConfig struct {
	*Config
}

// Complete fills defaults.
func (c *Config) Complete() completedConfig {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.sankhya.com.br"
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.AuthTimeout <= 0 {
		c.AuthTimeout = 15 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	return completedConfig{c}
}

// New creates the client. Credentials are checked lazily on first use so the
// agent can start (and answer in simulation) without them.
func (c completedConfig) New() *Client {
	return &Client{cfg: c.Config, now: time.Now}
}

// Client talks to the Sankhya gateway.
type Client struct {
	cfg *Config
	now func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

var _ Executor = (*Client)(nil)

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.ClientID != "" && c.cfg.ClientSecret != "" && c.cfg.XToken != ""
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	BearerToken string `json:"bearerToken"`
	ExpiresIn   any    `json:"expires_in"`
}

// bearer returns a cached token or authenticates. Callers sharing the client
// serialize here so only one authentication is in flight.
func (c *Client) bearer(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	logger.InfoX(ModuleName, "authenticating on Sankhya gateway %s", c.cfg.BaseURL)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.AuthTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/authenticate", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Token", c.cfg.XToken)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: http %d: %s", ErrAuth, resp.StatusCode, truncate(string(data), 200))
	}

	var ar authResponse
	if err := json.Unmarshal(data, &ar); err != nil {
		return "", fmt.Errorf("%w: decode token: %v", ErrAuth, err)
	}
	token := ar.AccessToken
	if token == "" {
		token = ar.BearerToken
	}
	if token == "" {
		return "", fmt.Errorf("%w: no token in response", ErrAuth)
	}

	c.token = token
	ttl := parseTTL(ar.ExpiresIn)
	margin := tokenMargin
	// short-lived tokens keep half their life instead of expiring on arrival
	if half := ttl / 2; half < margin {
		margin = half
	}
	c.expiresAt = c.now().Add(ttl - margin)
	logger.InfoX(ModuleName, "gateway authentication succeeded")
	return token, nil
}

func (c *Client) invalidate(stale string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == stale {
		c.token = ""
		c.expiresAt = time.Time{}
	}
}

type serviceEnvelope struct {
	Status        any            `json:"status"`
	StatusMessage string         `json:"statusMessage"`
	ResponseBody  map[string]any `json:"responseBody"`
}

// post sends one service call, re-authenticating and retrying exactly once
// when the gateway answers 401.
func (c *Client) post(ctx context.Context, service string, body map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(map[string]any{
		"serviceName": service,
		"requestBody": body,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	token, err := c.bearer(ctx)
	if err != nil {
		return nil, err
	}

	status, data, err := c.do(ctx, service, token, payload)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		logger.InfoX(ModuleName, "token rejected during %s, re-authenticating", service)
		metrics.GatewayReauth.Inc()
		c.invalidate(token)
		if token, err = c.bearer(ctx); err != nil {
			return nil, err
		}
		if status, data, err = c.do(ctx, service, token, payload); err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: token rejected after refresh", ErrAuth)
		}
	}
	if status < 200 || status >= 300 {
		return nil, &HTTPError{Code: status, Body: truncate(string(data), 300)}
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", service, err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, service, token string, payload []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("serviceName", service)
	q.Set("outputType", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+servicePath+"?"+q.Encode(), bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.cfg.HTTPClient.Do(req)
	metrics.GatewayLatency.WithLabelValues(service).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GatewayRequests.WithLabelValues(service, "transport_error").Inc()
		return 0, nil, fmt.Errorf("call %s: %w", service, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read %s response: %w", service, err)
	}
	metrics.GatewayRequests.WithLabelValues(service, strconv.Itoa(resp.StatusCode)).Inc()
	return resp.StatusCode, data, nil
}

// ExecuteQuery runs sql through DbExplorerSP and maps rows onto column names.
func (c *Client) ExecuteQuery(ctx context.Context, sql string) (*ResultSet, error) {
	sql = strings.TrimSpace(sql)
	logger.InfoX("audit", "SQL | %s", sql)

	out, err := c.post(ctx, queryService, map[string]any{"sql": sql})
	if err != nil {
		logger.ErrorX(ModuleName, "DbExplorerSP call failed: %v", err)
		return nil, err
	}

	env := decodeEnvelope(out)
	if statusString(env.Status) != "1" {
		msg := env.StatusMessage
		if msg == "" {
			msg = "Erro na execução da query"
		}
		logger.ErrorX(ModuleName, "Sankhya SQL error: %s", msg)
		return nil, &FunctionalError{Service: queryService, Status: statusString(env.Status), Message: msg}
	}
	return mapRows(env.ResponseBody), nil
}

// CallService invokes a named ERP service with a JSON request body.
func (c *Client) CallService(ctx context.Context, name string, body map[string]any) (map[string]any, error) {
	logger.InfoX("audit", "SERVICE | %s", name)

	out, err := c.post(ctx, name, body)
	if err != nil {
		return nil, err
	}

	env := decodeEnvelope(out)
	if env.Status != nil && statusString(env.Status) == "0" {
		msg := env.StatusMessage
		if msg == "" {
			msg = "Erro desconhecido na API Sankhya"
		}
		return nil, &FunctionalError{Service: name, Status: "0", Message: msg}
	}
	return out, nil
}

// Ping runs the canonical connectivity probe.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ExecuteQuery(ctx, "SELECT 1 AS TESTE FROM DUAL")
	return err
}

func decodeEnvelope(out map[string]any) serviceEnvelope {
	env := serviceEnvelope{Status: out["status"]}
	if msg, ok := out["statusMessage"].(string); ok {
		env.StatusMessage = msg
	}
	if body, ok := out["responseBody"].(map[string]any); ok {
		env.ResponseBody = body
	}
	return env
}

func mapRows(body map[string]any) *ResultSet {
	rs := &ResultSet{}
	if body == nil {
		return rs
	}
	fields, _ := body["fieldsMetadata"].([]any)
	rows, _ := body["rows"].([]any)

	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if m, ok := f.(map[string]any); ok {
			name, _ := m["name"].(string)
			names = append(names, name)
		}
	}
	rs.Columns = names
	if len(rows) == 0 {
		return rs
	}

	result := make([]Row, 0, len(rows))
	for _, r := range rows {
		cells, _ := r.([]any)
		item := make(Row, len(names))
		for i, name := range names {
			if i < len(cells) {
				item[name] = cells[i]
			} else {
				item[name] = nil
			}
		}
		result = append(result, item)
	}
	rs.Rows = result
	return rs
}

func statusString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}

func parseTTL(v any) time.Duration {
	switch n := v.(type) {
	case float64:
		if n > 0 {
			return time.Duration(n * float64(time.Second))
		}
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil && f > 0 {
			return time.Duration(f * float64(time.Second))
		}
	}
	return defaultTokenTTL
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
