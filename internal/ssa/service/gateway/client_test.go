package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
)

type fakeGateway struct {
	authCalls    atomic.Int32
	serviceCalls atomic.Int32
	// reject401 makes the first N service calls answer 401.
	reject401 int32
	tokens    atomic.Int32
	response  map[string]any
	// expiresIn defaults to 3600 seconds.
	expiresIn int
}

func (f *fakeGateway) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/authenticate", func(w http.ResponseWriter, r *http.Request) {
		f.authCalls.Add(1)
		assert.Equal(t, "xt", r.Header.Get("X-Token"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "id", r.PostForm.Get("client_id"))
		n := f.tokens.Add(1)
		ttl := f.expiresIn
		if ttl == 0 {
			ttl = 3600
		}
		_ = writeJSON(w, map[string]any{"bearerToken": "tok-" + string(rune('0'+n)), "expires_in": ttl})
	})
	mux.HandleFunc(servicePath, func(w http.ResponseWriter, r *http.Request) {
		n := f.serviceCalls.Add(1)
		assert.Equal(t, "json", r.URL.Query().Get("outputType"))
		if n <= f.reject401 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, r.URL.Query().Get("serviceName"), req["serviceName"])
		_ = writeJSON(w, f.response)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(data)
	return err
}

func newTestClient(srv *httptest.Server) *Client {
	cfg := &Config{BaseURL: srv.URL + "/", ClientID: "id", ClientSecret: "secret", XToken: "xt"}
	return cfg.Complete().New()
}

func queryResponse() map[string]any {
	return map[string]any{
		"status": "1",
		"responseBody": map[string]any{
			"fieldsMetadata": []any{map[string]any{"name": "CODPROD"}, map[string]any{"name": "DESCRPROD"}},
			"rows":           []any{[]any{1, "Parafuso"}, []any{2, "Porca"}},
		},
	}
}

func TestClient_ExecuteQuery(t *testing.T) {
	fg := &fakeGateway{response: queryResponse()}
	srv := httptest.NewServer(fg.handler(t))
	defer srv.Close()

	c := newTestClient(srv)
	rs, err := c.ExecuteQuery(context.Background(), " SELECT CODPROD, DESCRPROD FROM TGFPRO ")
	require.NoError(t, err)
	require.Equal(t, 2, rs.Len())
	assert.Equal(t, []string{"CODPROD", "DESCRPROD"}, rs.Columns)
	assert.Equal(t, float64(1), rs.Rows[0]["CODPROD"])
	assert.Equal(t, "Porca", rs.Rows[1]["DESCRPROD"])

	// token is cached across calls
	_, err = c.ExecuteQuery(context.Background(), "SELECT 1 FROM DUAL")
	require.NoError(t, err)
	assert.Equal(t, int32(1), fg.authCalls.Load())
}

func TestClient_RefreshOn401RetriesOnce(t *testing.T) {
	fg := &fakeGateway{response: queryResponse(), reject401: 1}
	srv := httptest.NewServer(fg.handler(t))
	defer srv.Close()

	rs, err := newTestClient(srv).ExecuteQuery(context.Background(), "SELECT 1 FROM DUAL")
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Len())
	assert.Equal(t, int32(2), fg.authCalls.Load())
	assert.Equal(t, int32(2), fg.serviceCalls.Load())
}

func TestClient_PersistentAuthFailure(t *testing.T) {
	fg := &fakeGateway{response: queryResponse(), reject401: 10}
	srv := httptest.NewServer(fg.handler(t))
	defer srv.Close()

	_, err := newTestClient(srv).ExecuteQuery(context.Background(), "SELECT 1 FROM DUAL")
	require.Error(t, err)
	assert.True(t, IsAuth(err))
	assert.False(t, IsFunctional(err))
	assert.Equal(t, int32(2), fg.serviceCalls.Load(), "only one retry after 401")
}

func TestClient_FunctionalErrors(t *testing.T) {
	fg := &fakeGateway{response: map[string]any{"status": "0", "statusMessage": "ORA-00904: \"CURDATE\": invalid identifier"}}
	srv := httptest.NewServer(fg.handler(t))
	defer srv.Close()
	c := newTestClient(srv)

	_, err := c.ExecuteQuery(context.Background(), "SELECT CURDATE() FROM DUAL")
	require.Error(t, err)
	assert.True(t, IsFunctional(err))
	assert.Contains(t, err.Error(), "ORA-00904")

	_, err = c.CallService(context.Background(), "CRUDServiceProvider.loadRecords", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Erro Funcional Sankhya")
}

func TestClient_CallService(t *testing.T) {
	fg := &fakeGateway{response: map[string]any{"status": "1", "responseBody": map[string]any{"total": "1"}}}
	srv := httptest.NewServer(fg.handler(t))
	defer srv.Close()

	out, err := newTestClient(srv).CallService(context.Background(), "DatasetSP.save", map[string]any{"entityName": "Parceiro"})
	require.NoError(t, err)
	assert.Equal(t, "1", out["status"])
}

func TestClient_NotConfigured(t *testing.T) {
	c := (&Config{}).Complete().New()
	assert.False(t, c.Configured())
	_, err := c.ExecuteQuery(context.Background(), "SELECT 1 FROM DUAL")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_TokenExpiry(t *testing.T) {
	fg := &fakeGateway{response: queryResponse()}
	srv := httptest.NewServer(fg.handler(t))
	defer srv.Close()

	c := newTestClient(srv)
	now := time.Now()
	c.now = func() time.Time { return now }

	_, err := c.ExecuteQuery(context.Background(), "SELECT 1 FROM DUAL")
	require.NoError(t, err)

	// still inside expires_in - 60s
	now = now.Add(3500 * time.Second)
	_, err = c.ExecuteQuery(context.Background(), "SELECT 1 FROM DUAL")
	require.NoError(t, err)
	assert.Equal(t, int32(1), fg.authCalls.Load())

	now = now.Add(100 * time.Second)
	_, err = c.ExecuteQuery(context.Background(), "SELECT 1 FROM DUAL")
	require.NoError(t, err)
	assert.Equal(t, int32(2), fg.authCalls.Load())
}

func TestClient_TokenReuseWindow(t *testing.T) {
	tests := []struct {
		name      string
		expiresIn int
		elapsed   time.Duration
		wantAuth  int32
	}{
		{name: "long ttl inside margin", expiresIn: 3600, elapsed: 3539 * time.Second, wantAuth: 1},
		{name: "long ttl past margin", expiresIn: 3600, elapsed: 3541 * time.Second, wantAuth: 2},
		{name: "short ttl reused", expiresIn: 30, elapsed: 10 * time.Second, wantAuth: 1},
		{name: "short ttl past half", expiresIn: 30, elapsed: 16 * time.Second, wantAuth: 2},
		{name: "ttl equal to margin reused", expiresIn: 60, elapsed: 29 * time.Second, wantAuth: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fg := &fakeGateway{response: queryResponse(), expiresIn: tt.expiresIn}
			srv := httptest.NewServer(fg.handler(t))
			defer srv.Close()

			c := newTestClient(srv)
			now := time.Now()
			c.now = func() time.Time { return now }

			_, err := c.ExecuteQuery(context.Background(), "SELECT 1 FROM DUAL")
			require.NoError(t, err)

			now = now.Add(tt.elapsed)
			_, err = c.ExecuteQuery(context.Background(), "SELECT 1 FROM DUAL")
			require.NoError(t, err)
			assert.Equal(t, tt.wantAuth, fg.authCalls.Load())
		})
	}
}

func TestParseTTL(t *testing.T) {
	assert.Equal(t, 120*time.Second, parseTTL(float64(120)))
	assert.Equal(t, 90*time.Second, parseTTL("90"))
	assert.Equal(t, defaultTokenTTL, parseTTL(nil))
}
