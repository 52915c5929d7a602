package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func authEngine(cfg *AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	g.Use(BearerAuth(cfg))
	ok := func(c *gin.Context) { c.String(http.StatusOK, "ok") }
	g.GET("/v1/tools", ok)
	g.GET("/healthz", ok)
	return g
}

func TestBearerAuth(t *testing.T) {
	t.Setenv("SSA_TEST_TOKEN", "s3cret")
	cfg := &AuthConfig{Enabled: true, Token: "${SSA_TEST_TOKEN}"}

	tests := []struct {
		name   string
		path   string
		header string
		remote string
		want   int
	}{
		{name: "valid token", path: "/v1/tools", header: "Bearer s3cret", want: http.StatusOK},
		{name: "missing header", path: "/v1/tools", want: http.StatusUnauthorized},
		{name: "wrong scheme", path: "/v1/tools", header: "Basic s3cret", want: http.StatusUnauthorized},
		{name: "wrong token", path: "/v1/tools", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "health is open", path: "/healthz", want: http.StatusOK},
		{name: "loopback still needs token", path: "/v1/tools", remote: "127.0.0.1:5000", want: http.StatusUnauthorized},
	}
	g := authEngine(cfg)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.remote != "" {
				req.RemoteAddr = tt.remote
			}
			w := httptest.NewRecorder()
			g.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), "authentication_error")
			}
		})
	}
}

func TestBearerAuth_Bypass(t *testing.T) {
	local := httptest.NewRequest(http.MethodGet, "/v1/tools", nil)
	local.RemoteAddr = "127.0.0.1:5000"

	w := httptest.NewRecorder()
	authEngine(&AuthConfig{Enabled: true, Token: "x", AllowLocal: true}).ServeHTTP(w, local)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	authEngine(&AuthConfig{Enabled: false, Token: "x"}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/tools", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// an unresolved token leaves the API open
	w = httptest.NewRecorder()
	authEngine(&AuthConfig{Enabled: true, Token: "${SSA_UNSET_TOKEN_VAR}"}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/tools", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
