package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOptions_DefaultsAreValid(t *testing.T) {
	o := NewOptions()
	assert.Empty(t, o.Validate())
	assert.Equal(t, 5, o.AgentOptions.MaxRounds)
	assert.Equal(t, "file", o.RulesOptions.Backend)
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		want   string
	}{
		{name: "round limit above five", mutate: func(o *Options) { o.AgentOptions.MaxRounds = 6 }, want: "agent.max-rounds"},
		{name: "unknown rule backend", mutate: func(o *Options) { o.RulesOptions.Backend = "redis" }, want: "rules.backend"},
		{name: "auth without token", mutate: func(o *Options) {
			o.AuthOptions.Enabled = true
			o.AuthOptions.Token = ""
		}, want: "auth.token"},
		{name: "bad log level", mutate: func(o *Options) { o.LogOptions.Level = "loud" }, want: "log.level"},
		{name: "negative gateway timeout", mutate: func(o *Options) { o.GatewayOptions.RequestTimeout = -1 }, want: "gateway timeouts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOptions()
			tt.mutate(o)
			errs := o.Validate()
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0].Error(), tt.want)
		})
	}
}

func TestGatewayOptions_ResolvesEnvReferences(t *testing.T) {
	t.Setenv("SANKHYA_CLIENT_ID", "cid")
	t.Setenv("SANKHYA_CLIENT_SECRET", "secret")
	t.Setenv("SANKHYA_X_TOKEN", "xt")
	t.Setenv("SANKHYA_API_URL", "")

	cfg := NewGatewayOptions().Config()
	assert.Equal(t, "cid", cfg.ClientID)
	assert.Equal(t, "secret", cfg.ClientSecret)
	assert.Equal(t, "xt", cfg.XToken)
	assert.Empty(t, cfg.BaseURL)
}

func TestOptions_StringHidesSecrets(t *testing.T) {
	o := NewOptions()
	o.LLMOptions.APIKey = "sk-live"
	o.GatewayOptions.ClientSecret = "top-secret"
	s := o.String()
	assert.NotContains(t, s, "sk-live")
	assert.NotContains(t, s, "top-secret")
	assert.Contains(t, s, `"max-rounds":5`)
}

func TestOptions_FlagSections(t *testing.T) {
	fss := NewOptions().Flags()
	assert.Equal(t, []string{"generic", "grpc", "auth", "llm", "agent", "gateway", "skills", "rules", "knowledge", "log"}, fss.Order)
	assert.NotNil(t, fss.FlagSet("agent").Lookup("agent.max-rounds"))
}
