package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/gateway"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/provider/helper"
)

// GatewayOptions hold the Sankhya gateway connection. Credentials accept
// "${ENV}" references and default to the SANKHYA_* variables.
type GatewayOptions struct {
	BaseURL        string        `json:"base-url"        mapstructure:"base-url"`
	ClientID       string        `json:"-"               mapstructure:"client-id"`
	ClientSecret   string        `json:"-"               mapstructure:"client-secret"`
	XToken         string        `json:"-"               mapstructure:"x-token"`
	AuthTimeout    time.Duration `json:"auth-timeout"    mapstructure:"auth-timeout"`
	RequestTimeout time.Duration `json:"request-timeout" mapstructure:"request-timeout"`
}

func NewGatewayOptions() *GatewayOptions {
	return &GatewayOptions{
		BaseURL:        "${SANKHYA_API_URL}",
		ClientID:       "${SANKHYA_CLIENT_ID}",
		ClientSecret:   "${SANKHYA_CLIENT_SECRET}",
		XToken:         "${SANKHYA_X_TOKEN}",
		AuthTimeout:    15 * time.Second,
		RequestTimeout: 30 * time.Second,
	}
}

func (o *GatewayOptions) Validate() []error {
	var errs []error
	if o.AuthTimeout < 0 || o.RequestTimeout < 0 {
		errs = append(errs, errors.New("gateway timeouts must not be negative"))
	}
	return errs
}

func (o *GatewayOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.BaseURL, "gateway.base-url", o.BaseURL, "Sankhya gateway URL or ${ENV} reference.")
	fs.StringVar(&o.ClientID, "gateway.client-id", o.ClientID, "OAuth client id or ${ENV} reference.")
	fs.StringVar(&o.ClientSecret, "gateway.client-secret", o.ClientSecret, "OAuth client secret or ${ENV} reference.")
	fs.StringVar(&o.XToken, "gateway.x-token", o.XToken, "Gateway X-Token or ${ENV} reference.")
	fs.DurationVar(&o.AuthTimeout, "gateway.auth-timeout", o.AuthTimeout, "Timeout of the token request.")
	fs.DurationVar(&o.RequestTimeout, "gateway.request-timeout", o.RequestTimeout, "Timeout of a query or service call.")
}

// Config resolves the references into a gateway config.
func (o *GatewayOptions) Config() *gateway.Config {
	return &gateway.Config{
		BaseURL:        helper.ResolveEnvValue(o.BaseURL),
		ClientID:       helper.ResolveEnvValue(o.ClientID),
		ClientSecret:   helper.ResolveEnvValue(o.ClientSecret),
		XToken:         helper.ResolveEnvValue(o.XToken),
		AuthTimeout:    o.AuthTimeout,
		RequestTimeout: o.RequestTimeout,
	}
}
