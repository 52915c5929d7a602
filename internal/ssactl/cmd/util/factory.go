// Package util holds the plumbing shared by ssactl commands.
package util

import (
	"errors"
	"net/http"

	"github.com/spf13/viper"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/provider/helper"
	"github.com/kiosk404/sankhya-agent/internal/ssactl/client"
)

// Global flag names. They double as viper keys, so SSACTL_SERVER and
// friends override the defaults.
const (
	FlagServer  = "server"
	FlagToken   = "token"
	FlagTimeout = "timeout"
)

// Factory hands commands the objects they need, built from the global
// flags at call time.
type Factory interface {
	APIClient() (*client.Client, error)
}

type defaultFactory struct {
	v *viper.Viper
}

func NewFactory(v *viper.Viper) Factory {
	return &defaultFactory{v: v}
}

func (f *defaultFactory) APIClient() (*client.Client, error) {
	server := f.v.GetString(FlagServer)
	if server == "" {
		return nil, errors.New("no server address, set --server or SSACTL_SERVER")
	}
	token := helper.ResolveEnvValue(f.v.GetString(FlagToken))
	return client.New(server, token, &http.Client{Timeout: f.v.GetDuration(FlagTimeout)}), nil
}
