package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

// GRPCOptions configure the gRPC listener carrying health and reflection.
type GRPCOptions struct {
	BindAddress string `json:"bind-address" mapstructure:"bind-address"`
	BindPort    int    `json:"bind-port"    mapstructure:"bind-port"`
	MaxMsgSize  int    `json:"max-msg-size" mapstructure:"max-msg-size"`
}

func NewGRPCOptions() *GRPCOptions {
	return &GRPCOptions{
		BindAddress: "0.0.0.0",
		BindPort:    11788,
		MaxMsgSize:  4 * 1024 * 1024,
	}
}

func (s *GRPCOptions) Validate() []error {
	var errs []error
	if s.BindPort < 0 || s.BindPort > 65535 {
		errs = append(errs, fmt.Errorf("--grpc.bind-port %v must be between 0 and 65535, inclusive. 0 for turning off the gRPC listener", s.BindPort))
	}
	return errs
}

// Addr is host:port of the listener.
func (s *GRPCOptions) Addr() string {
	return fmt.Sprintf("%s:%d", s.BindAddress, s.BindPort)
}

func (s *GRPCOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&s.BindAddress, "grpc.bind-address", s.BindAddress, "IP address of the gRPC listener.")
	fs.IntVar(&s.BindPort, "grpc.bind-port", s.BindPort, "Port of the gRPC listener, 0 disables it.")
	fs.IntVar(&s.MaxMsgSize, "grpc.max-msg-size", s.MaxMsgSize, "gRPC max message size.")
}
