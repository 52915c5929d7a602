// Package options holds the command line options of the ssa server.
package options

import (
	genericoptions "github.com/kiosk404/sankhya-agent/internal/pkg/options"
	"github.com/kiosk404/sankhya-agent/pkg/logger"
	"github.com/kiosk404/sankhya-agent/pkg/utils/cliflag"
	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
)

type Options struct {
	GRPCOptions             *genericoptions.GRPCOptions      `json:"grpc"      mapstructure:"grpc"`
	GenericServerRunOptions *genericoptions.ServerRunOptions `json:"server"    mapstructure:"server"`
	LLMOptions              *genericoptions.LLMOptions       `json:"llm"       mapstructure:"llm"`
	SkillsOptions           *genericoptions.SkillsOptions    `json:"skills"    mapstructure:"skills"`
	LogOptions              *genericoptions.LogOptions       `json:"log"       mapstructure:"log"`
	GatewayOptions          *GatewayOptions                  `json:"gateway"   mapstructure:"gateway"`
	RulesOptions            *RulesOptions                    `json:"rules"     mapstructure:"rules"`
	KnowledgeOptions        *KnowledgeOptions                `json:"knowledge" mapstructure:"knowledge"`
	AgentOptions            *AgentOptions                    `json:"agent"     mapstructure:"agent"`
	AuthOptions             *AuthOptions                     `json:"auth"      mapstructure:"auth"`
}

func NewOptions() *Options {
	return &Options{
		GRPCOptions:             genericoptions.NewGRPCOptions(),
		GenericServerRunOptions: genericoptions.NewServerRunOptions(),
		LLMOptions:              genericoptions.NewLLMOptions(),
		SkillsOptions:           genericoptions.NewSkillsOptions(),
		LogOptions:              genericoptions.NewLogOptions(),
		GatewayOptions:          NewGatewayOptions(),
		RulesOptions:            NewRulesOptions(),
		KnowledgeOptions:        NewKnowledgeOptions(),
		AgentOptions:            NewAgentOptions(),
		AuthOptions:             NewAuthOptions(),
	}
}

func (o *Options) Flags() (fss cliflag.NamedFlagSets) {
	o.GenericServerRunOptions.AddFlags(fss.FlagSet("generic"))
	o.GRPCOptions.AddFlags(fss.FlagSet("grpc"))
	o.AuthOptions.AddFlags(fss.FlagSet("auth"))
	o.LLMOptions.AddFlags(fss.FlagSet("llm"))
	o.AgentOptions.AddFlags(fss.FlagSet("agent"))
	o.GatewayOptions.AddFlags(fss.FlagSet("gateway"))
	o.SkillsOptions.AddFlags(fss.FlagSet("skills"))
	o.RulesOptions.AddFlags(fss.FlagSet("rules"))
	o.KnowledgeOptions.AddFlags(fss.FlagSet("knowledge"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *Options) Validate() []error {
	var errs []error
	errs = append(errs, o.GenericServerRunOptions.Validate()...)
	errs = append(errs, o.GRPCOptions.Validate()...)
	errs = append(errs, o.AuthOptions.Validate()...)
	errs = append(errs, o.LLMOptions.Validate()...)
	errs = append(errs, o.AgentOptions.Validate()...)
	errs = append(errs, o.GatewayOptions.Validate()...)
	errs = append(errs, o.SkillsOptions.Validate()...)
	errs = append(errs, o.RulesOptions.Validate()...)
	errs = append(errs, o.KnowledgeOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	return errs
}

// Complete applies the logging options, which everything after depends on.
func (o *Options) Complete() error {
	if err := logger.SetLevel(o.LogOptions.Level); err != nil {
		return err
	}
	return logger.InitLog(o.LogOptions.File)
}

func (o *Options) String() string {
	data, _ := json.Marshal(o)

	return string(data)
}
