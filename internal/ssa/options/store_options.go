package options

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/rules"
)

// RulesOptions select the business rule store.
type RulesOptions struct {
	Backend string `json:"backend" mapstructure:"backend"`
	// Path empty selects the backend default.
	Path string `json:"path" mapstructure:"path"`
}

func NewRulesOptions() *RulesOptions {
	return &RulesOptions{Backend: rules.BackendFile}
}

func (o *RulesOptions) Validate() []error {
	switch o.Backend {
	case rules.BackendFile, rules.BackendBolt:
		return nil
	default:
		return []error{fmt.Errorf("rules.backend %q: expected %s or %s", o.Backend, rules.BackendFile, rules.BackendBolt)}
	}
}

func (o *RulesOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Backend, "rules.backend", o.Backend, "Rule store backend: file (JSON document) or bolt.")
	fs.StringVar(&o.Path, "rules.path", o.Path, "Rule store location; empty uses knowledge/business_rules.{json,db}.")
}

func (o *RulesOptions) Config() *rules.Config {
	return &rules.Config{Backend: o.Backend, Path: o.Path}
}

// KnowledgeOptions locate the documentation folder and the article index.
type KnowledgeOptions struct {
	DocsDir string `json:"docs-dir" mapstructure:"docs-dir"`
	DB      string `json:"db"       mapstructure:"db"`
}

func NewKnowledgeOptions() *KnowledgeOptions {
	return &KnowledgeOptions{
		DocsDir: "docs",
		DB:      "knowledge/sankhya_knowledge.db",
	}
}

func (o *KnowledgeOptions) Validate() []error {
	if o.DB == "" {
		return []error{fmt.Errorf("knowledge.db is required")}
	}
	return nil
}

func (o *KnowledgeOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.DocsDir, "knowledge.docs-dir", o.DocsDir, "Directory of plain documentation files and schema_map.json.")
	fs.StringVar(&o.DB, "knowledge.db", o.DB, "SQLite index of help-center articles.")
}
