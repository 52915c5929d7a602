package rules

import (
	"fmt"
	"strings"
)

const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// Config selects the rule store backend.
type Config struct {
	Backend string
	Path    string
}

type completedConfig struct {
	*Config
}

func (c *Config) Complete() completedConfig {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendFile
	}
	if c.Path == "" {
		if c.Backend == BackendBolt {
			c.Path = "knowledge/business_rules.db"
		} else {
			c.Path = "knowledge/business_rules.json"
		}
	}
	return completedConfig{c}
}

// New opens the configured store. The returned close func is never nil.
func (c completedConfig) New() (Store, func() error, error) {
	switch c.Backend {
	case BackendFile:
		return NewFileStore(c.Path), func() error { return nil }, nil
	case BackendBolt:
		s, err := OpenBoltStore(c.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown rule store backend %q", c.Backend)
	}
}
