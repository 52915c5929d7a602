// Package mcp connects the tool registry to the Model Context Protocol in
// both directions: Server exposes the registry to MCP clients and
// SkillSource imports the tools of external MCP servers as a skill source.
package mcp

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
)

const ModuleName = "mcp"

// Transports.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// FileConfig is the mcp.json document, in the Claude Desktop layout:
//
//	{
//	  "mcpServers": {
//	    "files": {"command": "npx", "args": ["-y", "@modelcontextprotocol/server-filesystem", "/tmp"]},
//	    "crm": {"transport": "sse", "url": "http://localhost:8080/sse"}
//	  }
//	}
type FileConfig struct {
	MCPServers map[string]*ServerConfig `json:"mcpServers"`
}

// ServerConfig is one external MCP server.
type ServerConfig struct {
	// Transport is "stdio" (default) or "sse".
	Transport string `json:"transport,omitempty"`

	// stdio
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
	Env     []string `json:"env,omitempty"`

	// sse
	URL string `json:"url,omitempty"`

	// ToolFilter restricts the imported tools; empty imports all of them.
	ToolFilter []string `json:"toolFilter,omitempty"`
}

// LoadConfig reads mcp.json. A missing file is an empty config.
func LoadConfig(path string) (*FileConfig, error) {
	cfg := &FileConfig{MCPServers: map[string]*ServerConfig{}}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read MCP config %q: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse MCP config %q: %w", path, err)
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = map[string]*ServerConfig{}
	}
	return cfg, nil
}

// Complete fills the default transport.
func (c *FileConfig) Complete() *FileConfig {
	for _, srv := range c.MCPServers {
		if srv.Transport == "" {
			srv.Transport = TransportStdio
		}
	}
	return c
}

// Validate reports every misconfigured server.
func (c *FileConfig) Validate() []error {
	var errs []error
	for _, name := range c.Names() {
		srv := c.MCPServers[name]
		switch srv.Transport {
		case TransportStdio, "":
			if srv.Command == "" {
				errs = append(errs, fmt.Errorf("mcpServers.%s: command is required for stdio transport", name))
			}
		case TransportSSE:
			if srv.URL == "" {
				errs = append(errs, fmt.Errorf("mcpServers.%s: url is required for sse transport", name))
			}
		default:
			errs = append(errs, fmt.Errorf("mcpServers.%s: unsupported transport %q", name, srv.Transport))
		}
	}
	return errs
}

// Names returns the server names sorted.
func (c *FileConfig) Names() []string {
	names := make([]string, 0, len(c.MCPServers))
	for n := range c.MCPServers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
