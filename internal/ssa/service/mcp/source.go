package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	mcptool "github.com/cloudwego/eino-ext/components/tool/mcp"
	"github.com/cloudwego/eino/components/tool"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	"github.com/kiosk404/sankhya-agent/pkg/logger"
	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
	"github.com/kiosk404/sankhya-agent/pkg/version"
)

const SourceName = "mcp"

// Dialer opens a client for one configured server. The returned client is
// not yet initialized.
type Dialer func(ctx context.Context, name string, cfg *ServerConfig) (client.MCPClient, error)

// SkillSource imports the tools of the servers listed in mcp.json. Each
// server becomes one module. Connections are opened lazily and kept across
// reloads; the tool listing is refreshed on every reload and a failed
// connection is retried on the next one.
type SkillSource struct {
	cfg  *FileConfig
	dial Dialer

	mu    sync.Mutex
	conns map[string]client.MCPClient
}

var _ tools.SkillSource = (*SkillSource)(nil)

func NewSkillSource(cfg *FileConfig) *SkillSource {
	return NewSkillSourceWithDialer(cfg, DialServer)
}

func NewSkillSourceWithDialer(cfg *FileConfig, dial Dialer) *SkillSource {
	if cfg == nil {
		cfg = &FileConfig{MCPServers: map[string]*ServerConfig{}}
	}
	return &SkillSource{cfg: cfg.Complete(), dial: dial, conns: map[string]client.MCPClient{}}
}

func (s *SkillSource) Name() string { return SourceName }

func (s *SkillSource) Modules(ctx context.Context) ([]tools.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := s.cfg.Names()
	out := make([]tools.Module, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m := tools.Module{Name: name}
		m.Tools, m.Err = s.load(ctx, name)
		if m.Err != nil {
			s.drop(name)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *SkillSource) load(ctx context.Context, name string) ([]*tools.Tool, error) {
	cli, err := s.conn(ctx, name)
	if err != nil {
		return nil, err
	}
	cfg := s.cfg.MCPServers[name]

	listed, err := cli.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools of %q: %w", name, err)
	}
	runners, err := mcptool.GetTools(ctx, &mcptool.Config{Cli: cli, ToolNameList: cfg.ToolFilter})
	if err != nil {
		return nil, fmt.Errorf("load tools of %q: %w", name, err)
	}

	byName := make(map[string]tool.InvokableTool, len(runners))
	for _, r := range runners {
		inv, ok := r.(tool.InvokableTool)
		if !ok {
			continue
		}
		info, err := r.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe tool of %q: %w", name, err)
		}
		byName[info.Name] = inv
	}

	var out []*tools.Tool
	for _, lt := range listed.Tools {
		inv, ok := byName[lt.Name]
		if !ok {
			continue
		}
		out = append(out, RemoteTool(name, lt, inv))
	}
	logger.DebugX(ModuleName, "server %q: %d tools imported", name, len(out))
	return out, nil
}

// conn returns the cached client of a server, dialing and initializing it
// when needed. Must be called with s.mu held.
func (s *SkillSource) conn(ctx context.Context, name string) (client.MCPClient, error) {
	if cli, ok := s.conns[name]; ok {
		return cli, nil
	}
	cli, err := s.dial(ctx, name, s.cfg.MCPServers[name])
	if err != nil {
		return nil, fmt.Errorf("connect to %q: %w", name, err)
	}

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: "sankhya-agent", Version: version.Get().GitVersion}
	if _, err := cli.Initialize(ctx, req); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("initialize %q: %w", name, err)
	}
	s.conns[name] = cli
	logger.InfoX(ModuleName, "connected to MCP server %q", name)
	return cli, nil
}

// drop closes the client of a server. Must be called with s.mu held.
func (s *SkillSource) drop(name string) {
	cli, ok := s.conns[name]
	if !ok {
		return
	}
	if err := cli.Close(); err != nil {
		logger.WarnX(ModuleName, "close %q: %v", name, err)
	}
	delete(s.conns, name)
}

// Close disconnects every server.
func (s *SkillSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for name, cli := range s.conns {
		if err := cli.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", name, err))
		}
		delete(s.conns, name)
	}
	return errors.Join(errs...)
}

// DialServer opens a stdio or SSE client for cfg.
func DialServer(ctx context.Context, name string, cfg *ServerConfig) (client.MCPClient, error) {
	switch cfg.Transport {
	case TransportStdio, "":
		return client.NewStdioMCPClient(cfg.Command, cfg.Env, cfg.Args...)
	case TransportSSE:
		cli, err := client.NewSSEMCPClient(cfg.URL)
		if err != nil {
			return nil, err
		}
		if err := cli.Start(ctx); err != nil {
			return nil, fmt.Errorf("start sse transport: %w", err)
		}
		return cli, nil
	default:
		return nil, fmt.Errorf("server %q: unknown transport %q", name, cfg.Transport)
	}
}

var schemaKinds = map[string]tools.Kind{
	"string":  tools.KindString,
	"integer": tools.KindInteger,
	"number":  tools.KindNumber,
	"boolean": tools.KindBoolean,
	"array":   tools.KindArray,
	"object":  tools.KindObject,
}

// RemoteTool wraps one listed MCP tool. Parameters mirror the remote input
// schema; calls are forwarded as JSON through inv.
func RemoteTool(server string, lt mcp.Tool, inv tool.InvokableTool) *tools.Tool {
	required := make(map[string]bool, len(lt.InputSchema.Required))
	for _, r := range lt.InputSchema.Required {
		required[r] = true
	}
	names := make([]string, 0, len(lt.InputSchema.Properties))
	for n := range lt.InputSchema.Properties {
		names = append(names, n)
	}
	sort.Strings(names)

	params := make([]tools.ParamSpec, 0, len(names))
	for _, n := range names {
		prop, _ := lt.InputSchema.Properties[n].(map[string]any)
		typ, _ := prop["type"].(string)
		kind, ok := schemaKinds[typ]
		if !ok {
			kind = tools.KindString
		}
		var p tools.ParamSpec
		if required[n] {
			p = tools.Param(n, kind)
		} else {
			p = tools.Optional(n, kind, nil)
		}
		// the remote schema is authoritative over the naming heuristic
		p.Kind = kind
		if desc, _ := prop["description"].(string); desc != "" {
			p.Description = desc
		}
		params = append(params, p)
	}

	return &tools.Tool{
		Name:   lt.Name,
		Doc:    lt.Description,
		Params: params,
		Source: SourceName + "/" + server,
		Handler: func(ctx context.Context, args tools.Args) (string, error) {
			payload := make(map[string]any, len(args))
			for k, v := range args {
				if v != nil {
					payload[k] = v
				}
			}
			body, err := json.MarshalString(payload)
			if err != nil {
				return "", err
			}
			return inv.InvokableRun(ctx, body)
		},
	}
}
