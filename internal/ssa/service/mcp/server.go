package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	toolschema "github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/schema"
	"github.com/kiosk404/sankhya-agent/pkg/logger"
	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
	"github.com/kiosk404/sankhya-agent/pkg/version"
)

const serverName = "sankhya-agent"

// Server exposes the tool registry to MCP clients. Every tools/call reloads
// the registry first, so a client sees skill edits without reconnecting; the
// advertised tool list follows whenever the reload changed the tool set.
type Server struct {
	reg *tools.Registry
	srv *server.MCPServer

	mu        sync.Mutex
	signature string
	names     []string
}

func NewServer(reg *tools.Registry) *Server {
	return &Server{
		reg: reg,
		srv: server.NewMCPServer(serverName, version.Get().GitVersion, server.WithToolCapabilities(true)),
	}
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer { return s.srv }

// Sync reloads the registry and republishes the tool list.
func (s *Server) Sync(ctx context.Context) error {
	if err := s.reg.Reload(ctx); err != nil {
		return err
	}
	s.publish(s.reg.Snapshot())
	return nil
}

func (s *Server) publish(snap *tools.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig := signature(snap)
	if s.names != nil && sig == s.signature {
		return
	}

	list := make([]server.ServerTool, 0, snap.Len())
	names := make([]string, 0, snap.Len())
	for _, t := range snap.List() {
		st, err := s.serverTool(t)
		if err != nil {
			logger.WarnX(ModuleName, "tool %s not published: %v", t.Name, err)
			continue
		}
		list = append(list, st)
		names = append(names, t.Name)
	}
	s.srv.SetTools(list...)
	s.signature = sig
	s.names = names
	logger.DebugX(ModuleName, "published %d tools (snapshot %d)", len(list), snap.Version())
}

// signature identifies the advertised surface of a snapshot. Reloads build
// fresh tool values, so pointers cannot be compared.
func signature(snap *tools.Snapshot) string {
	var b strings.Builder
	for _, t := range snap.List() {
		fs := toolschema.FromTool(t)
		b.WriteString(fs.Name)
		b.WriteByte(0)
		b.WriteString(fs.Description)
		for _, p := range fs.Params {
			fmt.Fprintf(&b, "\x00%s:%s:%t", p.Name, p.Kind, p.Required)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Published lists the tool names currently advertised.
func (s *Server) Published() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...)
}

func (s *Server) serverTool(t *tools.Tool) (server.ServerTool, error) {
	fs := toolschema.FromTool(t)
	raw, err := json.Marshal(toolschema.JSONSchema(fs))
	if err != nil {
		return server.ServerTool{}, err
	}
	return server.ServerTool{
		Tool:    mcp.NewToolWithRawSchema(fs.Name, fs.Description, raw),
		Handler: s.handleCall,
	}, nil
}

func (s *Server) handleCall(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.Params.Name
	if err := s.reg.Reload(ctx); err != nil {
		logger.WarnX(ModuleName, "reload before %s failed, using the previous snapshot: %v", name, err)
	}
	snap := s.reg.Snapshot()

	t, ok := snap.Get(name)
	if !ok {
		s.publish(snap)
		return mcp.NewToolResultError(fmt.Sprintf("Ferramenta '%s' não encontrada.", name)), nil
	}
	out, err := t.Invoke(ctx, req.GetArguments())
	s.publish(snap)
	if err != nil {
		return mcp.NewToolResultError("Erro na execução da ferramenta: " + err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

// ServeStdio publishes the registry and serves MCP over stdin/stdout until
// the client disconnects.
func (s *Server) ServeStdio(ctx context.Context) error {
	if err := s.Sync(ctx); err != nil {
		return fmt.Errorf("load tools: %w", err)
	}
	logger.InfoX(ModuleName, "serving %d tools over stdio", len(s.Published()))
	return server.ServeStdio(s.srv)
}
