// Package ssa is the Sankhya agent server: an OpenAI-compatible chat API in
// front of the tool-calling controller, plus an MCP server over stdio.
package ssa

import (
	"os"

	"github.com/MakeNowJust/heredoc/v2"

	"github.com/kiosk404/sankhya-agent/internal/ssa/config"
	"github.com/kiosk404/sankhya-agent/internal/ssa/options"
	"github.com/kiosk404/sankhya-agent/pkg/app"
	"github.com/kiosk404/sankhya-agent/pkg/logger"
)

var commandDesc = heredoc.Doc(`
	The Sankhya agent answers ERP questions in natural language. It plans
	tool calls with the configured completion provider, runs guarded SQL and
	service calls against the Sankhya gateway, and falls back to deterministic
	answers when the provider is unavailable.`)

// NewApp creates the ssa application with the default options.
func NewApp(basename string) *app.App {
	opts := options.NewOptions()
	application := app.NewApp("Sankhya Agent Server",
		basename,
		app.WithOptions(opts),
		app.WithDescription(commandDesc),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts, Run)),
	)
	application.AddCommand("mcp", "Serve the tool registry to MCP clients over stdin/stdout",
		run(opts, RunMCP),
		app.WithCommandSilence(),
		// stdout carries the protocol
		app.WithCommandPrepare(func() { logger.SetConsole(os.Stderr) }),
	)
	return application
}

func run(opts *options.Options, serve func(*config.Config) error) app.RunFunc {
	return func(basename string) error {
		cfg, err := config.CreateConfigFromOptions(opts)
		if err != nil {
			return err
		}

		return serve(cfg)
	}
}
