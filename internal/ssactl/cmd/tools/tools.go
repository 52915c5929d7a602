// Package tools implements `ssactl tools`.
package tools

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	v1 "github.com/kiosk404/sankhya-agent/internal/ssa/handler/v1"
	"github.com/kiosk404/sankhya-agent/internal/ssactl/cmd/util"
	"github.com/kiosk404/sankhya-agent/pkg/cli/genericclioptions"
)

func NewCmdTools(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect and reload the agent tool registry",
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	cmd.AddCommand(newCmdList(f, ioStreams))
	cmd.AddCommand(newCmdReload(f, ioStreams))
	return cmd
}

type listOptions struct {
	Wide bool

	factory util.Factory
	genericclioptions.IOStreams
}

func newCmdList(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &listOptions{factory: f, IOStreams: ioStreams}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the tools the agent can call",
		Example: heredoc.Doc(`
			# Tools with their sources
			ssactl tools list

			# Include parameters
			ssactl tools list --wide`),
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			util.CheckErr(o.Run(cmd.Context()))
		},
	}
	cmd.Flags().BoolVar(&o.Wide, "wide", o.Wide, "Show the parameters of each tool.")
	return cmd
}

func (o *listOptions) Run(ctx context.Context) error {
	cli, err := o.factory.APIClient()
	if err != nil {
		return err
	}
	resp, err := cli.ListTools(orBackground(ctx))
	if err != nil {
		return err
	}
	printTools(o.Out, resp, o.Wide)
	return nil
}

type reloadOptions struct {
	factory util.Factory
	genericclioptions.IOStreams
}

func newCmdReload(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &reloadOptions{factory: f, IOStreams: ioStreams}
	return &cobra.Command{
		Use:   "reload",
		Short: "Rescan skill sources and swap in a new tool snapshot",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			util.CheckErr(o.Run(cmd.Context()))
		},
	}
}

func (o *reloadOptions) Run(ctx context.Context) error {
	cli, err := o.factory.APIClient()
	if err != nil {
		return err
	}
	resp, err := cli.ReloadTools(orBackground(ctx))
	if err != nil {
		return err
	}
	fmt.Fprintf(o.Out, "%s snapshot %d loaded with %d tools\n", color.GreenString("==>"), resp.Version, len(resp.Tools))
	printLoadErrors(o.Out, resp.Errors)
	return nil
}

func printTools(w io.Writer, resp *v1.ToolListResponse, wide bool) {
	table := uitable.New()
	table.MaxColWidth = 60
	table.Wrap = true
	if wide {
		table.AddRow("NAME", "SOURCE", "PARAMS", "DESCRIPTION")
	} else {
		table.AddRow("NAME", "SOURCE", "DESCRIPTION")
	}
	for _, t := range resp.Tools {
		if wide {
			table.AddRow(t.Name, t.Source, formatParams(t.Params), t.Description)
		} else {
			table.AddRow(t.Name, t.Source, t.Description)
		}
	}
	fmt.Fprintln(w, table)
	fmt.Fprintf(w, "\nsnapshot %d, loaded at %s\n", resp.Version, resp.LoadedAt)
	printLoadErrors(w, resp.Errors)
}

func formatParams(params []v1.ParamResponse) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		s := p.Name + ":" + p.Type
		if !p.Required {
			s += "?"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

func printLoadErrors(w io.Writer, errs []v1.LoadErrorInfo) {
	for _, e := range errs {
		fmt.Fprintf(w, "%s %s/%s: %s\n", color.YellowString("skipped"), e.Source, e.Module, e.Error)
	}
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
