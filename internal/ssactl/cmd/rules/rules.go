// Package rules implements `ssactl rules`.
package rules

import (
	"context"
	"fmt"
	"io"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	v1 "github.com/kiosk404/sankhya-agent/internal/ssa/handler/v1"
	"github.com/kiosk404/sankhya-agent/internal/ssactl/cmd/util"
	"github.com/kiosk404/sankhya-agent/pkg/cli/genericclioptions"
)

func NewCmdRules(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Review the business rules the agent has learned",
		Long: heredoc.Doc(`
			Rules proposed by the agent wait for a human approval before they
			are applied to generated SQL.`),
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	cmd.AddCommand(newCmdList(f, ioStreams))
	cmd.AddCommand(newCmdApprove(f, ioStreams))
	return cmd
}

type listOptions struct {
	Pending bool

	factory util.Factory
	genericclioptions.IOStreams
}

func newCmdList(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &listOptions{factory: f, IOStreams: ioStreams}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active and pending rules",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			util.CheckErr(o.Run(cmd.Context()))
		},
	}
	cmd.Flags().BoolVar(&o.Pending, "pending", o.Pending, "Only show rules waiting for approval.")
	return cmd
}

func (o *listOptions) Run(ctx context.Context) error {
	cli, err := o.factory.APIClient()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	resp, err := cli.ListRules(ctx)
	if err != nil {
		return err
	}
	if !o.Pending {
		printRules(o.Out, "Active rules", resp.Active, false)
		fmt.Fprintln(o.Out)
	}
	printRules(o.Out, "Pending rules", resp.Pending, true)
	return nil
}

func printRules(w io.Writer, title string, rules []v1.RuleResponse, pending bool) {
	fmt.Fprintf(w, "%s (%d)\n", color.New(color.Bold).Sprint(title), len(rules))
	if len(rules) == 0 {
		return
	}
	table := uitable.New()
	table.MaxColWidth = 70
	table.Wrap = true
	if pending {
		table.AddRow("ID", "CONDITION", "DESCRIPTION", "PROPOSED")
	} else {
		table.AddRow("ID", "CONDITION", "DESCRIPTION", "CATEGORY")
	}
	for _, r := range rules {
		last := r.Category
		if pending {
			last = r.ProposedAt
		}
		table.AddRow(r.ID, r.Condition, r.Description, last)
	}
	fmt.Fprintln(w, table)
}

type approveOptions struct {
	factory util.Factory
	genericclioptions.IOStreams
}

func newCmdApprove(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &approveOptions{factory: f, IOStreams: ioStreams}
	return &cobra.Command{
		Use:                   "approve RULE_ID",
		DisableFlagsInUseLine: true,
		Short:                 "Approve a pending rule",
		Example: heredoc.Doc(`
			# Approve a proposed rule
			ssactl rules approve rule_1700000000`),
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			util.CheckErr(o.Run(cmd.Context(), args[0]))
		},
	}
}

func (o *approveOptions) Run(ctx context.Context, id string) error {
	cli, err := o.factory.APIClient()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	rule, err := cli.ApproveRule(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(o.Out, "%s rule %s approved: %s\n", color.GreenString("==>"), rule.ID, rule.Description)
	return nil
}
