// Package chat implements `ssactl chat`.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/kiosk404/sankhya-agent/internal/ssactl/cmd/util"
	"github.com/kiosk404/sankhya-agent/pkg/cli/genericclioptions"
)

var chatExample = heredoc.Doc(`
	# Interactive chat
	ssactl chat

	# Single question, streamed to stdout
	ssactl chat "Quais pedidos do parceiro 123 estão pendentes?"

	# Single question against a remote server, with turn details
	ssactl chat --server=http://erp-agent:11789 --details "Estoque do produto 10"`)

type ChatOptions struct {
	Model       string
	Details     bool
	TurnTimeout time.Duration

	factory util.Factory
	genericclioptions.IOStreams
}

func NewChatOptions(f util.Factory, ioStreams genericclioptions.IOStreams) *ChatOptions {
	return &ChatOptions{
		factory:     f,
		IOStreams:   ioStreams,
		Model:       "sankhya-agent",
		TurnTimeout: 180 * time.Second,
	}
}

func NewCmdChat(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := NewChatOptions(f, ioStreams)

	cmd := &cobra.Command{
		Use:                   "chat [message]",
		DisableFlagsInUseLine: true,
		Short:                 "Chat with the ERP agent",
		Long: heredoc.Doc(`
			Start a conversation with the Sankhya agent.

			Without arguments an interactive session opens; the conversation
			history is kept until /clear. With a message argument the message is
			sent once and the streamed answer printed.`),
		Example: chatExample,
		Run: func(cmd *cobra.Command, args []string) {
			util.CheckErr(o.Validate())
			util.CheckErr(o.Run(cmd.Context(), args))
		},
	}

	cmd.Flags().StringVar(&o.Model, "model", o.Model, "Model name sent with each request.")
	cmd.Flags().BoolVar(&o.Details, "details", o.Details, "Print the outcome and tool calls of each turn.")
	cmd.Flags().DurationVar(&o.TurnTimeout, "turn-timeout", o.TurnTimeout, "Maximum time to wait for one answer.")

	return cmd
}

func (o *ChatOptions) Validate() error {
	if o.TurnTimeout <= 0 {
		return fmt.Errorf("--turn-timeout must be positive")
	}
	return nil
}

func (o *ChatOptions) Run(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cli, err := o.factory.APIClient()
	if err != nil {
		return err
	}
	cli.Model = o.Model

	if len(args) > 0 {
		return o.runOnce(ctx, cli, strings.Join(args, " "))
	}
	return newSession(cli, o.IOStreams, o.TurnTimeout, o.Details).run(ctx)
}
