// Package cmd builds the ssactl command tree.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiosk404/sankhya-agent/internal/ssactl/cmd/chat"
	"github.com/kiosk404/sankhya-agent/internal/ssactl/cmd/kb"
	"github.com/kiosk404/sankhya-agent/internal/ssactl/cmd/rules"
	"github.com/kiosk404/sankhya-agent/internal/ssactl/cmd/tools"
	"github.com/kiosk404/sankhya-agent/internal/ssactl/cmd/util"
	"github.com/kiosk404/sankhya-agent/pkg/cli/genericclioptions"
	"github.com/kiosk404/sankhya-agent/pkg/utils/cliflag"
	"github.com/kiosk404/sankhya-agent/pkg/version/verflag"
)

const envPrefix = "SSACTL"

// NewDefaultSSACtlCommand creates the `ssactl` command with default arguments.
func NewDefaultSSACtlCommand() *cobra.Command {
	return NewSSACtlCommand(os.Stdin, os.Stdout, os.Stderr)
}

func NewSSACtlCommand(in io.Reader, out, err io.Writer) *cobra.Command {
	cmds := &cobra.Command{
		Use:   "ssactl",
		Short: "ssactl talks to the Sankhya ERP agent",
		Long: fmt.Sprintf("%s\n%s", Banner(), heredoc.Doc(`
			ssactl is the command line client of the ssa server.

			It chats with the agent, inspects and reloads the tool registry,
			reviews the business rules the agent proposed, and maintains the
			local help-center knowledge base.`)),
		SilenceUsage: true,
		Run:          runHelp,
	}
	cmds.SetIn(in)
	cmds.SetOut(out)
	cmds.SetErr(err)

	flags := cmds.PersistentFlags()
	flags.SetNormalizeFunc(cliflag.WarnWordSepNormalizeFunc) // Warn for "_" flags

	// Normalize all flags that are coming from other packages or pre-configurations
	flags.SetNormalizeFunc(cliflag.WordSepNormalizeFunc)

	addGlobalFlags(flags)
	verflag.AddFlags(flags)

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(flags)

	cmds.PersistentPreRun = func(*cobra.Command, []string) {
		verflag.PrintAndExitIfRequested()
	}

	// From this point and forward we get warnings on flags that contain "_" separators
	cmds.SetGlobalNormalizationFunc(cliflag.WarnWordSepNormalizeFunc)

	ioStreams := genericclioptions.IOStreams{In: in, Out: out, ErrOut: err}
	f := util.NewFactory(v)

	groups := []struct {
		group    *cobra.Group
		commands []*cobra.Command
	}{
		{
			group:    &cobra.Group{ID: "basic", Title: "Basic Commands:"},
			commands: []*cobra.Command{chat.NewCmdChat(f, ioStreams)},
		},
		{
			group: &cobra.Group{ID: "manage", Title: "Management Commands:"},
			commands: []*cobra.Command{
				tools.NewCmdTools(f, ioStreams),
				rules.NewCmdRules(f, ioStreams),
				kb.NewCmdKB(ioStreams),
			},
		},
	}
	for _, g := range groups {
		cmds.AddGroup(g.group)
		for _, c := range g.commands {
			c.GroupID = g.group.ID
			cmds.AddCommand(c)
		}
	}

	return cmds
}

func runHelp(cmd *cobra.Command, _ []string) {
	_ = cmd.Help()
}
