// Package app builds a cobra command from an options struct: flags grouped
// in named sections, a viper-backed config file and environment overrides,
// then Complete, Validate and the run function.
package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/kiosk404/sankhya-agent/pkg/logger"
	"github.com/kiosk404/sankhya-agent/pkg/utils/cliflag"
	"github.com/kiosk404/sankhya-agent/pkg/version"
	"github.com/kiosk404/sankhya-agent/pkg/version/verflag"
)

var progressMessage = color.GreenString("==>")

// RunFunc is the application entry point once options are ready.
type RunFunc func(basename string) error

// Option configures an App.
type Option func(*App)

type App struct {
	basename    string
	name        string
	description string
	options     CliOptions
	runFunc     RunFunc
	silence     bool
	noVersion   bool
	noConfig    bool
	args        cobra.PositionalArgs
	cmd         *cobra.Command
}

func WithOptions(opt CliOptions) Option {
	return func(a *App) { a.options = opt }
}

func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithSilence suppresses the startup banner and the option dump.
func WithSilence() Option {
	return func(a *App) { a.silence = true }
}

func WithNoVersion() Option {
	return func(a *App) { a.noVersion = true }
}

func WithNoConfig() Option {
	return func(a *App) { a.noConfig = true }
}

func WithValidArgs(args cobra.PositionalArgs) Option {
	return func(a *App) { a.args = args }
}

// WithDefaultValidArgs rejects any positional argument.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

func NewApp(name, basename string, opts ...Option) *App {
	a := &App{name: name, basename: basename}
	for _, o := range opts {
		o(a)
	}
	a.buildCommand()
	return a
}

// Command returns the root cobra command.
func (a *App) Command() *cobra.Command { return a.cmd }

// CommandOption configures a sub-command.
type CommandOption func(*subCommand)

type subCommand struct {
	silence bool
	prepare func()
}

// WithCommandSilence suppresses the banner of the sub-command.
func WithCommandSilence() CommandOption {
	return func(s *subCommand) { s.silence = true }
}

// WithCommandPrepare runs fn before the options are read and completed.
func WithCommandPrepare(fn func()) CommandOption {
	return func(s *subCommand) { s.prepare = fn }
}

// AddCommand adds a sub-command sharing the root options and config file.
func (a *App) AddCommand(use, short string, run RunFunc, opts ...CommandOption) {
	sc := &subCommand{}
	for _, o := range opts {
		o(sc)
	}
	a.cmd.AddCommand(&cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sc.prepare != nil {
				sc.prepare()
			}
			return a.prepareAndRun(cmd, run, a.silence || sc.silence)
		},
	})
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.basename,
		Short:         a.name,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          a.args,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true
	cmd.PersistentFlags().SetNormalizeFunc(cliflag.WordSepNormalizeFunc)

	var namedFlagSets cliflag.NamedFlagSets
	if a.options != nil {
		namedFlagSets = a.options.Flags()
		for _, f := range namedFlagSets.FlagSets {
			cmd.PersistentFlags().AddFlagSet(f)
		}
	}
	if !a.noVersion {
		verflag.AddFlags(namedFlagSets.FlagSet("global"))
	}
	if !a.noConfig {
		addConfigFlag(a.basename, namedFlagSets.FlagSet("global"))
	}
	namedFlagSets.FlagSet("global").BoolP("help", "h", false, fmt.Sprintf("Help for %s.", a.basename))
	cmd.PersistentFlags().AddFlagSet(namedFlagSets.FlagSet("global"))

	if a.runFunc != nil {
		cmd.RunE = func(cmd *cobra.Command, _ []string) error {
			return a.prepareAndRun(cmd, a.runFunc, a.silence)
		}
	}
	addCmdTemplate(cmd, namedFlagSets)
	a.cmd = cmd
}

// Run executes the command and exits non-zero on failure.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Printf("%v %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

func (a *App) prepareAndRun(cmd *cobra.Command, run RunFunc, silence bool) error {
	if !a.noVersion {
		verflag.PrintAndExitIfRequested()
	}
	if !a.noConfig {
		if err := viper.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
			return err
		}
		if a.options != nil {
			if err := viper.Unmarshal(a.options); err != nil {
				return err
			}
		}
	}
	if !silence {
		logger.Info("%v Starting %s ...", progressMessage, a.name)
		if !a.noVersion {
			logger.Info("%v Version: `%s`", progressMessage, version.Get().ToJSON())
		}
		if !a.noConfig && viper.ConfigFileUsed() != "" {
			logger.Info("%v Config file used: `%s`", progressMessage, viper.ConfigFileUsed())
		}
	}
	if a.options != nil {
		if err := a.applyOptionRules(silence); err != nil {
			return err
		}
	}
	if run == nil {
		return nil
	}
	return run(a.basename)
}

func (a *App) applyOptionRules(silence bool) error {
	if c, ok := a.options.(CompleteableOptions); ok {
		if err := c.Complete(); err != nil {
			return err
		}
	}
	if errs := a.options.Validate(); len(errs) != 0 {
		return errors.Join(errs...)
	}
	if p, ok := a.options.(PrintableOptions); ok && !silence {
		logger.Info("%v Config: `%s`", progressMessage, p.String())
	}
	return nil
}

func addCmdTemplate(cmd *cobra.Command, fss cliflag.NamedFlagSets) {
	usageFmt := "Usage:\n  %s\n"
	cols, _, _ := term.GetSize(int(os.Stdout.Fd()))
	cmd.SetUsageFunc(func(cmd *cobra.Command) error {
		fmt.Fprintf(cmd.OutOrStderr(), usageFmt, cmd.UseLine())
		cliflag.PrintSections(cmd.OutOrStderr(), fss, cols)
		return nil
	})
	cmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n"+usageFmt, cmd.Long, cmd.UseLine())
		cliflag.PrintSections(cmd.OutOrStdout(), fss, cols)
	})
}
