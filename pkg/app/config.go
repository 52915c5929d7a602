package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kiosk404/sankhya-agent/pkg/logger"
)

const configFlagName = "config"

var cfgFile string

// addConfigFlag registers --config and reads the file (or the first
// <basename>.yaml found in the search path) before any command runs.
// Environment variables prefixed with the upper-cased basename override
// file values: SSA_LLM_PROVIDER sets llm.provider.
func addConfigFlag(basename string, fs *pflag.FlagSet) {
	fs.AddFlag(pflag.Lookup(configFlagName))

	viper.AutomaticEnv()
	viper.SetEnvPrefix(strings.ReplaceAll(strings.ToUpper(basename), "-", "_"))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	cobra.OnInitialize(func() {
		if err := LoadConfig(cfgFile, basename); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read configuration file(%s): %v\n", cfgFile, err)
			os.Exit(1)
		}
	})
}

// LoadConfig reads cfg, or searches ".", "conf", "$HOME/.<basename>" and
// "/etc/<basename>" for <basename>.{yaml,json,toml}. Not finding a file is
// not an error.
func LoadConfig(cfg, basename string) error {
	if cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("conf")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, "."+basename))
		}
		viper.AddConfigPath(filepath.Join("/etc", basename))
		viper.SetConfigName(basename)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfg == "" && errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	logger.Debug("using config file %s", viper.ConfigFileUsed())
	return nil
}

func init() {
	pflag.StringVarP(&cfgFile, configFlagName, "c", cfgFile, "Read configuration from specified `FILE`, "+
		"support JSON, TOML, YAML, HCL, or Java properties formats.")
}
