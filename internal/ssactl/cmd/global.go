package cmd

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/kiosk404/sankhya-agent/internal/ssactl/cmd/util"
)

func addGlobalFlags(flags *pflag.FlagSet) {
	flags.String(util.FlagServer, "http://127.0.0.1:11789", "Address of the ssa API server.")
	flags.String(util.FlagToken, "${SSA_API_TOKEN}", "Bearer token, or a ${ENV} reference to one.")
	flags.Duration(util.FlagTimeout, 5*time.Minute, "HTTP timeout of each API request.")
}
