package main

import (
	"os"

	"github.com/kiosk404/sankhya-agent/internal/ssactl/cmd"
)

func main() {
	command := cmd.NewDefaultSSACtlCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}
