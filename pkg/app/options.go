package app

import (
	"github.com/kiosk404/sankhya-agent/pkg/utils/cliflag"
)

// CliOptions are the command line options of an application.
type CliOptions interface {
	Flags() (fss cliflag.NamedFlagSets)
	Validate() []error
}

// CompleteableOptions fill derived defaults after flags and config are read.
type CompleteableOptions interface {
	Complete() error
}

// PrintableOptions render the effective configuration for the startup log.
type PrintableOptions interface {
	String() string
}
