// Package verflag defines the --version flag shared by every binary.
package verflag

import (
	"fmt"
	"os"
	"strconv"

	flag "github.com/spf13/pflag"

	"github.com/kiosk404/sankhya-agent/pkg/version"
)

type versionValue int

const (
	VersionFalse versionValue = 0
	VersionTrue  versionValue = 1
	VersionRaw   versionValue = 2
)

const (
	strRawVersion   = "raw"
	versionFlagName = "version"
)

func (v *versionValue) IsBoolFlag() bool { return true }

func (v *versionValue) Get() interface{} { return *v }

func (v *versionValue) Set(s string) error {
	if s == strRawVersion {
		*v = VersionRaw
		return nil
	}
	b, err := strconv.ParseBool(s)
	if b {
		*v = VersionTrue
	} else {
		*v = VersionFalse
	}
	return err
}

func (v *versionValue) String() string {
	if *v == VersionRaw {
		return strRawVersion
	}
	return fmt.Sprintf("%v", *v == VersionTrue)
}

func (v *versionValue) Type() string { return "version" }

var versionFlag = VersionFalse

// AddFlags registers --version on fs.
func AddFlags(fs *flag.FlagSet) {
	fs.Var(&versionFlag, versionFlagName, "Print version information and quit. Use --version=raw for JSON.")
	fs.Lookup(versionFlagName).NoOptDefVal = "true"
}

// PrintAndExitIfRequested prints the version and exits when --version was
// passed.
func PrintAndExitIfRequested() {
	switch versionFlag {
	case VersionRaw:
		fmt.Println(version.Get().ToJSON())
		os.Exit(0)
	case VersionTrue:
		fmt.Println(version.Get().Text())
		os.Exit(0)
	}
}
