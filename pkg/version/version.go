// Package version carries the build information injected through ldflags:
//
//	-X github.com/kiosk404/sankhya-agent/pkg/version.GitVersion=v0.3.0
package version

import (
	"fmt"
	"runtime"

	"github.com/gosuri/uitable"

	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
)

var (
	GitVersion   = "v0.0.0-dev"
	GitCommit    = "unknown"
	GitTreeState = ""
	BuildDate    = "1970-01-01T00:00:00Z"
)

// Info is the build information of the running binary.
type Info struct {
	GitVersion   string `json:"gitVersion"`
	GitCommit    string `json:"gitCommit"`
	GitTreeState string `json:"gitTreeState"`
	BuildDate    string `json:"buildDate"`
	GoVersion    string `json:"goVersion"`
	Compiler     string `json:"compiler"`
	Platform     string `json:"platform"`
}

func (info Info) String() string {
	return info.GitVersion
}

// ToJSON renders the info as one JSON line.
func (info Info) ToJSON() string {
	s, _ := json.MarshalString(info)
	return s
}

// Text renders the info as an aligned table.
func (info Info) Text() string {
	table := uitable.New()
	table.RightAlign(0)
	table.MaxColWidth = 80
	table.Separator = " "
	table.AddRow("gitVersion:", info.GitVersion)
	table.AddRow("gitCommit:", info.GitCommit)
	table.AddRow("gitTreeState:", info.GitTreeState)
	table.AddRow("buildDate:", info.BuildDate)
	table.AddRow("goVersion:", info.GoVersion)
	table.AddRow("compiler:", info.Compiler)
	table.AddRow("platform:", info.Platform)
	return table.String()
}

func Get() Info {
	return Info{
		GitVersion:   GitVersion,
		GitCommit:    GitCommit,
		GitTreeState: GitTreeState,
		BuildDate:    BuildDate,
		GoVersion:    runtime.Version(),
		Compiler:     runtime.Compiler,
		Platform:     fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
