package util

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

const DefaultErrorExitCode = 1

var fatalErrHandler = fatal

// BehaviorOnFatal replaces the exit behavior of CheckErr. Tests use it to
// observe failures without exiting.
func BehaviorOnFatal(f func(string, int)) {
	fatalErrHandler = f
}

// DefaultBehaviorOnFatal restores the exit behavior.
func DefaultBehaviorOnFatal() {
	fatalErrHandler = fatal
}

func fatal(msg string, code int) {
	if len(msg) > 0 {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(code)
}

// CheckErr prints err and exits when it is not nil.
func CheckErr(err error) {
	if err == nil {
		return
	}
	fatalErrHandler(fmt.Sprintf("%s %v", color.RedString("error:"), err), DefaultErrorExitCode)
}
