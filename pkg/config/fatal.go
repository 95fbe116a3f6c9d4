package config

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ExitCodeConfig is the process exit status for an unusable configuration.
const ExitCodeConfig = 2

var (
	exit             = os.Exit
	stderr io.Writer = os.Stderr
)

// MustResolve resolves settings or reports the problem to the operator and
// terminates the process. It never returns an error: a test run without a
// usable browser cannot do anything useful.
func MustResolve(cli Overrides, getenv func(string) string) *Settings {
	settings, err := Resolve(cli, getenv)
	if err == nil {
		return settings
	}

	fmt.Fprintf(stderr, "steady: configuration error: %v\n", err)
	fmt.Fprintf(stderr, "Select a browser with --browser or %s. Supported browsers: %s\n",
		EnvBrowser, strings.Join((&Settings{}).Aliases(), ", "))
	exit(ExitCodeConfig)
	return nil
}
