package main

import (
	"io"
	"os"
	"time"

	"github.com/entrhq/steady/pkg/config"
	"github.com/entrhq/steady/pkg/logging"
	"github.com/spf13/cobra"
)

// cliFlags holds the flags shared by every command.
type cliFlags struct {
	configFile string
	browsers   []string
	hubURL     string
	direct     bool
	proxy      string
	timeout    time.Duration
	artifacts  string
	verbose    bool
}

// overrides turns the flags the user actually set into config overrides.
func (f *cliFlags) overrides(cmd *cobra.Command) config.Overrides {
	o := config.Overrides{
		ConfigFile: f.configFile,
		Browsers:   f.browsers,
		HubURL:     f.hubURL,
		Proxy:      f.proxy,
		Timeout:    f.timeout,
	}
	if cmd.Flags().Changed("direct") {
		direct := f.direct
		o.DirectConnect = &direct
	}
	return o
}

// logger writes to stderr in verbose mode and to the session log file
// otherwise.
func (f *cliFlags) logger(stderr io.Writer) *logging.Logger {
	if f.verbose {
		return logging.NewWriterLogger("steady", stderr)
	}
	l, _ := logging.NewLogger("steady")
	l.SetLevel(logging.LevelInfo)
	return l
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &cliFlags{}

	root := &cobra.Command{
		Use:           "steady",
		Short:         "Run resilient browser scenarios",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "settings file (default "+config.DefaultFile+", env "+config.EnvConfigFile+")")
	pf.StringSliceVar(&flags.browsers, "browser", nil, "browser alias or comma-separated list (env "+config.EnvBrowser+")")
	pf.StringVar(&flags.hubURL, "hub", "", "remote Playwright server URL (env "+config.EnvHubURL+")")
	pf.BoolVar(&flags.direct, "direct", false, "launch browsers locally even if a hub is configured")
	pf.StringVar(&flags.proxy, "proxy", "", "proxy server address (env "+config.EnvProxy+")")
	pf.DurationVar(&flags.timeout, "timeout", 0, "default retry timeout, e.g. 10s (env "+config.EnvTimeout+")")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log retries to stderr")

	root.AddCommand(runCmd(flags, stdout, stderr), browsersCmd(flags, stdout))
	return root
}

// resolve reports a bad configuration and exits, like any other entry point.
func resolve(flags *cliFlags, cmd *cobra.Command) *config.Settings {
	return config.MustResolve(flags.overrides(cmd), os.Getenv)
}
