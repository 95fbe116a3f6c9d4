package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variables read by Resolve.
const (
	EnvBrowser       = "STEADY_BROWSER"
	EnvHubURL        = "STEADY_HUB_URL"
	EnvDirectConnect = "STEADY_DIRECT_CONNECT"
	EnvProxy         = "STEADY_PROXY"
	EnvTimeout       = "STEADY_TIMEOUT"
	EnvConfigFile    = "STEADY_CONFIG"
)

// Overrides are the values given on the command line. Zero values mean
// "not given".
type Overrides struct {
	ConfigFile    string
	Browsers      []string
	HubURL        string
	DirectConnect *bool
	Proxy         string
	Timeout       time.Duration
}

// Resolve builds Settings with precedence:
// CLI flags > Environment variables > Config file > Defaults
func Resolve(cli Overrides, getenv func(string) string) (*Settings, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	// Config file path: flag, then env, then the default name in the working directory
	path := cli.ConfigFile
	explicit := path != ""
	if path == "" {
		path = getenv(EnvConfigFile)
		explicit = path != ""
	}
	if path == "" {
		path = DefaultFile
	}

	settings, err := LoadFile(path)
	if err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, err
		}
		settings = &Settings{}
	}

	// Environment overrides file
	if v := getenv(EnvBrowser); v != "" {
		settings.Browsers = ParseBrowserList(v)
	}
	if v := getenv(EnvHubURL); v != "" {
		settings.HubURL = v
	}
	if v := getenv(EnvDirectConnect); v != "" {
		direct, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvDirectConnect, err)
		}
		settings.DirectConnect = direct
	}
	if v := getenv(EnvProxy); v != "" {
		settings.Proxy = v
	}
	if v := getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvTimeout, err)
		}
		settings.Timeout = d
	}

	// CLI overrides everything
	if len(cli.Browsers) > 0 {
		settings.Browsers = normalize(cli.Browsers)
	}
	if cli.HubURL != "" {
		settings.HubURL = cli.HubURL
	}
	if cli.DirectConnect != nil {
		settings.DirectConnect = *cli.DirectConnect
	}
	if cli.Proxy != "" {
		settings.Proxy = cli.Proxy
	}
	if cli.Timeout > 0 {
		settings.Timeout = cli.Timeout
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}
