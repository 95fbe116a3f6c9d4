package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/entrhq/steady/pkg/driver"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "steady.yaml"

var (
	// ErrNoBrowser is returned when no browser was selected anywhere.
	ErrNoBrowser = errors.New("no browser selected")

	// ErrUnknownBrowser is returned for a browser alias missing from the capability table.
	ErrUnknownBrowser = errors.New("unknown browser")
)

// Settings is the resolved configuration.
type Settings struct {
	// Browsers lists the browser aliases to run against. The first one is
	// used by the default session.
	Browsers BrowserList `yaml:"browser"`

	// HubURL is the remote endpoint to connect to.
	HubURL string `yaml:"hub_url,omitempty"`

	// DirectConnect launches the browser locally even when HubURL is set.
	DirectConnect bool `yaml:"direct_connect,omitempty"`

	// Proxy is an optional proxy server address.
	Proxy string `yaml:"proxy,omitempty"`

	// Timeout overrides the default retry budget when non-zero.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Capabilities extends or overrides the built-in capability table.
	Capabilities map[string]driver.Capabilities `yaml:"capabilities,omitempty"`
}

// BrowserList accepts either a single alias or a list, in YAML and in
// comma-separated flag or environment values.
type BrowserList []string

// UnmarshalYAML accepts a scalar or a sequence.
func (b *BrowserList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*b = ParseBrowserList(value.Value)
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*b = normalize(list)
		return nil
	default:
		return fmt.Errorf("browser must be a string or a list, got %s", value.Tag)
	}
}

// ParseBrowserList splits a comma-separated list of aliases.
func ParseBrowserList(s string) BrowserList {
	return normalize(strings.Split(s, ","))
}

func normalize(in []string) BrowserList {
	var out BrowserList
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Browser returns the primary browser alias.
func (s *Settings) Browser() string {
	if len(s.Browsers) == 0 {
		return ""
	}
	return s.Browsers[0]
}

// Table returns the capability table: the built-in entries with the
// settings' own entries merged over them.
func (s *Settings) Table() map[string]driver.Capabilities {
	table := DefaultCapabilities()
	for alias, caps := range s.Capabilities {
		alias = strings.ToLower(alias)
		merged := table[alias].Clone()
		for k, v := range caps {
			merged[k] = v
		}
		table[alias] = merged
	}
	return table
}

// CapabilitiesFor returns the capability payload of alias.
func (s *Settings) CapabilitiesFor(alias string) (driver.Capabilities, error) {
	caps, ok := s.Table()[strings.ToLower(alias)]
	if !ok {
		return nil, fmt.Errorf("%w %q (supported: %s)", ErrUnknownBrowser, alias, strings.Join(s.Aliases(), ", "))
	}
	return caps.Clone(), nil
}

// Aliases returns the sorted browser aliases of the capability table.
func (s *Settings) Aliases() []string {
	table := s.Table()
	out := make([]string, 0, len(table))
	for alias := range table {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// DriverOptions builds the options a driver factory needs for alias.
func (s *Settings) DriverOptions(alias string) (driver.Options, error) {
	caps, err := s.CapabilitiesFor(alias)
	if err != nil {
		return driver.Options{}, err
	}
	opts := driver.Options{
		Browser:      alias,
		Proxy:        s.Proxy,
		Capabilities: caps,
	}
	if !s.DirectConnect {
		opts.HubURL = s.HubURL
	}
	return opts, nil
}

// ForBrowser returns a copy of s that selects only alias.
func (s *Settings) ForBrowser(alias string) *Settings {
	c := *s
	c.Browsers = BrowserList{alias}
	return &c
}

// Validate checks that at least one browser is selected and every selected
// browser is in the capability table.
func (s *Settings) Validate() error {
	if s == nil || len(s.Browsers) == 0 {
		return ErrNoBrowser
	}
	for _, alias := range s.Browsers {
		if _, err := s.CapabilitiesFor(alias); err != nil {
			return err
		}
	}
	if s.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	return nil
}
