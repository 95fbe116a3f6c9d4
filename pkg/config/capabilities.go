package config

import "github.com/entrhq/steady/pkg/driver"

// DefaultCapabilities returns a fresh copy of the built-in capability table.
// Keys are browser aliases; values are passed to the driver factory.
func DefaultCapabilities() map[string]driver.Capabilities {
	return map[string]driver.Capabilities{
		"chrome": {
			"browserName": "chromium",
			"channel":     "chrome",
			"headless":    false,
		},
		"chrome-headless": {
			"browserName": "chromium",
			"channel":     "chrome",
			"headless":    true,
		},
		"chromium": {
			"browserName": "chromium",
			"headless":    true,
		},
		"edge": {
			"browserName": "chromium",
			"channel":     "msedge",
			"headless":    false,
		},
		"firefox": {
			"browserName": "firefox",
			"headless":    false,
		},
		"firefox-headless": {
			"browserName": "firefox",
			"headless":    true,
		},
		"webkit": {
			"browserName": "webkit",
			"headless":    true,
		},
		"safari": {
			"browserName": "webkit",
			"headless":    false,
		},
		"static": {
			"browserName": "htmldriver",
		},
	}
}
