// Package config resolves which browser to drive and how to reach it.
//
// Settings come from, in order of precedence: command-line flags, STEADY_*
// environment variables, a YAML file (steady.yaml by default) and built-in
// defaults. The capability table maps each browser alias to the payload the
// driver is created with.
package config

import (
	"sync"
)

var (
	// globalSettings is the process-wide resolved configuration
	globalSettings *Settings
	globalMu       sync.Mutex
)

// Initialize installs settings as the global configuration.
// This should be called once at application startup.
func Initialize(settings *Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	globalSettings = settings
	return nil
}

// Global returns the global configuration.
// Panics if Initialize has not been called.
func Global() *Settings {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalSettings == nil {
		panic("config not initialized: call config.Initialize first")
	}

	return globalSettings
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalSettings != nil
}

// reset clears the global configuration. Used by tests.
func reset() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalSettings = nil
}
