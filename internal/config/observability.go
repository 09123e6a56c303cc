package config

import "fmt"

// ObservabilityConfig wires the optional New Relic agent. Nil (or
// Enabled=false) leaves instrumentation off.
type ObservabilityConfig struct {
	Enabled    bool   `koanf:"enabled"`
	LicenseKey string `koanf:"license_key"`

	// Filled in by Load, not the environment.
	ServiceName string `koanf:"-"`
	Environment string `koanf:"-"`
}

// DefaultObservabilityConfig returns a disabled configuration.
func DefaultObservabilityConfig() *ObservabilityConfig {
	return &ObservabilityConfig{Enabled: false}
}

// Validate checks that an enabled configuration is complete.
func (o *ObservabilityConfig) Validate() error {
	if !o.Enabled {
		return nil
	}
	if o.LicenseKey == "" {
		return fmt.Errorf("license_key is required when observability is enabled")
	}
	return nil
}
