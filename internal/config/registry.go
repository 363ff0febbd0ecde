// internal/config/registry.go
package config

import (
	"fmt"

	"github.com/tamzrod/modbus-driver/internal/registry"
)

// BuildRegistry converts the variables list into a Registry, keeping order.
// Assumes config has already passed Validate.
func BuildRegistry(cfg *Config) (*registry.Registry, error) {
	entries := make([]registry.Entry, 0, len(cfg.Variables))
	for _, v := range cfg.Variables {
		vt, err := registry.ParseValueType(v.Type)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", v.Name, err)
		}
		entries = append(entries, registry.Entry{
			Name: v.Name,
			VariableConfig: registry.VariableConfig{
				Register: v.Register,
				Type:     vt,
			},
		})
	}
	return registry.New(entries...)
}

// Default is the configuration used when no file is given: the sample device
// map against a local device. Not yet normalized.
func Default() *Config {
	cfg := &Config{
		Driver: DriverConfig{Host: "127.0.0.1"},
	}
	for _, e := range registry.Default().Entries() {
		cfg.Variables = append(cfg.Variables, VariableConfig{
			Name:     e.Name,
			Register: e.Register,
			Type:     e.Type.String(),
		})
	}
	return cfg
}
