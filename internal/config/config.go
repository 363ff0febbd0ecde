// internal/config/config.go
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Driver    DriverConfig     `yaml:"driver" validate:"required"`
	Variables []VariableConfig `yaml:"variables" validate:"required,min=1,dive"`
	Telemetry TelemetryConfig  `yaml:"telemetry"`
	Logging   LoggingConfig    `yaml:"logging"`
	Metrics   MetricsConfig    `yaml:"metrics"`
}

// ---- DRIVER (session target) ----

type DriverConfig struct {
	Backend   string `yaml:"backend" validate:"omitempty,oneof=goburrow simonvetter"`
	Host      string `yaml:"host" validate:"required,hostname_rfc1123|ip"`
	Port      int    `yaml:"port" validate:"omitempty,min=1,max=65535"`
	UnitID    *uint8 `yaml:"unit_id"` // nil => 1
	TimeoutMs int    `yaml:"timeout_ms" validate:"omitempty,min=1"`
}

func (d DriverConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutMs) * time.Millisecond
}

// ---- VARIABLE MAP ----

// VariableConfig is one name -> register mapping. List order is registry order.
type VariableConfig struct {
	Name     string `yaml:"name" validate:"required"`
	Register uint16 `yaml:"register"`
	Type     string `yaml:"type" validate:"required"`
}

// ---- TELEMETRY ----

type TelemetryConfig struct {
	IntervalMs int `yaml:"interval_ms" validate:"omitempty,min=1"`
}

func (t TelemetryConfig) Interval() time.Duration {
	return time.Duration(t.IntervalMs) * time.Millisecond
}

// ---- LOGGING ----

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`
}

// ---- METRICS ----

type MetricsConfig struct {
	Listen string `yaml:"listen" validate:"omitempty,hostname_port"`
}

// Load reads a YAML config file. It does not validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML bytes. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}
