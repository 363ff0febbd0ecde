// internal/config/normalize.go
package config

const (
	DefaultBackend    = "goburrow"
	DefaultPort       = 502
	DefaultUnitID     = uint8(1)
	DefaultTimeoutMs  = 1000
	DefaultIntervalMs = 1000
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "console"
)

// Normalize applies post-validation defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	d := &cfg.Driver
	if d.Backend == "" {
		d.Backend = DefaultBackend
	}
	if d.Port == 0 {
		d.Port = DefaultPort
	}
	if d.UnitID == nil {
		id := DefaultUnitID
		d.UnitID = &id
	}
	if d.TimeoutMs == 0 {
		d.TimeoutMs = DefaultTimeoutMs
	}

	if cfg.Telemetry.IntervalMs == 0 {
		cfg.Telemetry.IntervalMs = DefaultIntervalMs
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
}
