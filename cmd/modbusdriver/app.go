// cmd/modbusdriver/app.go
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tamzrod/modbus-driver/internal/access"
	"github.com/tamzrod/modbus-driver/internal/api"
	"github.com/tamzrod/modbus-driver/internal/config"
	"github.com/tamzrod/modbus-driver/internal/logging"
	"github.com/tamzrod/modbus-driver/internal/registry"
	"github.com/tamzrod/modbus-driver/internal/session"
	"github.com/tamzrod/modbus-driver/internal/telemetry"
	"github.com/tamzrod/modbus-driver/internal/transport"
	tmodbus "github.com/tamzrod/modbus-driver/internal/transport/modbus"
	"github.com/tamzrod/modbus-driver/internal/transport/urlclient"
)

// app is one wired driver: config -> registry -> session -> accessor -> facade.
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	reg    *registry.Registry
	sess   *session.Session
	acc    *access.Accessor
	facade *telemetry.Facade
	api    *api.Server
}

// loadConfig reads the file (or the built-in default) and applies flag overrides.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	var cfg *config.Config
	if opts.cfgFile == "" {
		cfg = config.Default()
	} else {
		c, err := config.Load(opts.cfgFile)
		if err != nil {
			return nil, fmt.Errorf("config load failed: %w", err)
		}
		cfg = c
	}

	flags := cmd.Flags()
	if opts.host != "" {
		cfg.Driver.Host = opts.host
	}
	if opts.port != 0 {
		cfg.Driver.Port = opts.port
	}
	if flags.Changed("unit-id") {
		id := opts.unitID
		cfg.Driver.UnitID = &id
	}
	if opts.backend != "" {
		cfg.Driver.Backend = opts.backend
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.metricsListen != "" {
		cfg.Metrics.Listen = opts.metricsListen
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}

func dialerFor(backend string) (transport.Dialer, error) {
	switch backend {
	case "goburrow":
		return tmodbus.Dialer{}, nil
	case "simonvetter":
		return urlclient.Dialer{}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", backend)
}

func newApp(cmd *cobra.Command, opts *options) (*app, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	log := logging.NewWithWriter(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}, cmd.ErrOrStderr())

	reg, err := config.BuildRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("registry build failed: %w", err)
	}

	dialer, err := dialerFor(cfg.Driver.Backend)
	if err != nil {
		return nil, err
	}

	sess, err := session.New(session.Config{
		Host:    cfg.Driver.Host,
		Port:    cfg.Driver.Port,
		UnitID:  *cfg.Driver.UnitID,
		Timeout: cfg.Driver.Timeout(),
	}, dialer, log)
	if err != nil {
		return nil, err
	}

	acc, err := access.New(reg, sess, log)
	if err != nil {
		return nil, err
	}

	facade, err := telemetry.NewFacade(sess, acc)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, reg: reg, sess: sess, acc: acc, facade: facade}

	if cfg.Metrics.Listen != "" {
		a.api = api.NewServer(reg, log)
		if err := a.api.Start(cfg.Metrics.Listen); err != nil {
			return nil, fmt.Errorf("api server failed: %w", err)
		}
	}

	return a, nil
}

func (a *app) Close() {
	if a.api != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.api.Stop(ctx); err != nil {
			a.log.Warn().Err(err).Msg("api server stop failed")
		}
	}
	if err := a.sess.Close(); err != nil {
		a.log.Warn().Err(err).Msg("session close failed")
	}
}

// withApp builds the app for one command run and tears it down afterwards.
func withApp(opts *options, fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, opts)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}
