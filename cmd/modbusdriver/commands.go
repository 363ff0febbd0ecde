// cmd/modbusdriver/commands.go
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tamzrod/modbus-driver/internal/access"
	"github.com/tamzrod/modbus-driver/internal/telemetry"
)

func newReadCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "read NAME...",
		Short: "Read variables by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			results, err := a.acc.Read(args)
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), opts.jsonOutput, results)
		}),
	}
}

func newWriteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "write NAME=VALUE...",
		Short: "Write variables in the given order",
		Long: `Write variables in the given order. Values are coerced to the variable's
type: bool accepts true/false or the numbers 1/0, int accepts 0..65535.`,
		Args: cobra.MinimumNArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			assignments := make([]access.Assignment, 0, len(args))
			for _, arg := range args {
				as, err := access.ParseAssignment(arg)
				if err != nil {
					return err
				}
				assignments = append(assignments, as)
			}
			if err := a.acc.Write(assignments); err != nil {
				return err
			}
			a.log.Info().Int("count", len(assignments)).Msg("write complete")
			return nil
		}),
	}
}

func newTelemetryCmd(opts *options) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "telemetry",
		Short: "Read every registered variable",
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if !watch {
				snap, err := a.facade.Snapshot()
				if err != nil {
					return err
				}
				return printSnapshot(cmd.OutOrStdout(), opts.jsonOutput, snap)
			}
			return watchTelemetry(cmd, a, opts)
		}),
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "poll on telemetry.interval_ms until interrupted")
	return cmd
}

func watchTelemetry(cmd *cobra.Command, a *app, opts *options) error {
	runner, err := telemetry.NewRunner(a.facade, a.cfg.Telemetry.Interval(), a.log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := make(chan telemetry.Snapshot)
	go runner.Run(ctx, out)

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-out:
			if a.api != nil {
				a.api.Update(snap)
			}
			if err := printSnapshot(cmd.OutOrStdout(), opts.jsonOutput, snap); err != nil {
				return err
			}
		}
	}
}

func newVariablesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "variables",
		Short: "List the variable map",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return printVariables(cmd.OutOrStdout(), opts.jsonOutput, cfg)
		},
	}
}

// newDemoCmd writes three sample values, reads them back and prints telemetry.
func newDemoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Write sample values, read them back, print telemetry",
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.sess.Connect(); err != nil {
				return err
			}

			err := a.acc.Write([]access.Assignment{
				{Name: "Temperature-01", Value: 38},
				{Name: "PumpStatus-01", Value: true},
				{Name: "Pressure-01", Value: 123},
			})
			if err != nil {
				return err
			}

			results, err := a.acc.Read([]string{"Temperature-01", "PumpStatus-01", "Pressure-01"})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if err := printResults(w, opts.jsonOutput, results); err != nil {
				return err
			}

			snap, err := a.facade.Snapshot()
			if err != nil {
				return err
			}
			return printSnapshot(w, opts.jsonOutput, snap)
		}),
	}
}
