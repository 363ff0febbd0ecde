// cmd/modbusdriver/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

// options are the persistent flags shared by every command.
type options struct {
	cfgFile       string
	jsonOutput    bool
	metricsListen string
	logLevel      string

	host    string
	port    int
	unitID  uint8
	backend string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "modbusdriver",
		Short: "Read and write named Modbus variables",
		Long: `modbusdriver maps human-readable variable names to coils and holding
registers of a Modbus TCP device and reads or writes them with typed values.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.cfgFile, "config", "c", "", "config file (default: built-in sample map on 127.0.0.1:502)")
	pf.BoolVar(&opts.jsonOutput, "json", false, "output in JSON format")
	pf.StringVar(&opts.metricsListen, "metrics-listen", "", "serve /metrics and /api/v1 on this address")
	pf.StringVar(&opts.logLevel, "log-level", "", "override logging.level")
	pf.StringVar(&opts.host, "host", "", "override driver.host")
	pf.IntVar(&opts.port, "port", 0, "override driver.port")
	pf.Uint8Var(&opts.unitID, "unit-id", 0, "override driver.unit_id")
	pf.StringVar(&opts.backend, "backend", "", "override driver.backend (goburrow, simonvetter)")

	rootCmd.AddCommand(
		newReadCmd(opts),
		newWriteCmd(opts),
		newTelemetryCmd(opts),
		newVariablesCmd(opts),
		newDemoCmd(opts),
	)

	return rootCmd
}
