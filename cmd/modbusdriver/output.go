// cmd/modbusdriver/output.go
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/tamzrod/modbus-driver/internal/access"
	"github.com/tamzrod/modbus-driver/internal/config"
	"github.com/tamzrod/modbus-driver/internal/status"
	"github.com/tamzrod/modbus-driver/internal/telemetry"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func printResults(w io.Writer, asJSON bool, results []access.Result) error {
	if asJSON {
		return writeJSON(w, results)
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Variable", "Type", "Value"})
	for _, r := range results {
		t.AppendRow(table.Row{r.Name, r.Type, r.Value})
	}
	t.Render()
	return nil
}

type snapshotJSON struct {
	At     time.Time       `json:"at"`
	Values []access.Result `json:"values"`
	Error  string          `json:"error,omitempty"`
	Health status.Snapshot `json:"health"`
}

func printSnapshot(w io.Writer, asJSON bool, snap telemetry.Snapshot) error {
	if asJSON {
		out := snapshotJSON{At: snap.At, Values: snap.Values, Health: snap.Health}
		if out.Values == nil {
			out.Values = []access.Result{}
		}
		if snap.Err != nil {
			out.Error = snap.Err.Error()
		}
		return writeJSON(w, out)
	}

	t := newTable(w)
	t.SetTitle("Telemetry %s", snap.At.Format(time.RFC3339))
	t.AppendHeader(table.Row{"Variable", "Type", "Value"})
	for _, r := range snap.Values {
		t.AppendRow(table.Row{r.Name, r.Type, r.Value})
	}
	if snap.Err != nil {
		t.AppendFooter(table.Row{"error", "", snap.Err.Error()})
	} else if snap.Health.Health != status.HealthUnknown {
		t.AppendFooter(table.Row{"health", "", status.HealthName(snap.Health.Health)})
	}
	t.Render()
	return nil
}

type variableJSON struct {
	Name     string `json:"name"`
	Register uint16 `json:"register"`
	Type     string `json:"type"`
}

func printVariables(w io.Writer, asJSON bool, cfg *config.Config) error {
	if asJSON {
		out := make([]variableJSON, 0, len(cfg.Variables))
		for _, v := range cfg.Variables {
			out = append(out, variableJSON{Name: v.Name, Register: v.Register, Type: v.Type})
		}
		return writeJSON(w, out)
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Variable", "Register", "Type"})
	for i, v := range cfg.Variables {
		t.AppendRow(table.Row{i + 1, v.Name, v.Register, v.Type})
	}
	t.AppendFooter(table.Row{"", "", "endpoint", fmt.Sprintf("%s:%d", cfg.Driver.Host, cfg.Driver.Port)})
	t.Render()
	return nil
}
