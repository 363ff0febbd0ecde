// internal/telemetry/facade.go
package telemetry

import (
	"errors"
	"time"

	"github.com/tamzrod/modbus-driver/internal/access"
	"github.com/tamzrod/modbus-driver/internal/status"
)

// Connector is the session surface the facade needs.
type Connector interface {
	EnsureConnected() error
}

// Reader is the access surface the facade needs.
type Reader interface {
	Telemetry() ([]access.Result, error)
}

// Snapshot is one telemetry pass over every registered variable.
// All-or-nothing: Values is empty when Err is set.
type Snapshot struct {
	At     time.Time       `json:"at"`
	Values []access.Result `json:"values"`
	Err    error           `json:"-"`
	Health status.Snapshot `json:"health"`
}

// Facade exposes a full-registry read behind a single call.
type Facade struct {
	conn   Connector
	reader Reader
	now    func() time.Time
}

func NewFacade(conn Connector, reader Reader) (*Facade, error) {
	if conn == nil {
		return nil, errors.New("telemetry: connector required")
	}
	if reader == nil {
		return nil, errors.New("telemetry: reader required")
	}
	return &Facade{conn: conn, reader: reader, now: time.Now}, nil
}

// Snapshot ensures the session is connected, then reads every variable in
// registry order. On error the returned Snapshot carries the error and no values.
func (f *Facade) Snapshot() (Snapshot, error) {
	snap := Snapshot{At: f.now()}

	if err := f.conn.EnsureConnected(); err != nil {
		snap.Err = err
		return snap, err
	}

	values, err := f.reader.Telemetry()
	if err != nil {
		snap.Err = err
		return snap, err
	}

	snap.Values = values
	return snap, nil
}
