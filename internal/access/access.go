// internal/access/access.go
package access

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-driver/internal/fault"
	"github.com/tamzrod/modbus-driver/internal/metrics"
	"github.com/tamzrod/modbus-driver/internal/registry"
	"github.com/tamzrod/modbus-driver/internal/session"
	"github.com/tamzrod/modbus-driver/internal/transport"
)

// Session is what the access layer needs from a transport session.
type Session interface {
	Do(op string, fn func(conn transport.Conn, unitID uint8) error) error
}

// Accessor reads and writes variables by name.
type Accessor struct {
	reg  *registry.Registry
	sess Session
	log  zerolog.Logger
}

// New binds a registry to a session.
func New(reg *registry.Registry, sess Session, log zerolog.Logger) (*Accessor, error) {
	if reg == nil {
		return nil, errors.New("access: registry required")
	}
	if sess == nil {
		return nil, errors.New("access: session required")
	}
	return &Accessor{reg: reg, sess: sess, log: log}, nil
}

func (a *Accessor) Registry() *registry.Registry { return a.reg }

// planned is one resolved and encoded entry.
type planned struct {
	name  string
	cfg   registry.VariableConfig
	codec codec
	value Value
}

// resolve looks a name up and picks its codec. No I/O.
func (a *Accessor) resolve(op, name string) (planned, error) {
	vc, err := a.reg.Lookup(name)
	if err != nil {
		return planned{}, fault.New(fault.KindOf(err), op, name, nil)
	}
	c, ok := codecFor(vc.Type)
	if !ok {
		return planned{}, fault.Newf(fault.KindUnsupportedType, op, name, "no codec for %s", vc.Type)
	}
	return planned{name: name, cfg: vc, codec: c}, nil
}

// Write applies assignments in order, one transport call each.
//
// Every entry is resolved and coerced before the session is touched, so an
// unknown name or a bad value never reaches the device. Once writing starts
// there is no atomicity: a failure on entry k leaves 1..k-1 applied, skips
// the rest, and returns WriteFailed naming entry k.
func (a *Accessor) Write(assignments []Assignment) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveOp("write", start, err) }()

	plan := make([]planned, 0, len(assignments))
	for _, as := range assignments {
		p, err := a.resolve("write", as.Name)
		if err != nil {
			return err
		}
		v, err := p.codec.encode(as.Value)
		if err != nil {
			var ce *coercionError
			if errors.As(err, &ce) {
				return fault.New(ce.kind, "write", as.Name, ce.err)
			}
			return fault.New(fault.KindTypeCoercion, "write", as.Name, err)
		}
		p.value = v
		plan = append(plan, p)
	}

	if len(plan) == 0 {
		return nil
	}

	return a.sess.Do("write", func(conn transport.Conn, unitID uint8) error {
		for _, p := range plan {
			if err := p.codec.write(conn, unitID, p.cfg.Register, p.value); err != nil {
				a.log.Error().Err(err).Str("variable", p.name).Uint16("register", p.cfg.Register).Msg("write failed")
				return fault.New(fault.KindWriteFailed, "write", p.name, session.Classify("write", err))
			}
			a.log.Debug().
				Str("variable", p.name).
				Stringer("type", p.cfg.Type).
				Uint16("register", p.cfg.Register).
				Stringer("value", p.value).
				Msg("written")
		}
		return nil
	})
}

// WriteMap writes a map. Go maps are unordered, so entries go out sorted by name.
func (a *Accessor) WriteMap(values map[string]any) error {
	names := make([]string, 0, len(values))
	for n := range values {
		names = append(names, n)
	}
	sort.Strings(names)

	assignments := make([]Assignment, 0, len(names))
	for _, n := range names {
		assignments = append(assignments, Assignment{Name: n, Value: values[n]})
	}
	return a.Write(assignments)
}

// Read reads the named variables in order.
// Fail-fast: any error returns no results at all.
func (a *Accessor) Read(names []string) ([]Result, error) {
	return a.read("read", names)
}

// Telemetry reads every registered variable in registry order.
func (a *Accessor) Telemetry() ([]Result, error) {
	return a.read("telemetry", a.reg.Names())
}

func (a *Accessor) read(op string, names []string) (out []Result, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOp(op, start, err) }()

	plan := make([]planned, 0, len(names))
	for _, name := range names {
		p, err := a.resolve(op, name)
		if err != nil {
			return nil, err
		}
		plan = append(plan, p)
	}

	if len(plan) == 0 {
		return []Result{}, nil
	}

	results := make([]Result, 0, len(plan))
	err = a.sess.Do(op, func(conn transport.Conn, unitID uint8) error {
		for _, p := range plan {
			v, err := p.codec.read(conn, unitID, p.cfg.Register)
			if err != nil {
				a.log.Error().Err(err).Str("variable", p.name).Uint16("register", p.cfg.Register).Msg("read failed")
				return fault.New(fault.KindReadFailed, op, p.name, session.Classify(op, err))
			}
			results = append(results, Result{Name: p.name, Type: p.cfg.Type, Value: v})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ParseAssignment parses "NAME=VALUE". The value stays a string and is
// coerced at write time according to the variable's type.
func ParseAssignment(s string) (Assignment, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return Assignment{}, fmt.Errorf("access: expected NAME=VALUE, got %q", s)
	}
	return Assignment{Name: name, Value: value}, nil
}
