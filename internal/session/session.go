// internal/session/session.go
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-driver/internal/fault"
	"github.com/tamzrod/modbus-driver/internal/metrics"
	"github.com/tamzrod/modbus-driver/internal/transport"
)

// DefaultUnitID is the unit/slave id used when none is configured.
const DefaultUnitID uint8 = 1

// DefaultTimeout bounds each transport call when Config.Timeout is not set.
const DefaultTimeout = time.Second

// State is the session lifecycle state.
type State uint8

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Config is the immutable session configuration.
type Config struct {
	Host    string
	Port    int
	UnitID  uint8
	Timeout time.Duration // per transport call
}

// Session owns one connection to one device.
//
// All access goes through Do, which holds the session lock for the whole
// batch: one request batch in flight at a time. Reconnection only happens
// synchronously at the start of Do, never in the background.
type Session struct {
	cfg    Config
	dialer transport.Dialer
	log    zerolog.Logger
	id     string

	mu     sync.Mutex
	conn   transport.Conn // nil while Disconnected
	dialed bool           // a connect has succeeded before
}

// New creates a disconnected session.
func New(cfg Config, dialer transport.Dialer, log zerolog.Logger) (*Session, error) {
	if cfg.Host == "" {
		return nil, errors.New("session: host required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, errors.New("session: port must be in 1..65535")
	}
	if dialer == nil {
		return nil, errors.New("session: dialer required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	id := uuid.NewString()
	s := &Session{
		cfg:    cfg,
		dialer: dialer,
		id:     id,
	}
	s.log = log.With().
		Str("session_id", id).
		Str("endpoint", s.endpoint().Address()).
		Uint8("unit_id", cfg.UnitID).
		Logger()
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) UnitID() uint8 { return s.cfg.UnitID }

func (s *Session) Timeout() time.Duration { return s.cfg.Timeout }

// State reports Connected only when a handle exists and the transport says it is live.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live() {
		return Connected
	}
	return Disconnected
}

// Connect opens the connection. It is a no-op while connected.
// On failure the session stays Disconnected and a ConnectionFailed error is returned.
func (s *Session) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connect()
}

// Disconnect closes the connection if open. Idempotent.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnect()
}

// Close releases the connection on teardown.
func (s *Session) Close() error { return s.Disconnect() }

// EnsureConnected reconnects when the handle is missing or dead.
// On return either the session is Connected or the error is NotConnected.
func (s *Session) EnsureConnected() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureConnected()
}

// Do runs fn against the live connection under the session lock.
// fn receives the session's unit id. Transport timeouts raised by fn are
// reported as Timeout; other errors are returned unchanged.
func (s *Session) Do(op string, fn func(conn transport.Conn, unitID uint8) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureConnected(); err != nil {
		return err
	}

	err := fn(s.conn, s.cfg.UnitID)
	if err == nil {
		return nil
	}

	if !s.conn.Connected() {
		s.log.Warn().Err(err).Str("op", op).Msg("connection lost")
	}
	return Classify(op, err)
}

// ---- internal (caller holds mu) ----

func (s *Session) endpoint() transport.Endpoint {
	return transport.Endpoint{Host: s.cfg.Host, Port: s.cfg.Port, Timeout: s.cfg.Timeout}
}

func (s *Session) live() bool {
	return s.conn != nil && s.conn.Connected()
}

func (s *Session) connect() error {
	if s.live() {
		return nil
	}
	if s.conn != nil {
		_ = s.disconnect()
	}

	s.log.Info().Msg("connecting")

	conn, err := s.dialer.Dial(s.endpoint())
	metrics.ObserveConnect(err)
	if err != nil {
		s.log.Error().Err(err).Msg("connect failed")
		if transport.IsTimeout(err) {
			err = fault.New(fault.KindTimeout, "dial", "", err)
		}
		return fault.New(fault.KindConnectionFailed, "connect", "", err)
	}
	if conn == nil {
		return fault.Newf(fault.KindConnectionFailed, "connect", "", "dialer returned no connection")
	}

	s.conn = conn
	s.dialed = true
	metrics.Connected.Inc()
	s.log.Info().Msg("connected")
	return nil
}

func (s *Session) disconnect() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	metrics.Connected.Dec()
	s.log.Info().Msg("disconnected")
	return err
}

func (s *Session) ensureConnected() error {
	if s.live() {
		return nil
	}

	if s.conn != nil {
		s.log.Warn().Msg("connection not live, reconnecting")
	}
	if s.dialed {
		metrics.Reconnects.Inc()
	}

	// release any stale handle before dialing again
	if err := s.disconnect(); err != nil {
		s.log.Debug().Err(err).Msg("closing stale connection")
	}

	if err := s.connect(); err != nil {
		return fault.New(fault.KindNotConnected, "ensure connected", "", err)
	}
	if !s.live() {
		return fault.Newf(fault.KindNotConnected, "ensure connected", "", "connection not live after connect")
	}
	return nil
}

// Classify turns a raw transport timeout into a Timeout error.
// Driver errors and other transport errors pass through unchanged.
func Classify(op string, err error) error {
	var fe *fault.Error
	if errors.As(err, &fe) {
		return err
	}
	if transport.IsTimeout(err) {
		return fault.New(fault.KindTimeout, op, "", err)
	}
	return err
}
