// internal/transport/transport.go
package transport

import (
	"errors"
	"net"
	"os"
	"strconv"
	"time"
)

// Conn is one live connection plus the protocol master bound to it.
// It is owned by exactly one session and is NOT safe for concurrent use.
type Conn interface {
	ReadCoils(unitID uint8, addr, qty uint16) ([]bool, error)              // FC 1
	ReadHoldingRegisters(unitID uint8, addr, qty uint16) ([]uint16, error) // FC 3
	WriteSingleCoil(unitID uint8, addr uint16, value bool) error           // FC 5
	WriteSingleRegister(unitID uint8, addr, value uint16) error            // FC 6

	// Connected reports the transport's own liveness flag.
	// It is consulted on every access, never cached by callers.
	Connected() bool
	Close() error
}

// Endpoint is where a Dialer connects.
type Endpoint struct {
	Host    string
	Port    int
	Timeout time.Duration // per request; also bounds the dial
}

func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Dialer opens connections. ONE attempt per call, no retries.
type Dialer interface {
	Dial(ep Endpoint) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ep Endpoint) (Conn, error)

func (f DialerFunc) Dial(ep Endpoint) (Conn, error) { return f(ep) }

// ErrTimeout is returned by backends that report timeouts with their own sentinel.
var ErrTimeout = errors.New("transport: request timed out")

// IsTimeout reports whether err is a request or dial timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
