// internal/telemetry/facade_test.go
package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/modbus-driver/internal/access"
	"github.com/tamzrod/modbus-driver/internal/fault"
	"github.com/tamzrod/modbus-driver/internal/registry"
	"github.com/tamzrod/modbus-driver/internal/session"
	"github.com/tamzrod/modbus-driver/internal/transport/transporttest"
)

func newFacade(t *testing.T, reg *registry.Registry) (*Facade, *transporttest.Dialer, *session.Session) {
	t.Helper()
	d := transporttest.NewDialer()
	s, err := session.New(session.Config{Host: "127.0.0.1", Port: 502, UnitID: 1, Timeout: time.Second}, d, zerolog.Nop())
	require.NoError(t, err)
	a, err := access.New(reg, s, zerolog.Nop())
	require.NoError(t, err)
	f, err := NewFacade(s, a)
	require.NoError(t, err)
	return f, d, s
}

func TestSnapshot_RegistryOrder(t *testing.T) {
	reg := registry.Default()
	f, d, _ := newFacade(t, reg)
	d.Mem.SetRegister(5, 38)
	d.Mem.SetCoil(6, true)

	snap, err := f.Snapshot()
	require.NoError(t, err)
	require.NoError(t, snap.Err)
	require.Len(t, snap.Values, reg.Len())
	assert.False(t, snap.At.IsZero())

	for i, name := range reg.Names() {
		assert.Equal(t, name, snap.Values[i].Name)
	}
	assert.Equal(t, 1, d.Attempts)
}

func TestSnapshot_ConnectsLazily(t *testing.T) {
	f, d, s := newFacade(t, registry.Default())
	assert.Equal(t, session.Disconnected, s.State())

	_, err := f.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, session.Connected, s.State())

	// dropped connection: exactly one reconnect
	d.Last().Dead = true
	_, err = f.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 2, d.Attempts)
}

func TestSnapshot_NotConnected(t *testing.T) {
	f, d, _ := newFacade(t, registry.Default())
	d.Fail = true

	snap, err := f.Snapshot()
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrNotConnected)
	assert.Equal(t, err, snap.Err)
	assert.Empty(t, snap.Values)
	assert.Empty(t, d.Calls())
}

func TestSnapshot_ReadFailureIsAllOrNothing(t *testing.T) {
	f, d, _ := newFacade(t, registry.Default())
	d.Configure = func(c *transporttest.Conn) {
		c.FailOn = "ReadCoils"
		c.FailAfter = 1
	}

	snap, err := f.Snapshot()
	assert.ErrorIs(t, err, fault.ErrReadFailed)
	assert.Empty(t, snap.Values)
}

func TestNewFacade_RequiresDeps(t *testing.T) {
	_, err := NewFacade(nil, stubReader{})
	assert.Error(t, err)
	_, err = NewFacade(stubConn{}, nil)
	assert.Error(t, err)
}

type stubConn struct{ err error }

func (c stubConn) EnsureConnected() error { return c.err }

type stubReader struct {
	values []access.Result
	err    error
}

func (r stubReader) Telemetry() ([]access.Result, error) { return r.values, r.err }

func TestSnapshot_Stubbed(t *testing.T) {
	boom := errors.New("boom")
	f, err := NewFacade(stubConn{}, stubReader{err: boom})
	require.NoError(t, err)

	snap, err := f.Snapshot()
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, snap.Values)
}
