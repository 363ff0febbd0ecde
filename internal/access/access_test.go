// internal/access/access_test.go
package access

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/modbus-driver/internal/fault"
	"github.com/tamzrod/modbus-driver/internal/registry"
	"github.com/tamzrod/modbus-driver/internal/session"
	"github.com/tamzrod/modbus-driver/internal/transport"
	tmodbus "github.com/tamzrod/modbus-driver/internal/transport/modbus"
	"github.com/tamzrod/modbus-driver/internal/transport/transporttest"
)

func scenarioRegistry() *registry.Registry {
	return registry.MustNew(
		registry.Entry{Name: "Temperature-01", VariableConfig: registry.VariableConfig{Register: 5, Type: registry.Int}},
		registry.Entry{Name: "PumpStatus-01", VariableConfig: registry.VariableConfig{Register: 6, Type: registry.Bool}},
	)
}

type fixture struct {
	dialer *transporttest.Dialer
	sess   *session.Session
	acc    *Accessor
}

func newFixture(t *testing.T, reg *registry.Registry) *fixture {
	t.Helper()
	d := transporttest.NewDialer()
	s, err := session.New(session.Config{Host: "127.0.0.1", Port: 502, UnitID: 1, Timeout: time.Second}, d, zerolog.Nop())
	require.NoError(t, err)
	a, err := New(reg, s, zerolog.Nop())
	require.NoError(t, err)
	return &fixture{dialer: d, sess: s, acc: a}
}

func TestWriteThenReadScenario(t *testing.T) {
	f := newFixture(t, scenarioRegistry())

	err := f.acc.Write([]Assignment{
		{Name: "Temperature-01", Value: 38},
		{Name: "PumpStatus-01", Value: true},
	})
	require.NoError(t, err)

	assert.Equal(t, []transporttest.Call{
		{Op: "WriteSingleRegister", UnitID: 1, Addr: 5, Value: 38},
		{Op: "WriteSingleCoil", UnitID: 1, Addr: 6, Value: 1},
	}, f.dialer.Calls())

	res, err := f.acc.Read([]string{"Temperature-01", "PumpStatus-01"})
	require.NoError(t, err)
	assert.Equal(t, []Result{
		{Name: "Temperature-01", Type: registry.Int, Value: IntValue(38)},
		{Name: "PumpStatus-01", Type: registry.Bool, Value: BoolValue(true)},
	}, res)
}

func TestRoundTripEveryVariable(t *testing.T) {
	reg := registry.Default()
	f := newFixture(t, reg)

	// aliases share addresses, so check each variable in isolation
	for i, e := range reg.Entries() {
		var v any
		var want Value
		if e.Type == registry.Bool {
			v, want = i%2 == 0, BoolValue(i%2 == 0)
		} else {
			v, want = 100+i, IntValue(int64(100+i))
		}

		require.NoError(t, f.acc.Write([]Assignment{{Name: e.Name, Value: v}}), e.Name)

		res, err := f.acc.Read([]string{e.Name})
		require.NoError(t, err, e.Name)
		require.Len(t, res, 1)
		assert.Equal(t, want, res[0].Value, e.Name)
		assert.Equal(t, e.Type, res[0].Type, e.Name)
	}
}

func TestUnknownVariableNeverTouchesTransport(t *testing.T) {
	f := newFixture(t, scenarioRegistry())

	err := f.acc.Write([]Assignment{
		{Name: "Temperature-01", Value: 1},
		{Name: "Nope", Value: 1},
	})
	assert.ErrorIs(t, err, fault.ErrUnknownVariable)

	_, err = f.acc.Read([]string{"Temperature-01", "temperature-01"})
	assert.ErrorIs(t, err, fault.ErrUnknownVariable)

	var fe *fault.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "temperature-01", fe.Variable)
	assert.Equal(t, "read", fe.Op)

	assert.Zero(t, f.dialer.Attempts)
	assert.Empty(t, f.dialer.Calls())
}

func TestBoolCoercion(t *testing.T) {
	f := newFixture(t, scenarioRegistry())

	for _, raw := range []any{2, -1, 1.5, "yes", "2", nil, struct{}{}} {
		err := f.acc.Write([]Assignment{{Name: "PumpStatus-01", Value: raw}})
		assert.ErrorIs(t, err, fault.ErrTypeCoercion, "raw=%#v", raw)
	}
	assert.Empty(t, f.dialer.Calls())

	cases := []struct {
		raw  any
		want bool
	}{
		{true, true},
		{false, false},
		{"true", true},
		{"FALSE", false},
		{"1", true},
		{"0", false},
		{1, true},
		{0, false},
		{uint8(1), true},
		{1.0, true},
		{json.Number("0"), false},
	}
	for _, tc := range cases {
		require.NoError(t, f.acc.Write([]Assignment{{Name: "PumpStatus-01", Value: tc.raw}}), "raw=%#v", tc.raw)
		res, err := f.acc.Read([]string{"PumpStatus-01"})
		require.NoError(t, err)
		assert.Equal(t, BoolValue(tc.want), res[0].Value, "raw=%#v", tc.raw)
	}
}

func TestIntCoercion(t *testing.T) {
	f := newFixture(t, scenarioRegistry())

	cases := []struct {
		raw  any
		want int64
	}{
		{38, 38},
		{int8(7), 7},
		{uint16(65535), 65535},
		{uint64(12), 12},
		{float64(42), 42},
		{json.Number("99"), 99},
		{json.Number("5.0"), 5},
		{" 123 ", 123},
		{0, 0},
	}
	for _, tc := range cases {
		require.NoError(t, f.acc.Write([]Assignment{{Name: "Temperature-01", Value: tc.raw}}), "raw=%#v", tc.raw)
		res, err := f.acc.Read([]string{"Temperature-01"})
		require.NoError(t, err)
		assert.Equal(t, IntValue(tc.want), res[0].Value, "raw=%#v", tc.raw)
	}

	for _, raw := range []any{"abc", true, 1.5, nil, []int{1}, json.Number("x")} {
		err := f.acc.Write([]Assignment{{Name: "Temperature-01", Value: raw}})
		assert.ErrorIs(t, err, fault.ErrTypeCoercion, "raw=%#v", raw)
	}
}

func TestIntOutOfRangeMakesNoCall(t *testing.T) {
	f := newFixture(t, scenarioRegistry())

	for _, raw := range []any{70000, -1, int64(1) << 40, "99999999999999999999", uint64(1) << 63} {
		err := f.acc.Write([]Assignment{{Name: "Temperature-01", Value: raw}})
		assert.ErrorIs(t, err, fault.ErrValueOutOfRange, "raw=%#v", raw)
	}
	assert.Empty(t, f.dialer.Calls())
	assert.Zero(t, f.dialer.Attempts)
}

func TestWriteFailureStopsAndNamesEntry(t *testing.T) {
	reg := registry.MustNew(
		registry.Entry{Name: "a", VariableConfig: registry.VariableConfig{Register: 1, Type: registry.Int}},
		registry.Entry{Name: "b", VariableConfig: registry.VariableConfig{Register: 2, Type: registry.Bool}},
		registry.Entry{Name: "c", VariableConfig: registry.VariableConfig{Register: 3, Type: registry.Int}},
	)
	f := newFixture(t, reg)
	f.dialer.Configure = func(c *transporttest.Conn) { c.FailOn = "WriteSingleCoil" }

	err := f.acc.Write([]Assignment{{Name: "a", Value: 10}, {Name: "b", Value: true}, {Name: "c", Value: 30}})
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrWriteFailed)
	assert.ErrorIs(t, err, transporttest.ErrInjected)

	var fe *fault.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "b", fe.Variable)

	// a applied, c never attempted
	assert.Equal(t, uint16(10), f.dialer.Mem.Register(1))
	calls := f.dialer.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "WriteSingleCoil", calls[1].Op)
}

func TestReadIsFailFast(t *testing.T) {
	f := newFixture(t, scenarioRegistry())
	f.dialer.Configure = func(c *transporttest.Conn) { c.FailOn = "ReadCoils" }

	res, err := f.acc.Read([]string{"Temperature-01", "PumpStatus-01"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, fault.ErrReadFailed)

	var fe *fault.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "PumpStatus-01", fe.Variable)
}

func TestShortReadIsReadFailed(t *testing.T) {
	f := newFixture(t, scenarioRegistry())
	f.dialer.Configure = func(c *transporttest.Conn) { c.ShortReads = true }

	_, err := f.acc.Read([]string{"Temperature-01"})
	assert.ErrorIs(t, err, fault.ErrReadFailed)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestTimeoutIsDistinct(t *testing.T) {
	f := newFixture(t, scenarioRegistry())
	f.dialer.Configure = func(c *transporttest.Conn) {
		c.FailOn = "ReadHoldingRegisters"
		c.Err = fmt.Errorf("read: %w", timeoutErr{})
	}

	_, err := f.acc.Read([]string{"Temperature-01"})
	assert.ErrorIs(t, err, fault.ErrReadFailed)
	assert.ErrorIs(t, err, fault.ErrTimeout)
	assert.NotErrorIs(t, err, fault.ErrNotConnected)
}

func TestUnsupportedType(t *testing.T) {
	reg := registry.MustNew(
		registry.Entry{Name: "weird", VariableConfig: registry.VariableConfig{Register: 1, Type: registry.ValueType(42)}},
	)
	f := newFixture(t, reg)

	err := f.acc.Write([]Assignment{{Name: "weird", Value: 1}})
	assert.ErrorIs(t, err, fault.ErrUnsupportedType)

	_, err = f.acc.Read([]string{"weird"})
	assert.ErrorIs(t, err, fault.ErrUnsupportedType)

	assert.Empty(t, f.dialer.Calls())
}

func TestTelemetryCoversRegistryInOrder(t *testing.T) {
	reg := registry.Default()
	f := newFixture(t, reg)

	res, err := f.acc.Telemetry()
	require.NoError(t, err)
	require.Len(t, res, reg.Len())
	for i, e := range reg.Entries() {
		assert.Equal(t, e.Name, res[i].Name)
		assert.Equal(t, e.Type, res[i].Type)
		assert.Equal(t, e.Type, res[i].Value.Type())
	}
}

func TestReconnectAfterDisconnect(t *testing.T) {
	f := newFixture(t, scenarioRegistry())

	require.NoError(t, f.sess.Connect())
	require.NoError(t, f.sess.Disconnect())

	_, err := f.acc.Read([]string{"Temperature-01"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.dialer.Attempts)

	require.NoError(t, f.sess.Disconnect())
	f.dialer.Fail = true
	before := len(f.dialer.Calls())

	err = f.acc.Write([]Assignment{{Name: "Temperature-01", Value: 1}})
	assert.ErrorIs(t, err, fault.ErrNotConnected)
	assert.Equal(t, 3, f.dialer.Attempts, "exactly one reconnect attempt")
	assert.Len(t, f.dialer.Calls(), before, "no transport calls after failed reconnect")
}

func TestWriteMapIsSortedByName(t *testing.T) {
	f := newFixture(t, scenarioRegistry())

	require.NoError(t, f.acc.WriteMap(map[string]any{"Temperature-01": 1, "PumpStatus-01": false}))

	calls := f.dialer.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "WriteSingleCoil", calls[0].Op) // PumpStatus-01 < Temperature-01
	assert.Equal(t, "WriteSingleRegister", calls[1].Op)
}

func TestEmptyRequestsSkipTransport(t *testing.T) {
	f := newFixture(t, scenarioRegistry())

	require.NoError(t, f.acc.Write(nil))
	res, err := f.acc.Read(nil)
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Zero(t, f.dialer.Attempts)
}

func TestResultJSON(t *testing.T) {
	res := []Result{
		{Name: "Temperature-01", Type: registry.Int, Value: IntValue(38)},
		{Name: "PumpStatus-01", Type: registry.Bool, Value: BoolValue(true)},
	}
	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"name":"Temperature-01","type":"int","value":38},{"name":"PumpStatus-01","type":"bool","value":true}]`,
		string(b))
}

func TestParseAssignment(t *testing.T) {
	as, err := ParseAssignment("Temperature-01=38")
	require.NoError(t, err)
	assert.Equal(t, Assignment{Name: "Temperature-01", Value: "38"}, as)

	_, err = ParseAssignment("novalue")
	assert.Error(t, err)
	_, err = ParseAssignment("=1")
	assert.Error(t, err)
}

func TestScenarioOverTCP(t *testing.T) {
	srv := transporttest.StartServer(t)

	s, err := session.New(session.Config{Host: srv.Host(), Port: srv.Port(), UnitID: 1, Timeout: time.Second},
		transport.Dialer(tmodbus.Dialer{}), zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	a, err := New(scenarioRegistry(), s, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, a.Write([]Assignment{
		{Name: "Temperature-01", Value: 38},
		{Name: "PumpStatus-01", Value: true},
	}))

	res, err := a.Read([]string{"Temperature-01", "PumpStatus-01"})
	require.NoError(t, err)
	assert.Equal(t, IntValue(38), res[0].Value)
	assert.Equal(t, BoolValue(true), res[1].Value)

	// server drops us; next call reconnects transparently
	srv.DropConns()
	_, _ = a.Read([]string{"Temperature-01"})
	res, err = a.Read([]string{"Temperature-01"})
	require.NoError(t, err)
	assert.Equal(t, IntValue(38), res[0].Value)
}
