// internal/transport/modbus/client.go
package modbus

import (
	"errors"
	"fmt"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/modbus-driver/internal/transport"
)

const (
	coilOn  uint16 = 0xFF00
	coilOff uint16 = 0x0000
)

// Client is a single Modbus TCP connection backed by goburrow.
// It mutates SlaveId per request, so callers must serialize access.
type Client struct {
	handler *modbus.TCPClientHandler
	client  modbus.Client
	alive   bool
}

// Dialer opens goburrow TCP connections.
type Dialer struct{}

// Dial connects once. No retries.
func (Dialer) Dial(ep transport.Endpoint) (transport.Conn, error) {
	c, err := New(ep)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// New creates a connected client.
func New(ep transport.Endpoint) (*Client, error) {
	if ep.Host == "" {
		return nil, errors.New("modbus transport: host required")
	}

	h := modbus.NewTCPClientHandler(ep.Address())
	h.Timeout = ep.Timeout

	if err := h.Connect(); err != nil {
		return nil, err
	}

	return &Client{
		handler: h,
		client:  modbus.NewClient(h),
		alive:   true,
	}, nil
}

func (c *Client) Connected() bool {
	return c != nil && c.handler != nil && c.alive
}

func (c *Client) Close() error {
	if c == nil || c.handler == nil {
		return nil
	}
	c.alive = false
	return c.handler.Close()
}

func (c *Client) ReadCoils(unitID uint8, addr, qty uint16) ([]bool, error) {
	c.handler.SlaveId = unitID

	b, err := c.client.ReadCoils(addr, qty)
	if err != nil {
		return nil, c.fail(err)
	}
	if len(b)*8 < int(qty) {
		return nil, fmt.Errorf("modbus transport: short coil response: %d bytes for %d coils", len(b), qty)
	}
	return unpackBits(b, int(qty)), nil
}

func (c *Client) ReadHoldingRegisters(unitID uint8, addr, qty uint16) ([]uint16, error) {
	c.handler.SlaveId = unitID

	b, err := c.client.ReadHoldingRegisters(addr, qty)
	if err != nil {
		return nil, c.fail(err)
	}
	if len(b) < int(qty)*2 {
		return nil, fmt.Errorf("modbus transport: short register response: %d bytes for %d registers", len(b), qty)
	}
	return unpackRegisters(b), nil
}

func (c *Client) WriteSingleCoil(unitID uint8, addr uint16, value bool) error {
	c.handler.SlaveId = unitID

	v := coilOff
	if value {
		v = coilOn
	}
	_, err := c.client.WriteSingleCoil(addr, v)
	return c.fail(err)
}

func (c *Client) WriteSingleRegister(unitID uint8, addr, value uint16) error {
	c.handler.SlaveId = unitID

	_, err := c.client.WriteSingleRegister(addr, value)
	return c.fail(err)
}

// fail marks the connection dead on anything other than a device exception.
// A timed-out stream may still carry a late response, so it is dead too.
func (c *Client) fail(err error) error {
	if err == nil {
		return nil
	}
	var mbErr *modbus.ModbusError
	if errors.As(err, &mbErr) {
		return &ExceptionError{Function: mbErr.FunctionCode, Exception: mbErr.ExceptionCode}
	}
	c.alive = false
	if transport.IsTimeout(err) {
		return fmt.Errorf("%w: %v", transport.ErrTimeout, err)
	}
	return err
}

// ExceptionError is a Modbus exception response from the device.
type ExceptionError struct {
	Function  byte
	Exception byte
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("modbus exception: fc=%d code=%d", e.Function, e.Exception)
}

// ModbusCode exposes the exception code for status reporting.
func (e *ExceptionError) ModbusCode() uint16 { return uint16(e.Exception) }

// ---- helpers (pure geometry) ----

func unpackBits(data []byte, count int) []bool {
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		byteIdx := i / 8
		bitIdx := i % 8
		if byteIdx >= len(data) {
			continue
		}
		out[i] = data[byteIdx]&(1<<bitIdx) != 0
	}
	return out
}

func unpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}
