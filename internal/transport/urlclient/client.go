// internal/transport/urlclient/client.go
package urlclient

import (
	"errors"
	"fmt"

	"github.com/simonvetter/modbus"

	"github.com/tamzrod/modbus-driver/internal/transport"
)

// Client is a Modbus connection backed by simonvetter/modbus (tcp:// URLs).
type Client struct {
	mc      *modbus.ModbusClient
	unitID  uint8
	unitSet bool
	alive   bool
}

// Dialer opens simonvetter TCP connections.
type Dialer struct{}

func (Dialer) Dial(ep transport.Endpoint) (transport.Conn, error) {
	c, err := New(ep)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// New creates and opens a client.
func New(ep transport.Endpoint) (*Client, error) {
	if ep.Host == "" {
		return nil, errors.New("url transport: host required")
	}

	mc, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     "tcp://" + ep.Address(),
		Timeout: ep.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("url transport: %w", err)
	}
	if err := mc.Open(); err != nil {
		return nil, err
	}

	return &Client{mc: mc, alive: true}, nil
}

func (c *Client) Connected() bool {
	return c != nil && c.mc != nil && c.alive
}

func (c *Client) Close() error {
	if c == nil || c.mc == nil {
		return nil
	}
	c.alive = false
	return c.mc.Close()
}

func (c *Client) ReadCoils(unitID uint8, addr, qty uint16) ([]bool, error) {
	c.setUnit(unitID)
	v, err := c.mc.ReadCoils(addr, qty)
	if err != nil {
		return nil, c.fail(err)
	}
	return v, nil
}

func (c *Client) ReadHoldingRegisters(unitID uint8, addr, qty uint16) ([]uint16, error) {
	c.setUnit(unitID)
	v, err := c.mc.ReadRegisters(addr, qty, modbus.HOLDING_REGISTER)
	if err != nil {
		return nil, c.fail(err)
	}
	return v, nil
}

func (c *Client) WriteSingleCoil(unitID uint8, addr uint16, value bool) error {
	c.setUnit(unitID)
	return c.fail(c.mc.WriteCoil(addr, value))
}

func (c *Client) WriteSingleRegister(unitID uint8, addr, value uint16) error {
	c.setUnit(unitID)
	return c.fail(c.mc.WriteRegister(addr, value))
}

func (c *Client) setUnit(unitID uint8) {
	if c.unitSet && c.unitID == unitID {
		return
	}
	c.mc.SetUnitId(unitID)
	c.unitID = unitID
	c.unitSet = true
}

// exceptionCodes maps the library's exception sentinels to Modbus exception codes.
var exceptionCodes = []struct {
	err  error
	code uint16
}{
	{modbus.ErrIllegalFunction, 0x01},
	{modbus.ErrIllegalDataAddress, 0x02},
	{modbus.ErrIllegalDataValue, 0x03},
	{modbus.ErrServerDeviceFailure, 0x04},
	{modbus.ErrAcknowledge, 0x05},
	{modbus.ErrServerDeviceBusy, 0x06},
	{modbus.ErrMemoryParityError, 0x08},
	{modbus.ErrGWPathUnavailable, 0x0A},
	{modbus.ErrGWTargetFailedToRespond, 0x0B},
}

// fail marks the connection dead unless the device answered with an exception.
func (c *Client) fail(err error) error {
	if err == nil {
		return nil
	}
	for _, e := range exceptionCodes {
		if errors.Is(err, e.err) {
			return &ExceptionError{Code: e.code, Err: err}
		}
	}
	c.alive = false
	if errors.Is(err, modbus.ErrRequestTimedOut) || transport.IsTimeout(err) {
		return fmt.Errorf("%w: %v", transport.ErrTimeout, err)
	}
	return err
}

// ExceptionError is a device exception response.
type ExceptionError struct {
	Code uint16
	Err  error
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("modbus exception: code=%d: %v", e.Code, e.Err)
}

func (e *ExceptionError) Unwrap() error { return e.Err }

func (e *ExceptionError) ModbusCode() uint16 { return e.Code }
