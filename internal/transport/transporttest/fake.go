// internal/transport/transporttest/fake.go
package transporttest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tamzrod/modbus-driver/internal/transport"
)

// Call records one transport primitive invocation.
type Call struct {
	Op     string // "ReadCoils", "ReadHoldingRegisters", "WriteSingleCoil", "WriteSingleRegister"
	UnitID uint8
	Addr   uint16
	Value  uint16 // written value; coils as 0/1
}

func (c Call) String() string {
	return fmt.Sprintf("%s(%d,%d,%d)", c.Op, c.UnitID, c.Addr, c.Value)
}

// Memory is a device image that echoes last-written values.
// Coil and register spaces are separate.
type Memory struct {
	mu    sync.Mutex
	Coils map[uint16]bool
	Regs  map[uint16]uint16
}

func NewMemory() *Memory {
	return &Memory{Coils: map[uint16]bool{}, Regs: map[uint16]uint16{}}
}

func (m *Memory) Coil(addr uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Coils[addr]
}

func (m *Memory) Register(addr uint16) uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Regs[addr]
}

func (m *Memory) SetCoil(addr uint16, v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Coils[addr] = v
}

func (m *Memory) SetRegister(addr, v uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Regs[addr] = v
}

// Conn is an in-memory transport.Conn.
type Conn struct {
	Mem   *Memory
	Calls []Call

	// FailOn makes the named op fail with Err. FailAfter skips that many
	// successful calls of the op first.
	FailOn    string
	FailAfter int
	Err       error

	// ShortReads returns empty slices from read primitives.
	ShortReads bool

	Dead   bool
	Closed bool
}

func NewConn(mem *Memory) *Conn {
	if mem == nil {
		mem = NewMemory()
	}
	return &Conn{Mem: mem}
}

var ErrInjected = errors.New("transporttest: injected failure")

func (c *Conn) check(op string) error {
	if c.Closed {
		return errors.New("transporttest: use of closed connection")
	}
	if c.FailOn != op {
		return nil
	}
	if c.FailAfter > 0 {
		c.FailAfter--
		return nil
	}
	if c.Err != nil {
		return c.Err
	}
	return ErrInjected
}

func (c *Conn) ReadCoils(unitID uint8, addr, qty uint16) ([]bool, error) {
	c.Calls = append(c.Calls, Call{Op: "ReadCoils", UnitID: unitID, Addr: addr})
	if err := c.check("ReadCoils"); err != nil {
		return nil, err
	}
	if c.ShortReads {
		return []bool{}, nil
	}
	out := make([]bool, qty)
	for i := range out {
		out[i] = c.Mem.Coil(addr + uint16(i))
	}
	return out, nil
}

func (c *Conn) ReadHoldingRegisters(unitID uint8, addr, qty uint16) ([]uint16, error) {
	c.Calls = append(c.Calls, Call{Op: "ReadHoldingRegisters", UnitID: unitID, Addr: addr})
	if err := c.check("ReadHoldingRegisters"); err != nil {
		return nil, err
	}
	if c.ShortReads {
		return []uint16{}, nil
	}
	out := make([]uint16, qty)
	for i := range out {
		out[i] = c.Mem.Register(addr + uint16(i))
	}
	return out, nil
}

func (c *Conn) WriteSingleCoil(unitID uint8, addr uint16, value bool) error {
	var v uint16
	if value {
		v = 1
	}
	c.Calls = append(c.Calls, Call{Op: "WriteSingleCoil", UnitID: unitID, Addr: addr, Value: v})
	if err := c.check("WriteSingleCoil"); err != nil {
		return err
	}
	c.Mem.SetCoil(addr, value)
	return nil
}

func (c *Conn) WriteSingleRegister(unitID uint8, addr, value uint16) error {
	c.Calls = append(c.Calls, Call{Op: "WriteSingleRegister", UnitID: unitID, Addr: addr, Value: value})
	if err := c.check("WriteSingleRegister"); err != nil {
		return err
	}
	c.Mem.SetRegister(addr, value)
	return nil
}

func (c *Conn) Connected() bool { return !c.Dead && !c.Closed }

func (c *Conn) Close() error {
	c.Closed = true
	return nil
}

// Dialer hands out Conns over one shared Memory and records every attempt.
type Dialer struct {
	Mem *Memory

	// Fail makes every Dial fail while set.
	Fail bool
	// Configure, when set, is applied to every new Conn.
	Configure func(*Conn)

	Dials     []transport.Endpoint
	Conns     []*Conn
	Attempts  int
	Successes int
}

func NewDialer() *Dialer {
	return &Dialer{Mem: NewMemory()}
}

var ErrRefused = errors.New("transporttest: connection refused")

func (d *Dialer) Dial(ep transport.Endpoint) (transport.Conn, error) {
	d.Attempts++
	d.Dials = append(d.Dials, ep)
	if d.Fail {
		return nil, ErrRefused
	}
	c := NewConn(d.Mem)
	if d.Configure != nil {
		d.Configure(c)
	}
	d.Conns = append(d.Conns, c)
	d.Successes++
	return c, nil
}

// Last returns the most recent Conn, or nil.
func (d *Dialer) Last() *Conn {
	if len(d.Conns) == 0 {
		return nil
	}
	return d.Conns[len(d.Conns)-1]
}

// Calls returns the calls made on every Conn, in order.
func (d *Dialer) Calls() []Call {
	var out []Call
	for _, c := range d.Conns {
		out = append(out, c.Calls...)
	}
	return out
}
