// internal/access/codec.go
package access

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tamzrod/modbus-driver/internal/fault"
	"github.com/tamzrod/modbus-driver/internal/registry"
	"github.com/tamzrod/modbus-driver/internal/transport"
)

// Register width of the transport's holding registers.
const (
	RegisterMin = 0
	RegisterMax = math.MaxUint16
)

// codec binds a value type to its coercion and transport primitives.
type codec struct {
	encode func(raw any) (Value, error)
	read   func(c transport.Conn, unitID uint8, addr uint16) (Value, error)
	write  func(c transport.Conn, unitID uint8, addr uint16, v Value) error
}

var codecs = map[registry.ValueType]codec{
	registry.Bool: {
		encode: encodeBool,
		read: func(c transport.Conn, unitID uint8, addr uint16) (Value, error) {
			bits, err := c.ReadCoils(unitID, addr, 1)
			if err != nil {
				return Value{}, err
			}
			if len(bits) < 1 {
				return Value{}, errors.New("empty coil response")
			}
			return BoolValue(bits[0]), nil
		},
		write: func(c transport.Conn, unitID uint8, addr uint16, v Value) error {
			return c.WriteSingleCoil(unitID, addr, v.b)
		},
	},
	registry.Int: {
		encode: encodeInt,
		read: func(c transport.Conn, unitID uint8, addr uint16) (Value, error) {
			regs, err := c.ReadHoldingRegisters(unitID, addr, 1)
			if err != nil {
				return Value{}, err
			}
			if len(regs) < 1 {
				return Value{}, errors.New("empty register response")
			}
			return IntValue(int64(regs[0])), nil
		},
		write: func(c transport.Conn, unitID uint8, addr uint16, v Value) error {
			return c.WriteSingleRegister(unitID, addr, uint16(v.i))
		},
	},
}

func codecFor(t registry.ValueType) (codec, bool) {
	c, ok := codecs[t]
	return c, ok
}

// ---- coercion ----

// coercionError carries the fault kind; the caller attaches op and variable.
type coercionError struct {
	kind fault.Kind
	err  error
}

func (e *coercionError) Error() string { return e.err.Error() }

func coercionf(format string, args ...any) error {
	return &coercionError{kind: fault.KindTypeCoercion, err: fmt.Errorf(format, args...)}
}

func rangef(format string, args ...any) error {
	return &coercionError{kind: fault.KindValueOutOfRange, err: fmt.Errorf(format, args...)}
}

// encodeBool accepts bool, strings understood by strconv.ParseBool, and the
// numbers 0 and 1. Any other number is not a boolean.
func encodeBool(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Value{}, coercionf("nil is not a boolean")
	case bool:
		return BoolValue(v), nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return Value{}, coercionf("%q is not a boolean", v)
		}
		return BoolValue(b), nil
	}

	n, err := toInt64(raw)
	if err != nil {
		return Value{}, coercionf("%v (%T) is not a boolean", raw, raw)
	}
	switch n {
	case 0:
		return BoolValue(false), nil
	case 1:
		return BoolValue(true), nil
	}
	return Value{}, coercionf("%d is not a boolean, want 0 or 1", n)
}

// encodeInt coerces to int32 first, then checks the register width.
func encodeInt(raw any) (Value, error) {
	n, err := toInt64(raw)
	if err != nil {
		return Value{}, err
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return Value{}, rangef("%d does not fit in int32", n)
	}
	if n < RegisterMin || n > RegisterMax {
		return Value{}, rangef("%d outside register range %d..%d", n, RegisterMin, RegisterMax)
	}
	return IntValue(n), nil
}

func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return fromUint(uint64(v))
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return fromUint(v)
	case float32:
		return fromFloat(float64(v))
	case float64:
		return fromFloat(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, coercionf("%q is not a number", v.String())
		}
		return fromFloat(f)
	case string:
		s := strings.TrimSpace(v)
		n, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return n, nil
		}
		if errors.Is(err, strconv.ErrRange) {
			return 0, rangef("%q overflows int64", v)
		}
		return 0, coercionf("%q is not an integer", v)
	}
	return 0, coercionf("%T is not an integer", raw)
}

func fromUint(u uint64) (int64, error) {
	if u > math.MaxInt64 {
		return 0, rangef("%d overflows int64", u)
	}
	return int64(u), nil
}

func fromFloat(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, coercionf("%v is not an integer", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, rangef("%v overflows int64", f)
	}
	return int64(f), nil
}
