// internal/registry/variable.go
package registry

import (
	"fmt"
	"strings"

	"github.com/tamzrod/modbus-driver/internal/fault"
)

// ValueType is the closed set of logical variable types.
type ValueType uint8

const (
	TypeInvalid ValueType = iota
	Bool                  // coil space
	Int                   // holding-register space
)

// ParseValueType parses a type tag ("bool", "int"). Case-insensitive.
func ParseValueType(s string) (ValueType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bool":
		return Bool, nil
	case "int":
		return Int, nil
	}
	return TypeInvalid, fault.Newf(fault.KindUnsupportedType, "parse type", "", "unsupported type tag %q", s)
}

func (t ValueType) String() string {
	switch t {
	case Bool:
		return "bool"
	case Int:
		return "int"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

func (t ValueType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ValueType) UnmarshalText(b []byte) error {
	v, err := ParseValueType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// VariableConfig maps a variable to its device address.
// Register is a coil index for Bool and a holding-register index for Int.
type VariableConfig struct {
	Register uint16
	Type     ValueType
}

// Entry is one named variable, used to build a Registry in order.
type Entry struct {
	Name string
	VariableConfig
}
