// internal/access/value.go
package access

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tamzrod/modbus-driver/internal/registry"
)

// Value is a tagged union over the registry's value types.
type Value struct {
	typ registry.ValueType
	b   bool
	i   int64
}

func BoolValue(b bool) Value { return Value{typ: registry.Bool, b: b} }

func IntValue(i int64) Value { return Value{typ: registry.Int, i: i} }

func (v Value) Type() registry.ValueType { return v.typ }

// Bool returns the boolean payload; ok is false for other types.
func (v Value) Bool() (b bool, ok bool) { return v.b, v.typ == registry.Bool }

// Int returns the integer payload; ok is false for other types.
func (v Value) Int() (i int64, ok bool) { return v.i, v.typ == registry.Int }

// Interface returns the payload as bool or int64, nil when unset.
func (v Value) Interface() any {
	switch v.typ {
	case registry.Bool:
		return v.b
	case registry.Int:
		return v.i
	}
	return nil
}

func (v Value) String() string {
	switch v.typ {
	case registry.Bool:
		return strconv.FormatBool(v.b)
	case registry.Int:
		return strconv.FormatInt(v.i, 10)
	}
	return "<invalid>"
}

// MarshalJSON emits the bare payload: true, 38, or null.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Result is one read variable.
type Result struct {
	Name  string             `json:"name"`
	Type  registry.ValueType `json:"type"`
	Value Value              `json:"value"`
}

func (r Result) String() string {
	return fmt.Sprintf("%s(%s)=%s", r.Name, r.Type, r.Value)
}

// Assignment is one write request entry. Value is coerced per the variable's type.
type Assignment struct {
	Name  string
	Value any
}
