// internal/status/constants.go
package status

// ---- HEALTH CODES ----

// HealthUnknown represents an unknown or boot state.
const HealthUnknown uint16 = 0

// HealthOK represents a healthy device.
const HealthOK uint16 = 1

// HealthError represents a device error state.
const HealthError uint16 = 2

// ---- LIMITS ----

// SecondsInErrorMax caps the error duration counter. It never wraps.
const SecondsInErrorMax uint16 = 65535

// ---- ERROR CODES ----

// ErrorCodeGeneric is reported when an error carries no better code.
const ErrorCodeGeneric uint16 = 1

// ErrorCodeKindBase offsets driver error kinds above the Modbus exception range.
const ErrorCodeKindBase uint16 = 0x100
