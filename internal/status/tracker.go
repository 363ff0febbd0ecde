// internal/status/tracker.go
package status

import (
	"errors"

	"github.com/tamzrod/modbus-driver/internal/fault"
)

// Tracker folds telemetry outcomes into a Snapshot.
// Not safe for concurrent use; owned by one telemetry loop.
type Tracker struct {
	snap Snapshot
}

func (t *Tracker) Snapshot() Snapshot { return t.snap }

// Observe records one telemetry outcome and reports whether the snapshot changed.
func (t *Tracker) Observe(err error) bool {
	changed := false

	if err == nil {
		// Recovery / OK
		if t.snap.Health != HealthOK {
			t.snap.Health = HealthOK
			changed = true
		}
		if t.snap.LastErrorCode != 0 {
			t.snap.LastErrorCode = 0
			changed = true
		}
		if t.snap.SecondsInError != 0 {
			t.snap.SecondsInError = 0
			changed = true
		}
		return changed
	}

	if t.snap.Health != HealthError {
		t.snap.Health = HealthError
		changed = true
	}
	code := ErrorCode(err)
	if t.snap.LastErrorCode != code {
		t.snap.LastErrorCode = code
		changed = true
	}
	// seconds_in_error advances on Tick only
	return changed
}

// Tick advances seconds_in_error while not OK. Call at 1 Hz.
func (t *Tracker) Tick() bool {
	if t.snap.Health == HealthOK {
		return false
	}
	if t.snap.SecondsInError >= SecondsInErrorMax {
		return false
	}
	t.snap.SecondsInError++
	return true
}

// ErrorCode extracts a best-effort uint16 code from an error without assuming concrete types.
// A Modbus exception code wins; otherwise the driver error kind is used.
// If the error exposes neither, returns ErrorCodeGeneric.
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	type modbusCoder interface{ ModbusCode() uint16 }

	var mc modbusCoder
	if errors.As(err, &mc) {
		return mc.ModbusCode()
	}
	if k := fault.KindOf(err); k != fault.KindUnknown {
		return ErrorCodeKindBase + uint16(k)
	}
	return ErrorCodeGeneric
}
