// internal/telemetry/runner_test.go
package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/modbus-driver/internal/access"
	"github.com/tamzrod/modbus-driver/internal/metrics"
	"github.com/tamzrod/modbus-driver/internal/status"
)

// scriptedReader returns the scripted errors in order, then succeeds.
type scriptedReader struct {
	mu     sync.Mutex
	script []error
	calls  int
}

func (r *scriptedReader) Telemetry() ([]access.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if len(r.script) > 0 {
		err := r.script[0]
		r.script = r.script[1:]
		if err != nil {
			return nil, err
		}
	}
	return []access.Result{{Name: "Temperature-01", Value: access.IntValue(38)}}, nil
}

func startRunner(t *testing.T, reader Reader, interval time.Duration) (<-chan Snapshot, context.CancelFunc) {
	t.Helper()
	f, err := NewFacade(stubConn{}, reader)
	require.NoError(t, err)
	r, err := NewRunner(f, interval, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Snapshot)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx, out)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return out, cancel
}

func next(t *testing.T, out <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s := <-out:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot")
	}
	return Snapshot{}
}

func TestRunner_EmitsImmediately(t *testing.T) {
	out, _ := startRunner(t, &scriptedReader{}, time.Hour)

	s := next(t, out)
	require.NoError(t, s.Err)
	assert.Len(t, s.Values, 1)
	assert.Equal(t, status.HealthOK, s.Health.Health)
}

func TestRunner_HealthFollowsErrors(t *testing.T) {
	boom := errors.New("boom")
	out, _ := startRunner(t, &scriptedReader{script: []error{boom, boom, nil}}, 10*time.Millisecond)

	s := next(t, out)
	assert.ErrorIs(t, s.Err, boom)
	assert.Empty(t, s.Values)
	assert.Equal(t, status.HealthError, s.Health.Health)
	assert.Equal(t, status.ErrorCodeGeneric, s.Health.LastErrorCode)

	s = next(t, out)
	assert.Equal(t, status.HealthError, s.Health.Health)

	s = next(t, out)
	require.NoError(t, s.Err)
	assert.Equal(t, status.Snapshot{Health: status.HealthOK}, s.Health)
	assert.Equal(t, float64(status.HealthOK), testutil.ToFloat64(metrics.Health))
}

func TestRunner_StopsOnCancel(t *testing.T) {
	f, err := NewFacade(stubConn{}, &scriptedReader{})
	require.NoError(t, err)
	r, err := NewRunner(f, 5*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		// nobody reads: Run must still return once cancelled
		r.Run(ctx, make(chan Snapshot))
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestNewRunner_Validates(t *testing.T) {
	_, err := NewRunner(nil, time.Second, zerolog.Nop())
	assert.Error(t, err)

	f, err := NewFacade(stubConn{}, &scriptedReader{})
	require.NoError(t, err)
	_, err = NewRunner(f, 0, zerolog.Nop())
	assert.Error(t, err)
}
