// internal/telemetry/runner.go
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-driver/internal/metrics"
	"github.com/tamzrod/modbus-driver/internal/status"
)

// Runner polls the facade on a fixed interval and tracks device health.
type Runner struct {
	facade   *Facade
	interval time.Duration
	log      zerolog.Logger

	tracker status.Tracker
}

func NewRunner(f *Facade, interval time.Duration, log zerolog.Logger) (*Runner, error) {
	if f == nil {
		return nil, errors.New("telemetry: facade required")
	}
	if interval <= 0 {
		return nil, errors.New("telemetry: interval must be > 0")
	}
	return &Runner{facade: f, interval: interval, log: log}, nil
}

// Run emits one Snapshot immediately and then one per interval until ctx is done.
// One pass at a time. No overlap. No retries beyond the session's own reconnect.
func (r *Runner) Run(ctx context.Context, out chan<- Snapshot) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	if !r.emit(ctx, out) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if !r.emit(ctx, out) {
				return
			}

		case <-secTicker.C:
			// Tick 1 Hz while not OK.
			if r.tracker.Tick() {
				r.publish()
			}
		}
	}
}

func (r *Runner) emit(ctx context.Context, out chan<- Snapshot) bool {
	snap, err := r.facade.Snapshot()

	prev := r.tracker.Snapshot().Health
	if r.tracker.Observe(err) {
		r.publish()
	}
	health := r.tracker.Snapshot()
	snap.Health = health

	switch {
	case err != nil && prev != status.HealthError:
		r.log.Warn().Err(err).Uint16("error_code", health.LastErrorCode).Msg("telemetry failing")
	case err == nil && prev == status.HealthError:
		r.log.Info().Msg("telemetry recovered")
	}

	select {
	case out <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *Runner) publish() {
	s := r.tracker.Snapshot()
	metrics.Health.Set(float64(s.Health))
	metrics.SecondsInError.Set(float64(s.SecondsInError))
}
