// internal/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modbus_driver_operations_total",
		Help: "Typed read/write/telemetry operations by outcome.",
	}, []string{"op", "status"})

	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "modbus_driver_operation_duration_seconds",
		Help:    "Wall time of typed operations including reconnect.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	ConnectAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modbus_driver_connect_attempts_total",
		Help: "Connection attempts by outcome.",
	}, []string{"status"})

	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modbus_driver_reconnects_total",
		Help: "Reconnect attempts after a dead, dropped or closed connection. The first connect is not counted.",
	})

	Connected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modbus_driver_connected",
		Help: "Number of sessions currently connected.",
	})

	Health = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modbus_driver_health_code",
		Help: "Last device health code (0 unknown, 1 ok, 2 error).",
	})

	SecondsInError = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modbus_driver_seconds_in_error",
		Help: "Seconds the device has been out of the ok state, capped at 65535.",
	})
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

func statusOf(err error) string {
	if err != nil {
		return StatusFailed
	}
	return StatusSuccess
}

// ObserveOp records one typed operation.
func ObserveOp(op string, start time.Time, err error) {
	Operations.WithLabelValues(op, statusOf(err)).Inc()
	OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// ObserveConnect records one connection attempt.
func ObserveConnect(err error) {
	ConnectAttempts.WithLabelValues(statusOf(err)).Inc()
}
