// Package otel provides OpenTelemetry instrumentation for the relay
// pipeline.
package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "testrelay"

// Metrics holds all relay metric instruments.
type Metrics struct {
	GateAllowed      metric.Int64Counter
	GateDenied       metric.Int64Counter
	MergePolls       metric.Int64Counter
	DispatchAccepted metric.Int64Counter
	DispatchFailed   metric.Int64Counter
	WaitDuration     metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.GateAllowed, err = meter.Int64Counter("testrelay.gate.allowed",
		metric.WithDescription("Number of events the gate allowed"))
	if err != nil {
		return nil, err
	}

	m.GateDenied, err = meter.Int64Counter("testrelay.gate.denied",
		metric.WithDescription("Number of events the gate denied"))
	if err != nil {
		return nil, err
	}

	m.MergePolls, err = meter.Int64Counter("testrelay.merge.polls",
		metric.WithDescription("Number of merge-status polls issued"))
	if err != nil {
		return nil, err
	}

	m.DispatchAccepted, err = meter.Int64Counter("testrelay.dispatch.accepted",
		metric.WithDescription("Number of downstream dispatches accepted"))
	if err != nil {
		return nil, err
	}

	m.DispatchFailed, err = meter.Int64Counter("testrelay.dispatch.failed",
		metric.WithDescription("Number of downstream dispatches failed"))
	if err != nil {
		return nil, err
	}

	m.WaitDuration, err = meter.Float64Histogram("testrelay.merge.wait_seconds",
		metric.WithDescription("Merge-commit wait duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
