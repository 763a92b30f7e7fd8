// Package otel registers observable OTel instruments that read engine
// snapshots on every collection. The caller owns the MeterProvider.
package otel
