// Package prometheus exposes engine counters and the refresh latency histogram
// through a client_golang Collector. Counters are named sessionauth_*_total;
// the histogram is sessionauth_refresh_latency_seconds.
//
// Nothing is registered globally. Callers build a registry with [NewRegistry]
// and mount [Handler].
package prometheus
