package internaldefs

import (
	"github.com/MForofontov/sessionauth"
)

// CounterDef names an exported counter.
type CounterDef struct {
	ID   sessionauth.MetricID
	Name string
	Help string
}

// HistogramDef names an exported histogram.
type HistogramDef struct {
	ID   sessionauth.MetricID
	Name string
	Help string
}

// AuditDroppedName is exported alongside the engine counters.
const (
	AuditDroppedName = "sessionauth_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

var CounterDefs = []CounterDef{
	{ID: sessionauth.MetricIssue, Name: "sessionauth_issue_total", Help: "Token pairs issued."},
	{ID: sessionauth.MetricLoginSuccess, Name: "sessionauth_login_success_total", Help: "Successful logins."},
	{ID: sessionauth.MetricLoginFailure, Name: "sessionauth_login_failure_total", Help: "Failed logins."},
	{ID: sessionauth.MetricRefreshSuccess, Name: "sessionauth_refresh_success_total", Help: "Successful refreshes."},
	{ID: sessionauth.MetricRefreshRotated, Name: "sessionauth_refresh_rotated_total", Help: "Refreshes that rotated the refresh token."},
	{ID: sessionauth.MetricRefreshMissing, Name: "sessionauth_refresh_missing_total", Help: "Refreshes without a refresh token."},
	{ID: sessionauth.MetricRefreshInvalid, Name: "sessionauth_refresh_invalid_total", Help: "Refreshes with an invalid refresh token."},
	{ID: sessionauth.MetricRefreshExpired, Name: "sessionauth_refresh_expired_total", Help: "Refreshes with an expired refresh token."},
	{ID: sessionauth.MetricRefreshRevoked, Name: "sessionauth_refresh_revoked_total", Help: "Refreshes with a blacklisted refresh token."},
	{ID: sessionauth.MetricRefreshReuseRace, Name: "sessionauth_refresh_reuse_race_total", Help: "Rotations lost to a concurrent refresh of the same token."},
	{ID: sessionauth.MetricRefreshInternal, Name: "sessionauth_refresh_internal_error_total", Help: "Refreshes that failed on a backend error."},
	{ID: sessionauth.MetricRevocationRecorded, Name: "sessionauth_revocation_recorded_total", Help: "Refresh token ids written to the revocation store."},
	{ID: sessionauth.MetricLogout, Name: "sessionauth_logout_total", Help: "Logouts that revoked a refresh token."},
	{ID: sessionauth.MetricAuthenticateSuccess, Name: "sessionauth_authenticate_success_total", Help: "Accepted access tokens."},
	{ID: sessionauth.MetricAuthenticateFailure, Name: "sessionauth_authenticate_failure_total", Help: "Rejected access tokens."},
}

var HistogramDefs = []HistogramDef{
	{ID: sessionauth.MetricRefreshLatency, Name: "sessionauth_refresh_latency_seconds", Help: "Refresh latency."},
}

// HistogramBounds are the upper bounds in seconds of the first seven engine
// buckets. The eighth bucket is +Inf.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the engine's eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
