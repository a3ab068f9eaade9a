package internaldefs

import (
	authgate "github.com/mwalcott3/authgate"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// CounterDefs is the shared counter catalog for all exporters.
var CounterDefs = []CounterDef{
	{ID: authgate.MetricRegisterSuccess, Name: "authgate_register_success_total", Help: "Successful registrations."},
	{ID: authgate.MetricRegisterDuplicate, Name: "authgate_register_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: authgate.MetricRegisterRejected, Name: "authgate_register_rejected_total", Help: "Registrations rejected by account policy."},
	{ID: authgate.MetricLoginSuccess, Name: "authgate_login_success_total", Help: "Successful login attempts."},
	{ID: authgate.MetricLoginFailure, Name: "authgate_login_failure_total", Help: "Failed login attempts."},
	{ID: authgate.MetricRefreshSuccess, Name: "authgate_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authgate.MetricRefreshFailure, Name: "authgate_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: authgate.MetricRefreshReuseDetected, Name: "authgate_refresh_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: authgate.MetricTokensRevoked, Name: "authgate_tokens_revoked_total", Help: "Refresh tokens revoked."},
	{ID: authgate.MetricTokenPairIssued, Name: "authgate_token_pair_issued_total", Help: "Access/refresh pairs issued."},
}

// HistogramDefs is the shared histogram catalog for all exporters.
var HistogramDefs = []HistogramDef{
	{ID: authgate.MetricValidateLatency, Name: "authgate_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds are the upper bounds of the 8 fixed latency buckets, in
// seconds, as rendered by the Prometheus exporter.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix carries the same bounds in metric-name-safe form for
// the OTel exporter's per-bucket gauges.
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

// NormalizeBuckets widens a raw snapshot slice into the fixed 8-bucket shape.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form both
// exposition formats use.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
