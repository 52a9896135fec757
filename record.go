package reporter

import (
	"errors"
	"fmt"
)

// Percentile keys as produced by the upstream aggregator. Keys are optional
// in a Record; an absent key is reported on the wire as zero.
const (
	PercentileMin = "0.0"
	Percentile90  = "90.0"
	Percentile95  = "95.0"
	Percentile99  = "99.0"
	PercentileMax = "100.0"
)

// ErrorClass is one distinct class of failures observed during an
// aggregation window, e.g. all HTTP 503 responses with the same message.
type ErrorClass struct {
	Message string `json:"msg"`
	Code    string `json:"rc"`
	Count   int64  `json:"cnt"`
}

// Record is the aggregate of one time window for one logical operation.
// Records are produced by the load-testing engine's aggregator and are
// never mutated once handed to the reporter.
type Record struct {
	// Label names the logical operation, e.g. a transaction or request name.
	Label string `json:"label"`

	// Timestamp is the window end time in seconds since the epoch.
	Timestamp int64 `json:"ts"`

	SampleCount  int64 `json:"succ"`
	FailureCount int64 `json:"fail"`

	// Response times are in seconds.
	AvgResponseTime    float64 `json:"avg_rt"`
	StdDevResponseTime float64 `json:"stdev_rt"`
	AvgLatency         float64 `json:"avg_lt"`

	// Percentiles maps a percentile key ("90.0", "100.0", ...) to a
	// response time in seconds.
	Percentiles map[string]float64 `json:"perc,omitempty"`

	// Concurrency is the instantaneous active-thread count at window end.
	Concurrency int64 `json:"concurrency"`

	// ByteCount is the total bytes transferred during the window.
	ByteCount int64 `json:"bytes"`

	Errors []ErrorClass `json:"errors,omitempty"`
}

// Validate reports whether the record is well formed enough to serialize.
// A malformed record is rejected outright rather than rendered with
// corrupt field values; only absent percentile keys default to zero.
func (r *Record) Validate() error {
	if r.Label == "" {
		return errors.New("label is required")
	}
	if r.Timestamp < 0 {
		return fmt.Errorf("negative timestamp %d", r.Timestamp)
	}
	if r.SampleCount < 0 {
		return fmt.Errorf("negative sample count %d", r.SampleCount)
	}
	if r.FailureCount < 0 {
		return fmt.Errorf("negative failure count %d", r.FailureCount)
	}
	if r.FailureCount > r.SampleCount {
		return fmt.Errorf("failure count %d exceeds sample count %d", r.FailureCount, r.SampleCount)
	}
	if r.ByteCount < 0 {
		return fmt.Errorf("negative byte count %d", r.ByteCount)
	}
	if r.AvgResponseTime < 0 || r.StdDevResponseTime < 0 || r.AvgLatency < 0 {
		return errors.New("negative response time")
	}
	return nil
}
