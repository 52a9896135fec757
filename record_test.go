package reporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordValidate(t *testing.T) {
	valid := loginRecord()
	assert.NoError(t, valid.Validate())

	for name, mutate := range map[string]func(*Record){
		"empty label":          func(r *Record) { r.Label = "" },
		"negative timestamp":   func(r *Record) { r.Timestamp = -1 },
		"negative samples":     func(r *Record) { r.SampleCount = -1 },
		"negative failures":    func(r *Record) { r.FailureCount = -1 },
		"failures over total":  func(r *Record) { r.FailureCount = r.SampleCount + 1 },
		"negative bytes":       func(r *Record) { r.ByteCount = -1 },
		"negative avg":         func(r *Record) { r.AvgResponseTime = -0.1 },
		"negative stddev":      func(r *Record) { r.StdDevResponseTime = -0.1 },
		"negative avg latency": func(r *Record) { r.AvgLatency = -0.1 },
	} {
		t.Run(name, func(t *testing.T) {
			rec := loginRecord()
			mutate(&rec)
			assert.Error(t, rec.Validate())
		})
	}
}
