package reporter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSerializer() *Serializer {
	return &Serializer{Measurement: "jmeter", Application: "influx_testing"}
}

func loginRecord() Record {
	return Record{
		Label:           "Login",
		Timestamp:       1000,
		SampleCount:     5,
		FailureCount:    0,
		AvgResponseTime: 0.2,
		Percentiles:     map[string]float64{"90.0": 0.3, "100.0": 0.5},
		Concurrency:     3,
		ByteCount:       1000,
	}
}

func TestLines_Summary(t *testing.T) {
	lines, err := testSerializer().Lines([]Record{loginRecord()})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t,
		"jmeter,application=influx_testing,statut=ok,transaction=Login "+
			"count=5,avg=200,min=0,max=500,pct90.0=0,pct95.0=0,pct99.0=0,"+
			"maxAT=3,countError=0,txnsum=1000,txnstddev=0,ltavg=0,"+
			"bytessum=1000,bytesavg=200.0 1000000",
		lines[0])
	assert.Equal(t,
		"jmeter,application=influx_testing,transaction=internal "+
			"minAT=3,maxAT=3,meanAT=3,startedT=3,endedT=0 1000000",
		lines[1])
}

func TestLines_FailuresFlipStatus(t *testing.T) {
	rec := loginRecord()
	rec.FailureCount = 2
	lines, err := testSerializer().Lines([]Record{rec})
	require.NoError(t, err)

	assert.Contains(t, lines[0], "statut=ko,")
	assert.Contains(t, lines[0], "countError=2,")
}

// avg/min/max/txnstddev/ltavg are reported in truncated milliseconds while
// pct90/95/99 stay in truncated whole seconds. The asymmetry is part of
// the consumer schema.
func TestLines_PercentileScalingAsymmetry(t *testing.T) {
	rec := loginRecord()
	rec.AvgResponseTime = 0.5021
	rec.Percentiles = map[string]float64{"95.0": 0.502}
	lines, err := testSerializer().Lines([]Record{rec})
	require.NoError(t, err)

	assert.Contains(t, lines[0], "avg=502,")
	assert.Contains(t, lines[0], "pct95.0=0,")
}

func TestLines_MissingPercentilesRenderZero(t *testing.T) {
	rec := loginRecord()
	rec.Percentiles = nil
	lines, err := testSerializer().Lines([]Record{rec})
	require.NoError(t, err)

	assert.Contains(t, lines[0], "min=0,max=0,pct90.0=0,pct95.0=0,pct99.0=0,")

	rec.Percentiles = map[string]float64{"90.0": 1.7}
	lines, err = testSerializer().Lines([]Record{rec})
	require.NoError(t, err)
	assert.Contains(t, lines[0], "min=0,max=0,pct90.0=1,pct95.0=0,")
}

func TestLines_ZeroSamplesGuardsByteAverage(t *testing.T) {
	rec := loginRecord()
	rec.SampleCount = 0
	rec.ByteCount = 0
	lines, err := testSerializer().Lines([]Record{rec})
	require.NoError(t, err)

	assert.Contains(t, lines[0], "count=0,")
	assert.Contains(t, lines[0], "bytesavg=0.0 ")
}

func TestLines_FractionalByteAverage(t *testing.T) {
	rec := loginRecord()
	rec.SampleCount = 4
	rec.ByteCount = 1001
	lines, err := testSerializer().Lines([]Record{rec})
	require.NoError(t, err)

	assert.Contains(t, lines[0], "bytesavg=250.25 ")
}

func TestLines_ErrorClasses(t *testing.T) {
	rec := loginRecord()
	rec.FailureCount = 3
	rec.Errors = []ErrorClass{
		{Message: "Internal Server Error", Code: "500", Count: 2},
		{Message: "Gateway Timeout", Code: "504", Count: 1},
	}
	lines, err := testSerializer().Lines([]Record{rec})
	require.NoError(t, err)
	require.Len(t, lines, 4)

	assert.Equal(t,
		"jmeter,application=influx_testing,transaction=Login,"+
			"responseMessage=Internal Server Error,responseCode=500 count=2 1000000",
		lines[2])
	assert.Equal(t,
		"jmeter,application=influx_testing,transaction=Login,"+
			"responseMessage=Gateway Timeout,responseCode=504 count=1 1000000",
		lines[3])
}

func TestLines_Pure(t *testing.T) {
	records := []Record{loginRecord(), loginRecord()}
	records[1].Label = "Logout"
	records[1].FailureCount = 1
	records[1].Errors = []ErrorClass{{Message: "boom", Code: "500", Count: 1}}

	s := testSerializer()
	first, err := s.Lines(records)
	require.NoError(t, err)
	second, err := s.Lines(records)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	// Records render in input order, facts in summary/internal/error order.
	assert.Contains(t, first[0], "transaction=Login ")
	assert.Contains(t, first[2], "transaction=Logout ")
	assert.Contains(t, first[4], "responseMessage=boom,")
}

func TestLines_RejectsMalformedRecord(t *testing.T) {
	rec := loginRecord()
	rec.FailureCount = rec.SampleCount + 1
	_, err := testSerializer().Lines([]Record{loginRecord(), rec})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 1")
}

func TestEventLine(t *testing.T) {
	line := testSerializer().EventLine("TestTitle started", time.UnixMilli(1700000000123))
	assert.Equal(t,
		`events,application=influx_testing,title=ApacheJMeter text="TestTitle started" 1700000000123`,
		line)
}
