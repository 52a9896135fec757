package reporter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	protocol "github.com/influxdata/line-protocol"
)

// multi converts response times from seconds to reported milliseconds.
//
// The pct90.0/pct95.0/pct99.0 fields are NOT multiplied: the reference
// schema leaves them in whole seconds while avg/min/max are milliseconds.
// Almost certainly a unit mismatch in the original, but dashboards built
// against it expect these values, so it is preserved verbatim.
const multi = 1000

const (
	eventsMeasurement = "events"
	eventsTitle       = "ApacheJMeter"
)

// Serializer converts aggregated Records into wire lines for the
// JMeter-compatible InfluxDB schema. It is pure: it carries only immutable
// configuration, performs no I/O, and identical input yields identical
// output.
type Serializer struct {
	// Measurement is the measurement name every KPI fact is written under.
	Measurement string
	// Application is the value of the application tag on every fact.
	Application string
}

// Lines renders records, in input order, into one wire line per logical
// fact: a summary line, an internal-concurrency line, then one line per
// error class. Any malformed record fails the whole call; absent
// percentile keys are the only values that default instead of failing.
func (s *Serializer) Lines(records []Record) ([]string, error) {
	points, err := s.Points(records)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(points))
	for _, p := range points {
		lines = append(lines, encodeLine(p))
	}
	return lines, nil
}

// Points is Lines before encoding: the same facts as protocol.Metric
// values, usable with other line-protocol consumers.
func (s *Serializer) Points(records []Record) ([]protocol.Metric, error) {
	var points []protocol.Metric
	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		ts := time.UnixMilli(rec.Timestamp * 1000)
		avg := int64(multi * rec.AvgResponseTime)

		status := "ok"
		if rec.FailureCount > 0 {
			status = "ko"
		}

		var bytesAvg float64
		if rec.SampleCount > 0 {
			bytesAvg = float64(rec.ByteCount) / float64(rec.SampleCount)
		}

		summary := NewPoint(s.Measurement, ts)
		summary.AddTag("application", s.Application)
		summary.AddTag("statut", status)
		summary.AddTag("transaction", rec.Label)
		summary.AddField("count", rec.SampleCount)
		summary.AddField("avg", avg)
		summary.AddField("min", scaledPercentile(rec.Percentiles, PercentileMin))
		summary.AddField("max", scaledPercentile(rec.Percentiles, PercentileMax))
		summary.AddField("pct90.0", wholePercentile(rec.Percentiles, Percentile90))
		summary.AddField("pct95.0", wholePercentile(rec.Percentiles, Percentile95))
		summary.AddField("pct99.0", wholePercentile(rec.Percentiles, Percentile99))
		summary.AddField("maxAT", rec.Concurrency)
		summary.AddField("countError", rec.FailureCount)
		summary.AddField("txnsum", avg*rec.SampleCount)
		summary.AddField("txnstddev", int64(multi*rec.StdDevResponseTime))
		summary.AddField("ltavg", int64(multi*rec.AvgLatency))
		summary.AddField("bytessum", rec.ByteCount)
		summary.AddField("bytesavg", bytesAvg)
		points = append(points, summary)

		// The source engine reports active-thread volume alongside every
		// transaction, but the schema wants it as a separate row.
		internal := NewPoint(s.Measurement, ts)
		internal.AddTag("application", s.Application)
		internal.AddTag("transaction", "internal")
		internal.AddField("minAT", rec.Concurrency)
		internal.AddField("maxAT", rec.Concurrency)
		internal.AddField("meanAT", rec.Concurrency)
		internal.AddField("startedT", rec.Concurrency)
		internal.AddField("endedT", int64(0))
		points = append(points, internal)

		for _, e := range rec.Errors {
			errPoint := NewPoint(s.Measurement, ts)
			errPoint.AddTag("application", s.Application)
			errPoint.AddTag("transaction", rec.Label)
			errPoint.AddTag("responseMessage", e.Message)
			errPoint.AddTag("responseCode", e.Code)
			errPoint.AddField("count", e.Count)
			points = append(points, errPoint)
		}
	}
	return points, nil
}

// EventLine renders a test lifecycle marker under the fixed "events"
// measurement, outside the KPI schema.
func (s *Serializer) EventLine(text string, at time.Time) string {
	p := NewPoint(eventsMeasurement, at)
	p.AddTag("application", s.Application)
	p.AddTag("title", eventsTitle)
	p.AddField("text", text)
	return encodeLine(p)
}

// scaledPercentile reports a percentile in truncated milliseconds, zero
// when the key is absent.
func scaledPercentile(percentiles map[string]float64, key string) int64 {
	v, ok := percentiles[key]
	if !ok {
		return 0
	}
	return int64(multi * v)
}

// wholePercentile reports a percentile truncated to whole seconds, zero
// when the key is absent. See the note on multi.
func wholePercentile(percentiles map[string]float64, key string) int64 {
	v, ok := percentiles[key]
	if !ok {
		return 0
	}
	return int64(v)
}

// encodeLine renders one metric in the backend-listener dialect:
// name,tag=value,... field=value,... <epoch_millis>
//
// Unlike stock line protocol, integers carry no type suffix, floats always
// carry a decimal point, and tag values pass through unescaped.
func encodeLine(m protocol.Metric) string {
	var sb strings.Builder
	sb.WriteString(m.Name())
	for _, tag := range m.TagList() {
		sb.WriteByte(',')
		sb.WriteString(tag.Key)
		sb.WriteByte('=')
		sb.WriteString(tag.Value)
	}
	sb.WriteByte(' ')
	for i, field := range m.FieldList() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(field.Key)
		sb.WriteByte('=')
		sb.WriteString(fieldValue(field.Value))
	}
	sb.WriteByte(' ')
	sb.WriteString(strconv.FormatInt(m.Time().UnixMilli(), 10))
	return sb.String()
}

func fieldValue(v interface{}) string {
	switch v := v.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	case string:
		return `"` + v + `"`
	default:
		return fmt.Sprint(v)
	}
}
