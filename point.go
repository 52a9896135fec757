package reporter

import (
	"time"

	protocol "github.com/influxdata/line-protocol"
)

// Point is a single wire fact under construction: a named tag set, an
// ordered field set and a timestamp. It implements protocol.Metric so it
// interoperates with line-protocol tooling, but the reporter renders it
// with its own encoder because the JMeter backend-listener dialect differs
// from stock line protocol (plain integers without the "i" suffix,
// millisecond timestamps, unescaped tag values).
type Point struct {
	name      string
	tags      []*protocol.Tag
	fields    []*protocol.Field
	timestamp time.Time
}

func NewPoint(name string, timestamp time.Time) *Point {
	return &Point{name: name, timestamp: timestamp}
}

func (p *Point) Name() string {
	return p.name
}

func (p *Point) Time() time.Time {
	return p.timestamp
}

func (p *Point) TagList() []*protocol.Tag {
	return p.tags
}

func (p *Point) FieldList() []*protocol.Field {
	return p.fields
}

// AddTag appends a tag. Tags render in insertion order, not sorted; the
// consumer schema is positional in practice.
func (p *Point) AddTag(key, value string) {
	p.tags = append(p.tags, &protocol.Tag{
		Key:   key,
		Value: value,
	})
}

// AddField appends a field. Supported value types are int, int64, float64
// and string.
func (p *Point) AddField(key string, value interface{}) {
	p.fields = append(p.fields, &protocol.Field{
		Key:   key,
		Value: value,
	})
}
