package telemetry

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Point is one telemetry measurement in the influx data model: a
// measurement name, indexed tags, typed field values, and a nanosecond
// timestamp.
type Point struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]any
	TimestampNS int64
}

// Line renders the point in influx line protocol. Tag and field keys are
// emitted in sorted order so output is deterministic.
func (p Point) Line() string {
	var b strings.Builder
	b.WriteString(escapeMeasurement(p.Measurement))

	for _, k := range sortedKeys(p.Tags) {
		b.WriteByte(',')
		b.WriteString(escapeTag(k))
		b.WriteByte('=')
		b.WriteString(escapeTag(p.Tags[k]))
	}

	b.WriteByte(' ')
	fieldKeys := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		fieldKeys = append(fieldKeys, k)
	}
	sort.Strings(fieldKeys)
	for i, k := range fieldKeys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(escapeTag(k))
		b.WriteByte('=')
		b.WriteString(formatField(p.Fields[k]))
	}

	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(p.TimestampNS, 10))
	return b.String()
}

func formatField(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case int:
		return strconv.FormatInt(int64(x), 10) + "i"
	case int64:
		return strconv.FormatInt(x, 10) + "i"
	case bool:
		return strconv.FormatBool(x)
	case string:
		return strconv.Quote(x)
	default:
		return strconv.Quote(fmt.Sprint(x))
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// escapeMeasurement escapes commas and spaces in measurement names.
func escapeMeasurement(s string) string {
	s = strings.ReplaceAll(s, ",", `\,`)
	return strings.ReplaceAll(s, " ", `\ `)
}

// escapeTag escapes commas, equals signs, and spaces in tag keys, tag
// values, and field keys.
func escapeTag(s string) string {
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, "=", `\=`)
	return strings.ReplaceAll(s, " ", `\ `)
}
