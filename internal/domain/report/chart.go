// Package report holds the read models and chart transforms behind the
// dashboard.
package report

import (
	"bytes"
	"encoding/json"
	"slices"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// DateGrouping is the bucket size used to chart a date range
type DateGrouping int

const (
	GroupByDays DateGrouping = iota
	GroupByMonths
	GroupByYears
)

// String returns the grouping name
func (g DateGrouping) String() string {
	switch g {
	case GroupByDays:
		return "DAYS"
	case GroupByMonths:
		return "MONTHS"
	default:
		return "YEARS"
	}
}

// GroupingOf picks the smallest bucket that spans start..end without
// crossing a boundary of the next larger one: days within one month,
// months within one year, years otherwise. Both ends are read in loc.
func GroupingOf(start, end time.Time, loc *time.Location) DateGrouping {
	start, end = start.In(loc), end.In(loc)
	switch {
	case start.Year() != end.Year():
		return GroupByYears
	case start.Month() != end.Month():
		return GroupByMonths
	default:
		return GroupByDays
	}
}

// DateKey formats t as the key of its bucket: day of month ("1".."31"),
// three-letter month ("Jan") or four-digit year
func DateKey(t time.Time, g DateGrouping, loc *time.Location) string {
	t = t.In(loc)
	switch g {
	case GroupByDays:
		return strconv.Itoa(t.Day())
	case GroupByMonths:
		return t.Month().String()[:3]
	default:
		return strconv.Itoa(t.Year())
	}
}

// DateDomain lists the bucket keys from start to end inclusive. The bucket
// of end is always last.
func DateDomain(start, end time.Time, loc *time.Location) []string {
	g := GroupingOf(start, end, loc)
	var keys []string
	for b := bucketStart(start, g, loc); !b.After(end.In(loc)); b = nextBucket(b, g) {
		keys = append(keys, DateKey(b, g, loc))
	}
	if last := DateKey(end, g, loc); len(keys) == 0 || keys[len(keys)-1] != last {
		keys = append(keys, last)
	}
	return keys
}

// ToDateTimeData sums raw into the buckets of start..end. Every bucket is
// present, in date order, zero when nothing fell into it. Instants on days
// outside the range are ignored.
func ToDateTimeData(raw map[time.Time]decimal.Decimal, start, end time.Time, loc *time.Location) *OrderedMap[decimal.Decimal] {
	g := GroupingOf(start, end, loc)
	out := NewOrderedMap[decimal.Decimal]()
	for _, key := range DateDomain(start, end, loc) {
		out.Set(key, decimal.Zero)
	}

	first := bucketStart(start, GroupByDays, loc)
	last := bucketStart(end, GroupByDays, loc)
	for t, v := range raw {
		day := bucketStart(t, GroupByDays, loc)
		if day.Before(first) || day.After(last) {
			continue
		}
		key := DateKey(t, g, loc)
		sum, _ := out.Get(key)
		out.Set(key, sum.Add(v))
	}
	return out
}

func bucketStart(t time.Time, g DateGrouping, loc *time.Location) time.Time {
	t = t.In(loc)
	switch g {
	case GroupByDays:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	case GroupByMonths:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, loc)
	}
}

func nextBucket(b time.Time, g DateGrouping) time.Time {
	switch g {
	case GroupByDays:
		return b.AddDate(0, 0, 1)
	case GroupByMonths:
		return b.AddDate(0, 1, 0)
	default:
		return b.AddDate(1, 0, 0)
	}
}

// OrderedMap is a string-keyed map that remembers insertion order
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

// NewOrderedMap creates an empty map
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{values: make(map[string]V)}
}

// Set stores v under key. A new key goes last; an existing one keeps its place.
func (m *OrderedMap[V]) Set(key string, v V) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value under key
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in order
func (m *OrderedMap[V]) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Len returns the number of keys
func (m *OrderedMap[V]) Len() int {
	return len(m.keys)
}

// Each calls fn for every entry in order
func (m *OrderedMap[V]) Each(fn func(key string, v V)) {
	for _, k := range m.keys {
		fn(k, m.values[k])
	}
}

// SortKeys reorders the keys with compare
func (m *OrderedMap[V]) SortKeys(compare func(a, b string) int) {
	slices.SortStableFunc(m.keys, compare)
}

// MarshalJSON writes the map as a JSON object in key order
func (m *OrderedMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
