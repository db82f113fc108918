package models

import "time"

// NullableID maps a zero id to NULL
func NullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

// IDValue maps NULL back to a zero id
func IDValue(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

// ToMillis converts t to the stored date representation
func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts a stored date to UTC time
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
