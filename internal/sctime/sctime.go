// Package sctime converts Sierra Chart timestamps (microseconds since
// 1899-12-30 plus a configured UTC offset) to and from calendar time.
package sctime

import (
	"fmt"
	"time"
)

// DayMicros is the length of one calendar day in microseconds.
const DayMicros int64 = 24 * 60 * 60 * 1e6

var epoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Clock converts raw record timestamps using a fixed UTC offset, the same
// offset the charting platform applied when the files were written.
type Clock struct {
	offsetMicros int64
}

// NewClock returns a Clock for the given UTC offset in hours. Fractional
// offsets (e.g. 5.5 for IST) are supported.
func NewClock(utcOffsetHours float64) Clock {
	return Clock{offsetMicros: int64(utcOffsetHours * 3.6e9)}
}

// LocalMicros shifts a record timestamp into local-time microseconds since
// the epoch.
func (c Clock) LocalMicros(ts int64) int64 {
	return ts + c.offsetMicros
}

// ToTime converts a record timestamp to a calendar time.
func (c Clock) ToTime(ts int64) time.Time {
	return epoch.Add(time.Duration(c.LocalMicros(ts)) * time.Microsecond)
}

// FromTime converts a calendar time back to a record timestamp.
func (c Clock) FromTime(t time.Time) int64 {
	return t.Sub(epoch).Microseconds() - c.offsetMicros
}

// DateString returns the local calendar date of a timestamp as YYYYMMDD,
// matching the date segment of depth file names.
func (c Clock) DateString(ts int64) string {
	return c.ToTime(ts).Format("20060102")
}

// TimeOfDay returns the local time of day of a timestamp, in microseconds
// since midnight.
func (c Clock) TimeOfDay(ts int64) int64 {
	tod := c.LocalMicros(ts) % DayMicros
	if tod < 0 {
		tod += DayMicros
	}
	return tod
}

// ParseTimeOfDay parses a HH:MM:SS clock string into microseconds since
// midnight.
func ParseTimeOfDay(s string) (int64, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return int64(t.Hour())*3600e6 + int64(t.Minute())*60e6 + int64(t.Second())*1e6, nil
}
