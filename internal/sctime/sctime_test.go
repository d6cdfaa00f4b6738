package sctime

import (
	"testing"
	"time"
)

func TestRoundTrip(t *testing.T) {
	c := NewClock(-6)
	want := time.Date(2025, time.January, 15, 9, 30, 0, 0, time.UTC)
	ts := c.FromTime(want)
	if got := c.ToTime(ts); !got.Equal(want) {
		t.Fatalf("round trip: got %v want %v", got, want)
	}
}

func TestDateString(t *testing.T) {
	c := NewClock(0)
	ts := c.FromTime(time.Date(2022, time.September, 6, 23, 59, 59, 0, time.UTC))
	if got := c.DateString(ts); got != "20220906" {
		t.Fatalf("date string: got %s want 20220906", got)
	}
}

func TestTimeOfDay(t *testing.T) {
	c := NewClock(0)
	ts := c.FromTime(time.Date(2025, time.March, 3, 9, 15, 0, 0, time.UTC))
	want := int64(9*3600+15*60) * 1e6
	if got := c.TimeOfDay(ts); got != want {
		t.Fatalf("time of day: got %d want %d", got, want)
	}
}

func TestTimeOfDayWithOffset(t *testing.T) {
	// A record stamped 02:00 UTC read with a -6h offset lands on the
	// previous local day at 20:00.
	utc := NewClock(0)
	ts := utc.FromTime(time.Date(2025, time.March, 3, 2, 0, 0, 0, time.UTC))
	local := NewClock(-6)
	want := int64(20*3600) * 1e6
	if got := local.TimeOfDay(ts); got != want {
		t.Fatalf("time of day: got %d want %d", got, want)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("09:15:30")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := int64(9*3600+15*60+30) * 1e6
	if got != want {
		t.Fatalf("parse: got %d want %d", got, want)
	}
	if _, err := ParseTimeOfDay("9am"); err == nil {
		t.Fatalf("expected error for malformed time")
	}
}
