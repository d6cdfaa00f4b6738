package processor

import (
	"testing"
	"time"

	"scflow/internal/sctime"
	"scflow/models"
)

var testClock = sctime.NewClock(0)

func tsAt(t *testing.T, h, m, s int) int64 {
	t.Helper()
	return testClock.FromTime(time.Date(2025, 8, 19, h, m, s, 0, time.UTC))
}

func tick(ts int64, price float64, qty uint32) models.TickRecord {
	return models.TickRecord{Timestamp: ts, Price: price, Quantity: qty, Side: models.BidFill}
}

func fullDay(anchor bool) SessionWindow {
	return SessionWindow{Start: 0, End: sctime.DayMicros - 1, NewBarAtSessionStart: anchor}
}

func TestVolumeBarsStraddlingThreshold(t *testing.T) {
	b := NewBarBuilder(sctime.NewClock(0), fullDay(false))
	recs := []models.TickRecord{
		tick(tsAt(t, 9, 0, 0), 10, 50),
		tick(tsAt(t, 9, 0, 1), 11, 30),
		tick(tsAt(t, 9, 0, 2), 12, 25),
		tick(tsAt(t, 9, 0, 3), 13, 40),
	}

	bars := b.VolumeBars(recs, 60)
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2: %+v", len(bars), bars)
	}
	if bars[0].Volume != 80 || bars[1].Volume != 65 {
		t.Errorf("volumes: got [%d %d] want [80 65]", bars[0].Volume, bars[1].Volume)
	}
	if bars[0].Open != 10 || bars[0].Close != 11 || bars[1].Open != 12 || bars[1].Close != 13 {
		t.Errorf("open/close: %+v", bars)
	}
}

func TestTimeBarsAnchoredToSessionStart(t *testing.T) {
	session := SessionWindow{
		Start:                int64(8*3600+30*60) * 1e6,
		End:                  int64(15*3600) * 1e6,
		NewBarAtSessionStart: true,
	}
	b := NewBarBuilder(sctime.NewClock(0), session)
	recs := []models.TickRecord{
		tick(tsAt(t, 8, 30, 0), 10, 1),
		tick(tsAt(t, 8, 30, 59), 11, 1),
		tick(tsAt(t, 8, 31, 0), 12, 1),
		tick(tsAt(t, 8, 31, 30), 13, 1),
	}

	bars := b.TimeBars(recs, time.Minute)
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2: %+v", len(bars), bars)
	}
	if bars[0].Volume != 2 || bars[1].Volume != 2 {
		t.Errorf("bar volumes: %+v", bars)
	}
	if bars[0].High != 11 || bars[1].Low != 12 {
		t.Errorf("bar bounds: %+v", bars)
	}
}

func TestTimeBarsAnchorHoldsAcrossDays(t *testing.T) {
	// 7 minutes does not divide 24h, so only per-day anchoring keeps a
	// window boundary on the session open of the second day.
	session := SessionWindow{
		Start:                int64(9*3600) * 1e6,
		End:                  int64(16*3600) * 1e6,
		NewBarAtSessionStart: true,
	}
	b := NewBarBuilder(sctime.NewClock(0), session)
	day2 := func(h, m int) int64 {
		return testClock.FromTime(time.Date(2025, 8, 20, h, m, 0, 0, time.UTC))
	}
	recs := []models.TickRecord{
		tick(tsAt(t, 9, 0, 0), 10, 1),
		tick(day2(9, 6), 11, 1), // window [09:00, 09:07)
		tick(day2(9, 8), 12, 1), // window [09:07, 09:14)
	}

	bars := b.TimeBars(recs, 7*time.Minute)
	if len(bars) != 3 {
		t.Fatalf("got %d bars, want 3: %+v", len(bars), bars)
	}
	if bars[1].Close != 11 || bars[2].Open != 12 {
		t.Errorf("second day not split on the 09:07 boundary: %+v", bars)
	}
}

func TestTimeBarsFilterOutsideSession(t *testing.T) {
	session := SessionWindow{
		Start: int64(8*3600+30*60) * 1e6,
		End:   int64(15*3600) * 1e6,
	}
	b := NewBarBuilder(sctime.NewClock(0), session)
	recs := []models.TickRecord{
		tick(tsAt(t, 7, 0, 0), 9, 1), // pre-open, dropped
		tick(tsAt(t, 9, 0, 0), 10, 1),
		tick(tsAt(t, 15, 0, 0), 11, 1),  // close is inclusive
		tick(tsAt(t, 15, 0, 1), 12, 1),  // past close, dropped
	}

	bars := b.TimeBars(recs, time.Hour)
	var total int64
	for _, bar := range bars {
		total += bar.Volume
	}
	if total != 2 {
		t.Errorf("session-filtered volume: got %d want 2 (%+v)", total, bars)
	}
}

func TestTradeBars(t *testing.T) {
	b := NewBarBuilder(sctime.NewClock(0), fullDay(false))
	var recs []models.TickRecord
	for i := 0; i < 7; i++ {
		recs = append(recs, tick(tsAt(t, 9, 0, i), float64(i), 1))
	}

	bars := b.TradeBars(recs, 3)
	if len(bars) != 3 {
		t.Fatalf("got %d bars, want 3", len(bars))
	}
	if bars[0].Volume != 3 || bars[1].Volume != 3 || bars[2].Volume != 1 {
		t.Errorf("trade counts per bar: %+v", bars)
	}
}

func TestSessionStartForcesNewBar(t *testing.T) {
	start := int64(8*3600+30*60) * 1e6
	session := SessionWindow{Start: start, End: int64(15*3600) * 1e6, NewBarAtSessionStart: true}
	b := NewBarBuilder(sctime.NewClock(0), session)

	day2 := testClock.FromTime(time.Date(2025, 8, 20, 8, 30, 0, 0, time.UTC))
	recs := []models.TickRecord{
		tick(tsAt(t, 8, 30, 0), 10, 30),
		tick(tsAt(t, 9, 0, 0), 11, 30),
		tick(day2, 12, 30),
	}

	// Cumulative volume stays under the threshold, but the next day's
	// session-open trade still starts a fresh bar.
	bars := b.VolumeBars(recs, 100)
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2: %+v", len(bars), bars)
	}
	if bars[0].Volume != 60 || bars[1].Volume != 30 {
		t.Errorf("volumes: got [%d %d] want [60 30]", bars[0].Volume, bars[1].Volume)
	}
}

func TestSuffixes(t *testing.T) {
	if s := TimeFrameSuffix(time.Minute); s != "1min" {
		t.Errorf("time suffix: %s", s)
	}
	if s := TimeFrameSuffix(30 * time.Second); s != "30sec" {
		t.Errorf("time suffix: %s", s)
	}
	if s := TradeCountSuffix(375); s != "trade375" {
		t.Errorf("trade suffix: %s", s)
	}
	if s := VolumeSuffix(750); s != "vol750" {
		t.Errorf("volume suffix: %s", s)
	}
}
