package processor

import (
	"fmt"
	"time"

	"scflow/internal/sctime"
	"scflow/models"
)

// SessionWindow bounds bar building to a local time-of-day range, inclusive
// on both ends. NewBarAtSessionStart forces a fresh bar whenever a trade
// lands exactly on the session open.
type SessionWindow struct {
	Start                int64
	End                  int64
	NewBarAtSessionStart bool
}

// BarBuilder aggregates session-filtered trades into time, trade-count and
// volume bars. All session arithmetic is done in the contract's local time
// via the clock.
type BarBuilder struct {
	clock   sctime.Clock
	session SessionWindow
}

func NewBarBuilder(clock sctime.Clock, session SessionWindow) *BarBuilder {
	return &BarBuilder{clock: clock, session: session}
}

func (b *BarBuilder) filterSession(recs []models.TickRecord) []models.TickRecord {
	kept := make([]models.TickRecord, 0, len(recs))
	for _, rec := range recs {
		tod := b.clock.TimeOfDay(rec.Timestamp)
		if tod >= b.session.Start && tod <= b.session.End {
			kept = append(kept, rec)
		}
	}
	return kept
}

// TimeBars buckets trades into fixed-width windows. Windows are anchored
// within each local day, so a bar boundary falls on the session open every
// day even when the width does not divide 24h; without session anchoring
// they align to local midnight.
func (b *BarBuilder) TimeBars(recs []models.TickRecord, width time.Duration) []models.Bar {
	widthUs := width.Microseconds()
	if widthUs <= 0 {
		return nil
	}
	anchor := int64(0)
	if b.session.NewBarAtSessionStart {
		anchor = b.session.Start
	}

	var acc barAccumulator
	for _, rec := range b.filterSession(recs) {
		local := b.clock.LocalMicros(rec.Timestamp)
		day := floorDiv(local, sctime.DayMicros)
		tod := local - day*sctime.DayMicros
		// Window start within the day is unique per window and below a
		// day's span, so day*DayMicros+start never collides across days.
		start := floorDiv(tod-anchor, widthUs)*widthUs + anchor
		acc.add(day*sctime.DayMicros+start, rec)
	}
	return acc.finish()
}

// TradeBars closes a bar after every perBar trades.
func (b *BarBuilder) TradeBars(recs []models.TickRecord, perBar int) []models.Bar {
	if perBar <= 0 {
		return nil
	}

	var acc barAccumulator
	offset := int64(0)
	for i, rec := range b.filterSession(recs) {
		if b.sessionOpenTick(rec) {
			offset++
		}
		acc.add(int64(i/perBar)+offset, rec)
	}
	return acc.finish()
}

// VolumeBars groups trades by cumulative volume before each trade, so a
// trade straddling a threshold closes the prior bar and its full quantity
// lands in the new one.
func (b *BarBuilder) VolumeBars(recs []models.TickRecord, threshold int64) []models.Bar {
	if threshold <= 0 {
		return nil
	}

	var acc barAccumulator
	offset := int64(0)
	cum := int64(0)
	for _, rec := range b.filterSession(recs) {
		if b.sessionOpenTick(rec) {
			offset++
		}
		acc.add(cum/threshold+offset, rec)
		cum += int64(rec.Quantity)
	}
	return acc.finish()
}

func (b *BarBuilder) sessionOpenTick(rec models.TickRecord) bool {
	return b.session.NewBarAtSessionStart && b.clock.TimeOfDay(rec.Timestamp) == b.session.Start
}

// barAccumulator folds sequential trades into bars, closing the open bar
// whenever the group id changes.
type barAccumulator struct {
	bars []models.Bar
	id   int64
	open bool
}

func (a *barAccumulator) add(id int64, rec models.TickRecord) {
	if !a.open || id != a.id {
		a.bars = append(a.bars, models.Bar{
			Open:    rec.Price,
			High:    rec.Price,
			Low:     rec.Price,
			Close:   rec.Price,
			Volume:  int64(rec.Quantity),
			FirstTs: rec.Timestamp,
			LastTs:  rec.Timestamp,
		})
		a.id = id
		a.open = true
		return
	}

	bar := &a.bars[len(a.bars)-1]
	if rec.Price > bar.High {
		bar.High = rec.Price
	}
	if rec.Price < bar.Low {
		bar.Low = rec.Price
	}
	bar.Close = rec.Price
	bar.Volume += int64(rec.Quantity)
	bar.LastTs = rec.Timestamp
}

func (a *barAccumulator) finish() []models.Bar {
	return a.bars
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// TimeFrameSuffix names a time-bar series, e.g. "1min" or "30sec".
func TimeFrameSuffix(width time.Duration) string {
	if width%time.Minute == 0 {
		return fmt.Sprintf("%dmin", width/time.Minute)
	}
	return fmt.Sprintf("%dsec", width/time.Second)
}

// TradeCountSuffix names a trade-count bar series, e.g. "trade375".
func TradeCountSuffix(perBar int) string {
	return fmt.Sprintf("trade%d", perBar)
}

// VolumeSuffix names a volume bar series, e.g. "vol750".
func VolumeSuffix(threshold int64) string {
	return fmt.Sprintf("vol%d", threshold)
}
