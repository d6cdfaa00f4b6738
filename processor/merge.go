package processor

import (
	"errors"
	"fmt"
	"sort"

	"scflow/internal/sctime"
	"scflow/models"
	"scflow/reader"
)

// ErrExhausted reports that both underlying streams are fully consumed.
var ErrExhausted = errors.New("merged stream exhausted")

// MergedRecord is one element of the interleaved stream. Exactly one of
// Tick and Depth is set.
type MergedRecord struct {
	Timestamp int64
	Tick      *models.TickRecord
	Depth     *models.DepthRecord
}

// Merger interleaves a day's trades and depth commands into a single
// timestamp-ordered stream. Equal timestamps yield the depth record first,
// so book state is current before the trade that hit it. Both streams are
// drained completely.
type Merger struct {
	ticks []models.TickRecord
	depth []models.DepthRecord
	ti    int
	di    int

	// pull re-reads the backing files so a resync can pick up records
	// appended since open. Nil for mergers built from slices.
	pull func() ([]models.TickRecord, []models.DepthRecord, error)
}

func NewMerger(ticks []models.TickRecord, depth []models.DepthRecord) *Merger {
	return &Merger{ticks: ticks, depth: depth}
}

// OpenMerger loads the contract's trades and the given day's depth file,
// applies the price adjustment to both, and keeps only trades falling on
// that local calendar date.
func OpenMerger(root, symbol, date string, clock sctime.Clock, adjust float64) (*Merger, error) {
	pull := func() ([]models.TickRecord, []models.DepthRecord, error) {
		dr, err := reader.OpenDepth(reader.DepthPath(root, symbol, date))
		if err != nil {
			return nil, nil, err
		}
		depth, err := dr.ReadRecords(0)
		dr.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("read depth for %s %s: %w", symbol, date, err)
		}

		tr, err := reader.OpenTick(reader.TickPath(root, symbol))
		if err != nil {
			return nil, nil, err
		}
		allTicks, err := tr.ReadRecords(0)
		tr.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("read ticks for %s: %w", symbol, err)
		}

		var ticks []models.TickRecord
		for _, rec := range allTicks {
			if clock.DateString(rec.Timestamp) == date {
				ticks = append(ticks, rec)
			}
		}

		reader.AdjustTickPrices(ticks, adjust)
		reader.AdjustDepthPrices(depth, adjust)
		return ticks, depth, nil
	}

	ticks, depth, err := pull()
	if err != nil {
		return nil, err
	}
	m := NewMerger(ticks, depth)
	m.pull = pull
	return m, nil
}

// Next returns the next record in timestamp order, or ErrExhausted when
// both streams are done.
func (m *Merger) Next() (MergedRecord, error) {
	tickLeft := m.ti < len(m.ticks)
	depthLeft := m.di < len(m.depth)

	switch {
	case !tickLeft && !depthLeft:
		return MergedRecord{}, ErrExhausted
	case !tickLeft:
		return m.nextDepth(), nil
	case !depthLeft:
		return m.nextTick(), nil
	case m.depth[m.di].Timestamp <= m.ticks[m.ti].Timestamp:
		return m.nextDepth(), nil
	default:
		return m.nextTick(), nil
	}
}

func (m *Merger) nextTick() MergedRecord {
	rec := &m.ticks[m.ti]
	m.ti++
	return MergedRecord{Timestamp: rec.Timestamp, Tick: rec}
}

func (m *Merger) nextDepth() MergedRecord {
	rec := &m.depth[m.di]
	m.di++
	return MergedRecord{Timestamp: rec.Timestamp, Depth: rec}
}

// ResyncTo skips the depth stream past target and realigns the tick stream
// to the depth clock, so iteration resumes as if it had been running up to
// that point. With pullMore, the backing files are re-read first to pick up
// records appended since open.
func (m *Merger) ResyncTo(target int64, pullMore bool) error {
	if pullMore && m.pull != nil {
		ticks, depth, err := m.pull()
		if err != nil {
			return err
		}
		m.ticks, m.depth = ticks, depth
	}
	m.di = sort.Search(len(m.depth), func(i int) bool {
		return m.depth[i].Timestamp > target
	})
	m.synchronize()
	return nil
}

// synchronize positions the tick cursor against the depth clock: the next
// unread depth timestamp, or the last one when depth is spent.
func (m *Merger) synchronize() {
	if len(m.depth) == 0 {
		return
	}
	clock := m.depth[len(m.depth)-1].Timestamp
	if m.di < len(m.depth) {
		clock = m.depth[m.di].Timestamp
	}
	m.ti = sort.Search(len(m.ticks), func(i int) bool {
		return m.ticks[i].Timestamp >= clock
	})
}

// CollectAll drains the whole stream from the beginning and restores the
// cursors afterwards.
func (m *Merger) CollectAll() []MergedRecord {
	savedTi, savedDi := m.ti, m.di
	m.ti, m.di = 0, 0

	out := make([]MergedRecord, 0, len(m.ticks)+len(m.depth))
	for {
		rec, err := m.Next()
		if err != nil {
			break
		}
		out = append(out, rec)
	}

	m.ti, m.di = savedTi, savedDi
	return out
}
