// Package processor turns decoded records into derived views: order book
// snapshots, session-anchored bars and a merged tick/depth stream.
package processor

import (
	"errors"
	"fmt"
	"sort"

	"scflow/logger"
	"scflow/models"
)

// ErrNoSnapshot reports that no valid full-book snapshot is available at
// the requested time, either because none ends at or before it or because
// the book stayed crossed after repair.
var ErrNoSnapshot = errors.New("no valid snapshot")

// BookView is the top of the reconstructed order book at one instant. Bids
// are sorted descending by price, asks ascending.
type BookView struct {
	Timestamp int64               `json:"timestamp"`
	Bids      []models.PriceLevel `json:"bids"`
	Asks      []models.PriceLevel `json:"asks"`
}

// Reconstructor replays a day's depth commands to rebuild the book at any
// covered time. The record slice is scanned once for snapshot spans at
// construction.
type Reconstructor struct {
	recs      []models.DepthRecord
	snapshots []models.Snapshot
	log       *logger.Log
}

func NewReconstructor(recs []models.DepthRecord) *Reconstructor {
	r := &Reconstructor{recs: recs, log: logger.GetLogger()}
	r.findSnapshots()
	return r
}

// findSnapshots locates every full-book refresh: a CLEAR_BOOK command up to
// and including the next record carrying the end-of-batch flag. A clear
// with no batch end before the next clear (or end of data) is discarded as
// incomplete.
func (r *Reconstructor) findSnapshots() {
	start := -1
	for i, rec := range r.recs {
		if rec.Command == models.CmdClearBook {
			start = i
			continue
		}
		if start < 0 {
			continue
		}
		if rec.EndOfBatch() {
			r.snapshots = append(r.snapshots, models.Snapshot{
				StartIndex: start,
				EndIndex:   i,
				StartTs:    r.recs[start].Timestamp,
				EndTs:      rec.Timestamp,
			})
			start = -1
		}
	}
}

// Snapshots returns the full-book refresh spans found in the record stream,
// in file order.
func (r *Reconstructor) Snapshots() []models.Snapshot {
	return r.snapshots
}

// ReconstructAt rebuilds the book as of targetTs by replaying the record
// span of the latest snapshot ending at or before the target. Equal
// snapshot end times resolve to the one appearing later in the file.
func (r *Reconstructor) ReconstructAt(targetTs int64, maxDepth int) (*BookView, error) {
	snapIdx := -1
	for i, s := range r.snapshots {
		if s.EndTs <= targetTs {
			snapIdx = i
		}
	}
	if snapIdx < 0 {
		return nil, fmt.Errorf("%w: target %d", ErrNoSnapshot, targetTs)
	}
	snap := r.snapshots[snapIdx]

	book := newOrderBook()
	for i := snap.StartIndex; i <= snap.EndIndex; i++ {
		rec := r.recs[i]
		if !rec.Command.Valid() {
			r.log.WithComponent("book").WithFields(logger.Fields{
				"command": uint8(rec.Command),
				"index":   i,
			}).Warn("Skipping unknown depth command")
			continue
		}
		if rec.Command != models.CmdClearBook && rec.Price <= 0 {
			r.log.WithComponent("book").WithFields(logger.Fields{
				"command": rec.Command.String(),
				"price":   rec.Price,
				"index":   i,
			}).Warn("Skipping depth record with non-positive price")
			continue
		}
		book.apply(rec)
	}

	if !book.valid() {
		moved := book.repair()
		r.log.WithComponent("book").WithFields(logger.Fields{
			"target_ts": targetTs,
			"moved":     moved,
		}).Warn("Repaired crossed book")
		if !book.valid() {
			return nil, fmt.Errorf("%w: book crossed after repair at %d", ErrNoSnapshot, snap.EndTs)
		}
	}

	return &BookView{
		Timestamp: snap.EndTs,
		Bids:      book.topBids(maxDepth),
		Asks:      book.topAsks(maxDepth),
	}, nil
}

// orderBook is the mutable replay state: quantity and order count keyed by
// price, one map per side.
type orderBook struct {
	bids map[float64]models.PriceLevel
	asks map[float64]models.PriceLevel
}

func newOrderBook() *orderBook {
	return &orderBook{
		bids: make(map[float64]models.PriceLevel),
		asks: make(map[float64]models.PriceLevel),
	}
}

func (b *orderBook) apply(rec models.DepthRecord) {
	if rec.Command == models.CmdClearBook {
		b.bids = make(map[float64]models.PriceLevel)
		b.asks = make(map[float64]models.PriceLevel)
		return
	}

	side, other := b.asks, b.bids
	if rec.Command.BidSide() {
		side, other = b.bids, b.asks
	}
	switch rec.Command {
	case models.CmdDeleteBidLevel, models.CmdDeleteAskLevel:
		delete(side, rec.Price)
	default:
		side[rec.Price] = models.PriceLevel{
			Price:     rec.Price,
			Quantity:  int(rec.Quantity),
			NumOrders: int(rec.NumOrders),
		}
		// A level never sits on both sides; an upsert implies the
		// price left the opposite side even without a delete.
		delete(other, rec.Price)
	}
}

// valid reports whether the book is uncrossed: every bid strictly below
// every ask. Empty sides are trivially valid.
func (b *orderBook) valid() bool {
	if len(b.bids) == 0 || len(b.asks) == 0 {
		return true
	}
	return maxPrice(b.bids) < minPrice(b.asks)
}

// repair reassigns levels across the midpoint of the full observed price
// range: bids at or above it become asks, asks below it become bids. It
// returns how many levels moved; the caller re-validates afterwards.
func (b *orderBook) repair() int {
	if len(b.bids) == 0 || len(b.asks) == 0 {
		return 0
	}
	lo := minPrice(b.bids)
	if p := minPrice(b.asks); p < lo {
		lo = p
	}
	hi := maxPrice(b.asks)
	if p := maxPrice(b.bids); p > hi {
		hi = p
	}
	mid := (lo + hi) / 2

	moved := 0
	for p, level := range b.bids {
		if p >= mid {
			delete(b.bids, p)
			b.asks[p] = level
			moved++
		}
	}
	for p, level := range b.asks {
		if p < mid {
			delete(b.asks, p)
			b.bids[p] = level
			moved++
		}
	}
	return moved
}

func (b *orderBook) topBids(n int) []models.PriceLevel {
	levels := collect(b.bids)
	sort.Slice(levels, func(i, j int) bool { return levels[i].Price > levels[j].Price })
	if n > 0 && len(levels) > n {
		levels = levels[:n]
	}
	return levels
}

func (b *orderBook) topAsks(n int) []models.PriceLevel {
	levels := collect(b.asks)
	sort.Slice(levels, func(i, j int) bool { return levels[i].Price < levels[j].Price })
	if n > 0 && len(levels) > n {
		levels = levels[:n]
	}
	return levels
}

func collect(side map[float64]models.PriceLevel) []models.PriceLevel {
	levels := make([]models.PriceLevel, 0, len(side))
	for _, l := range side {
		levels = append(levels, l)
	}
	return levels
}

func maxPrice(side map[float64]models.PriceLevel) float64 {
	first := true
	var max float64
	for p := range side {
		if first || p > max {
			max = p
			first = false
		}
	}
	return max
}

func minPrice(side map[float64]models.PriceLevel) float64 {
	first := true
	var min float64
	for p := range side {
		if first || p < min {
			min = p
			first = false
		}
	}
	return min
}
