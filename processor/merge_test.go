package processor

import (
	"errors"
	"testing"

	"scflow/models"
)

func mergerFixture() *Merger {
	ticks := []models.TickRecord{
		{Timestamp: 100, Price: 1, Quantity: 1},
		{Timestamp: 300, Price: 2, Quantity: 1},
		{Timestamp: 500, Price: 3, Quantity: 1},
	}
	depth := []models.DepthRecord{
		{Timestamp: 200, Command: models.CmdAddBidLevel, Price: 1, Quantity: 1},
		{Timestamp: 300, Command: models.CmdModifyBidLevel, Price: 1, Quantity: 2},
		{Timestamp: 400, Command: models.CmdAddAskLevel, Price: 2, Quantity: 1},
	}
	return NewMerger(ticks, depth)
}

func TestMergeOrderingAndCompleteness(t *testing.T) {
	m := mergerFixture()

	var got []int64
	var ticks, depths int
	prev := int64(-1)
	for {
		rec, err := m.Next()
		if errors.Is(err, ErrExhausted) {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if rec.Timestamp < prev {
			t.Errorf("out of order: %d after %d", rec.Timestamp, prev)
		}
		prev = rec.Timestamp
		got = append(got, rec.Timestamp)
		if rec.Tick != nil {
			ticks++
		}
		if rec.Depth != nil {
			depths++
		}
	}

	if ticks != 3 || depths != 3 {
		t.Errorf("stream not drained: %d ticks, %d depth", ticks, depths)
	}
	want := []int64{100, 200, 300, 300, 400, 500}
	for i, ts := range want {
		if got[i] != ts {
			t.Fatalf("sequence: got %v want %v", got, want)
		}
	}
}

func TestMergeTieYieldsDepthFirst(t *testing.T) {
	m := mergerFixture()

	var kinds []string
	for {
		rec, err := m.Next()
		if errors.Is(err, ErrExhausted) {
			break
		}
		if rec.Timestamp == 300 {
			if rec.Depth != nil {
				kinds = append(kinds, "depth")
			} else {
				kinds = append(kinds, "tick")
			}
		}
	}
	if len(kinds) != 2 || kinds[0] != "depth" || kinds[1] != "tick" {
		t.Errorf("tie order: %v, want [depth tick]", kinds)
	}
}

func TestResyncTo(t *testing.T) {
	m := mergerFixture()
	if err := m.ResyncTo(250, false); err != nil {
		t.Fatalf("resync: %v", err)
	}

	rec, err := m.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if rec.Depth == nil || rec.Timestamp != 300 {
		t.Fatalf("after resync: %+v", rec)
	}

	// Tick at 300 ties with the depth clock and is kept.
	rec, err = m.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if rec.Tick == nil || rec.Timestamp != 300 {
		t.Fatalf("after resync, second record: %+v", rec)
	}
}

func TestResyncPastEndExhausts(t *testing.T) {
	m := mergerFixture()
	if err := m.ResyncTo(10_000, false); err != nil {
		t.Fatalf("resync: %v", err)
	}

	rec, err := m.Next()
	if errors.Is(err, ErrExhausted) {
		return
	}
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	// Ticks at or after the final depth timestamp may remain.
	if rec.Tick == nil || rec.Timestamp < 400 {
		t.Fatalf("unexpected record after resync past end: %+v", rec)
	}
}

func TestCollectAllRestoresPosition(t *testing.T) {
	m := mergerFixture()
	first, err := m.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}

	all := m.CollectAll()
	if len(all) != 6 {
		t.Fatalf("collect: got %d records, want 6", len(all))
	}

	resumed, err := m.Next()
	if err != nil {
		t.Fatalf("next after collect: %v", err)
	}
	if first.Timestamp != 100 || resumed.Timestamp != 200 {
		t.Errorf("position not restored: first %d, resumed %d", first.Timestamp, resumed.Timestamp)
	}
}

func TestResyncPullsAppendedRecords(t *testing.T) {
	m := NewMerger(
		[]models.TickRecord{{Timestamp: 100, Price: 1, Quantity: 1}},
		[]models.DepthRecord{{Timestamp: 100, Command: models.CmdClearBook}},
	)
	m.pull = func() ([]models.TickRecord, []models.DepthRecord, error) {
		return []models.TickRecord{
				{Timestamp: 100, Price: 1, Quantity: 1},
				{Timestamp: 300, Price: 2, Quantity: 1},
			}, []models.DepthRecord{
				{Timestamp: 100, Command: models.CmdClearBook},
				{Timestamp: 200, Command: models.CmdAddBidLevel, Price: 1, Quantity: 1},
			}, nil
	}

	if err := m.ResyncTo(100, true); err != nil {
		t.Fatalf("resync: %v", err)
	}
	rec, err := m.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if rec.Depth == nil || rec.Timestamp != 200 {
		t.Fatalf("appended depth record not picked up: %+v", rec)
	}
}

func TestMergeDrainsTickTail(t *testing.T) {
	ticks := []models.TickRecord{{Timestamp: 900, Price: 1, Quantity: 1}}
	depth := []models.DepthRecord{{Timestamp: 100, Command: models.CmdClearBook}}
	m := NewMerger(ticks, depth)

	all := m.CollectAll()
	if len(all) != 2 {
		t.Fatalf("got %d records, want 2 (tick tail kept)", len(all))
	}
	if all[1].Tick == nil {
		t.Errorf("last record should be the trailing tick: %+v", all[1])
	}
}
