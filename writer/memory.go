package writer

import (
	"context"
	"sort"
	"strings"
	"sync"

	"scflow/models"
)

// MemStore keeps series partitions in process memory, round-tripping them
// through the same parquet encoding the S3 store uses. It backs tests and
// runs with object storage disabled.
type MemStore struct {
	mu     sync.RWMutex
	series map[string]map[string][]byte // series -> partition key -> parquet bytes
}

func NewMemStore() *MemStore {
	return &MemStore{series: make(map[string]map[string][]byte)}
}

func (m *MemStore) PutTicks(ctx context.Context, symbol string, offset int64, recs []models.TickRecord) error {
	data, err := encodeTickParquet(recs)
	if err != nil {
		return err
	}
	m.store(TickSeriesKey(symbol), partitionKey(TickSeriesKey(symbol), offset), data)
	return nil
}

func (m *MemStore) PutDepth(ctx context.Context, symbol, date string, offset int64, recs []models.DepthRecord) error {
	data, err := encodeDepthParquet(recs)
	if err != nil {
		return err
	}
	series := DepthSeriesKey(symbol)
	m.store(series, depthPartitionKey(series, date, offset), data)
	return nil
}

func (m *MemStore) PutBars(ctx context.Context, symbol, suffix string, bars []models.Bar) error {
	data, err := encodeBarParquet(bars)
	if err != nil {
		return err
	}
	series := BarSeriesKey(symbol, suffix)
	m.store(series, partitionKey(series, 0), data)
	return nil
}

func (m *MemStore) store(series, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.series[series] == nil {
		m.series[series] = make(map[string][]byte)
	}
	m.series[series][key] = data
}

func (m *MemStore) GetTicks(ctx context.Context, symbol string) ([]models.TickRecord, error) {
	var recs []models.TickRecord
	for _, data := range m.partitions(TickSeriesKey(symbol), "") {
		part, err := decodeTickParquet(data)
		if err != nil {
			return nil, err
		}
		recs = append(recs, part...)
	}
	return recs, nil
}

func (m *MemStore) GetDepth(ctx context.Context, symbol, date string) ([]models.DepthRecord, error) {
	var recs []models.DepthRecord
	for _, data := range m.partitions(DepthSeriesKey(symbol), date+"/") {
		part, err := decodeDepthParquet(data)
		if err != nil {
			return nil, err
		}
		recs = append(recs, part...)
	}
	return recs, nil
}

// GetBars reads a derived bar series back, mainly for tests.
func (m *MemStore) GetBars(symbol, suffix string) ([]models.Bar, error) {
	var bars []models.Bar
	for _, data := range m.partitions(BarSeriesKey(symbol, suffix), "") {
		part, err := decodeBarParquet(data)
		if err != nil {
			return nil, err
		}
		bars = append(bars, part...)
	}
	return bars, nil
}

// PartitionKeys returns the sorted partition names of a series.
func (m *MemStore) PartitionKeys(series string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.series[series]))
	for k := range m.series[series] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// partitions returns a series' payloads in key order, optionally narrowed
// to partition names under the given sub-prefix (the day for depth series).
func (m *MemStore) partitions(series, subPrefix string) [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.series[series]))
	for k := range m.series[series] {
		if subPrefix == "" || strings.HasPrefix(k, series+"/"+subPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([][]byte, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.series[series][k])
	}
	return out
}

func (m *MemStore) Close() error {
	return nil
}
