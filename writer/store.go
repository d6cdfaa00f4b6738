// Package writer persists decoded records and derived bars to a keyed
// series store. Each series is a flat namespace of partitions; writing the
// same partition twice replaces it, so reprocessing a batch is harmless.
package writer

import (
	"context"
	"fmt"

	"scflow/models"
)

// Store is the persistence boundary for the ETL. Partitions are addressed
// by the record offset at which they start, so a rerun of the same batch
// lands on the same partition and overwrites it byte for byte.
type Store interface {
	PutTicks(ctx context.Context, symbol string, offset int64, recs []models.TickRecord) error
	PutDepth(ctx context.Context, symbol, date string, offset int64, recs []models.DepthRecord) error
	PutBars(ctx context.Context, symbol, suffix string, bars []models.Bar) error
	GetTicks(ctx context.Context, symbol string) ([]models.TickRecord, error)
	GetDepth(ctx context.Context, symbol, date string) ([]models.DepthRecord, error)
	Close() error
}

// TickSeriesKey names a contract's trade series.
func TickSeriesKey(symbol string) string {
	return symbol + "_tas"
}

// DepthSeriesKey names a contract's depth series. Partitions within it are
// grouped by day, mirroring the per-day source files.
func DepthSeriesKey(symbol string) string {
	return symbol + "_depth"
}

// BarSeriesKey names a derived bar series, e.g. ESU25_FUT_CME_bars_1min.
func BarSeriesKey(symbol, suffix string) string {
	return fmt.Sprintf("%s_bars_%s", symbol, suffix)
}

// partitionKey builds the object name for a batch starting at the given
// record offset. The offset alone names the partition: a retry that picks
// up more records at the same offset overwrites the earlier object instead
// of leaving both behind. Zero padding keeps lexicographic and numeric
// order aligned, so a listing replays partitions in write order.
func partitionKey(series string, offset int64) string {
	return fmt.Sprintf("%s/%012d.parquet", series, offset)
}

// depthPartitionKey nests the day between series and offset, so one listing
// under {series}/{date}/ reads back a single day's records in order.
func depthPartitionKey(series, date string, offset int64) string {
	return fmt.Sprintf("%s/%s/%012d.parquet", series, date, offset)
}
