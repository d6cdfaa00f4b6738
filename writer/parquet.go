package writer

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"
	pqwriter "github.com/xitongsys/parquet-go/writer"

	"scflow/models"
)

// memoryFileWriter implements ParquetFile interface for in-memory writing
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error) {
	return mfw.buffer.Read(b)
}

func (mfw *memoryFileWriter) Write(b []byte) (int, error) {
	return mfw.buffer.Write(b)
}

func (mfw *memoryFileWriter) Close() error {
	return nil
}

func (mfw *memoryFileWriter) Bytes() []byte {
	return mfw.buffer.Bytes()
}

// memoryFileReader serves a stored partition back to the parquet reader.
// Open hands out an independent cursor over the same bytes; the column
// readers each open their own.
type memoryFileReader struct {
	data []byte
	r    *bytes.Reader
}

func newMemoryFileReader(data []byte) *memoryFileReader {
	return &memoryFileReader{data: data, r: bytes.NewReader(data)}
}

func (mfr *memoryFileReader) Create(name string) (source.ParquetFile, error) {
	return newMemoryFileReader(mfr.data), nil
}

func (mfr *memoryFileReader) Open(name string) (source.ParquetFile, error) {
	return newMemoryFileReader(mfr.data), nil
}

func (mfr *memoryFileReader) Seek(offset int64, whence int) (int64, error) {
	return mfr.r.Seek(offset, whence)
}

func (mfr *memoryFileReader) Read(b []byte) (int, error) {
	return mfr.r.Read(b)
}

func (mfr *memoryFileReader) Write(b []byte) (int, error) {
	return 0, fmt.Errorf("partition buffer is read-only")
}

func (mfr *memoryFileReader) Close() error {
	return nil
}

// tickParquetRow is the on-store layout of one trade.
type tickParquetRow struct {
	Timestamp int64   `parquet:"name=timestamp, type=INT64"`
	Price     float64 `parquet:"name=price, type=DOUBLE"`
	Quantity  int64   `parquet:"name=quantity, type=INT64"`
	Side      string  `parquet:"name=side, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// depthParquetRow is the on-store layout of one depth command.
type depthParquetRow struct {
	Timestamp int64   `parquet:"name=timestamp, type=INT64"`
	Command   int32   `parquet:"name=command, type=INT32"`
	Flags     int32   `parquet:"name=flags, type=INT32"`
	NumOrders int64   `parquet:"name=num_orders, type=INT64"`
	Price     float64 `parquet:"name=price, type=DOUBLE"`
	Quantity  int64   `parquet:"name=quantity, type=INT64"`
}

// barParquetRow is the on-store layout of one bar.
type barParquetRow struct {
	Open    float64 `parquet:"name=open, type=DOUBLE"`
	High    float64 `parquet:"name=high, type=DOUBLE"`
	Low     float64 `parquet:"name=low, type=DOUBLE"`
	Close   float64 `parquet:"name=close, type=DOUBLE"`
	Volume  int64   `parquet:"name=volume, type=INT64"`
	FirstTs int64   `parquet:"name=first_ts, type=INT64"`
	LastTs  int64   `parquet:"name=last_ts, type=INT64"`
}

func writeParquet(rowType interface{}, write func(pw *pqwriter.ParquetWriter) error) ([]byte, error) {
	fw := newMemoryFileWriter()
	pw, err := pqwriter.NewParquetWriter(fw, rowType, 4)
	if err != nil {
		return nil, fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	if err := write(pw); err != nil {
		pw.WriteStop()
		return nil, err
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finalize parquet file: %w", err)
	}
	return fw.Bytes(), nil
}

func encodeTickParquet(recs []models.TickRecord) ([]byte, error) {
	return writeParquet(new(tickParquetRow), func(pw *pqwriter.ParquetWriter) error {
		for _, rec := range recs {
			row := tickParquetRow{
				Timestamp: rec.Timestamp,
				Price:     rec.Price,
				Quantity:  int64(rec.Quantity),
				Side:      rec.Side.String(),
			}
			if err := pw.Write(row); err != nil {
				return fmt.Errorf("write tick row: %w", err)
			}
		}
		return nil
	})
}

func encodeDepthParquet(recs []models.DepthRecord) ([]byte, error) {
	return writeParquet(new(depthParquetRow), func(pw *pqwriter.ParquetWriter) error {
		for _, rec := range recs {
			row := depthParquetRow{
				Timestamp: rec.Timestamp,
				Command:   int32(rec.Command),
				Flags:     int32(rec.Flags),
				NumOrders: int64(rec.NumOrders),
				Price:     rec.Price,
				Quantity:  int64(rec.Quantity),
			}
			if err := pw.Write(row); err != nil {
				return fmt.Errorf("write depth row: %w", err)
			}
		}
		return nil
	})
}

func encodeBarParquet(bars []models.Bar) ([]byte, error) {
	return writeParquet(new(barParquetRow), func(pw *pqwriter.ParquetWriter) error {
		for _, bar := range bars {
			row := barParquetRow{
				Open:    bar.Open,
				High:    bar.High,
				Low:     bar.Low,
				Close:   bar.Close,
				Volume:  bar.Volume,
				FirstTs: bar.FirstTs,
				LastTs:  bar.LastTs,
			}
			if err := pw.Write(row); err != nil {
				return fmt.Errorf("write bar row: %w", err)
			}
		}
		return nil
	})
}

func decodeTickParquet(data []byte) ([]models.TickRecord, error) {
	fr := newMemoryFileReader(data)
	pr, err := reader.NewParquetReader(fr, new(tickParquetRow), 4)
	if err != nil {
		return nil, fmt.Errorf("open parquet reader: %w", err)
	}
	defer pr.ReadStop()

	rows := make([]tickParquetRow, pr.GetNumRows())
	if err := pr.Read(&rows); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read tick rows: %w", err)
	}

	recs := make([]models.TickRecord, len(rows))
	for i, row := range rows {
		side := models.AskFill
		if row.Side == models.BidFill.String() {
			side = models.BidFill
		}
		recs[i] = models.TickRecord{
			Timestamp: row.Timestamp,
			Price:     row.Price,
			Quantity:  uint32(row.Quantity),
			Side:      side,
		}
	}
	return recs, nil
}

func decodeBarParquet(data []byte) ([]models.Bar, error) {
	fr := newMemoryFileReader(data)
	pr, err := reader.NewParquetReader(fr, new(barParquetRow), 4)
	if err != nil {
		return nil, fmt.Errorf("open parquet reader: %w", err)
	}
	defer pr.ReadStop()

	rows := make([]barParquetRow, pr.GetNumRows())
	if err := pr.Read(&rows); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read bar rows: %w", err)
	}

	bars := make([]models.Bar, len(rows))
	for i, row := range rows {
		bars[i] = models.Bar{
			Open:    row.Open,
			High:    row.High,
			Low:     row.Low,
			Close:   row.Close,
			Volume:  row.Volume,
			FirstTs: row.FirstTs,
			LastTs:  row.LastTs,
		}
	}
	return bars, nil
}

func decodeDepthParquet(data []byte) ([]models.DepthRecord, error) {
	fr := newMemoryFileReader(data)
	pr, err := reader.NewParquetReader(fr, new(depthParquetRow), 4)
	if err != nil {
		return nil, fmt.Errorf("open parquet reader: %w", err)
	}
	defer pr.ReadStop()

	rows := make([]depthParquetRow, pr.GetNumRows())
	if err := pr.Read(&rows); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read depth rows: %w", err)
	}

	recs := make([]models.DepthRecord, len(rows))
	for i, row := range rows {
		recs[i] = models.DepthRecord{
			Timestamp: row.Timestamp,
			Command:   models.DepthCommand(row.Command),
			Flags:     uint8(row.Flags),
			NumOrders: uint32(row.NumOrders),
			Price:     row.Price,
			Quantity:  uint32(row.Quantity),
		}
	}
	return recs, nil
}
