// Package reader decodes the charting platform's fixed-layout intraday
// (.scid) and market depth (.depth) files. Records are little-endian with no
// delimiters; a truncated trailing record terminates a read without error.
package reader

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"scflow/models"
)

const (
	// TickHeaderLen is the fixed .scid header size: 4 magic bytes, two
	// uint32 sizes, two uint16s, one uint32 and 36 reserved bytes.
	TickHeaderLen = 56
	// TickRecordLen is the fixed .scid record size: int64 timestamp, four
	// float32 prices and four uint32 volumes.
	TickRecordLen = 40
)

var tickMagic = [4]byte{'S', 'C', 'I', 'D'}

// TickPath returns the intraday file location for a contract under the data
// root.
func TickPath(root, symbol string) string {
	return filepath.Join(root, "Data", symbol+".scid")
}

// TickReader reads trade records from one .scid file. Opening consumes the
// header; callers only need its byte length, so it is kept as an opaque
// blob.
type TickReader struct {
	f      *os.File
	header []byte
}

func OpenTick(path string) (*TickReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tick file: %w", err)
	}
	header := make([]byte, TickHeaderLen)
	if _, err := io.ReadFull(f, header); err != nil {
		f.Close()
		return nil, fmt.Errorf("read tick header: %w", err)
	}
	return &TickReader{f: f, header: header}, nil
}

// Header returns the raw header blob.
func (r *TickReader) Header() []byte {
	return r.header
}

// ReadRecords decodes whole records until end of file. A checkpoint greater
// than zero seeks to that many records past the header first; zero continues
// from the current position. A short trailing read is silently dropped.
func (r *TickReader) ReadRecords(checkpoint int64) ([]models.TickRecord, error) {
	if checkpoint > 0 {
		if _, err := r.f.Seek(TickHeaderLen+checkpoint*TickRecordLen, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek to tick checkpoint %d: %w", checkpoint, err)
		}
	}

	var recs []models.TickRecord
	buf := make([]byte, TickRecordLen)
	for {
		if _, err := io.ReadFull(r.f, buf); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return recs, nil
			}
			return recs, fmt.Errorf("read tick record: %w", err)
		}
		recs = append(recs, decodeTick(buf))
	}
}

func (r *TickReader) Close() error {
	return r.f.Close()
}

// decodeTick extracts the trade view of an intraday record: in tick-by-tick
// files the close field carries the trade price and exactly one of
// bid/ask volume carries the traded quantity, identifying the side.
func decodeTick(b []byte) models.TickRecord {
	bidVol := binary.LittleEndian.Uint32(b[32:36])
	askVol := binary.LittleEndian.Uint32(b[36:40])

	rec := models.TickRecord{
		Timestamp: int64(binary.LittleEndian.Uint64(b[0:8])),
		Price:     float64(math.Float32frombits(binary.LittleEndian.Uint32(b[20:24]))),
	}
	if bidVol > 0 {
		rec.Quantity = bidVol
		rec.Side = models.BidFill
	} else {
		rec.Quantity = askVol
		rec.Side = models.AskFill
	}
	return rec
}

// IntradayRecord is the on-disk layout of one .scid record, used when
// writing fixture or replay files.
type IntradayRecord struct {
	Timestamp   int64
	Open        float32
	High        float32
	Low         float32
	Close       float32
	NumTrades   uint32
	TotalVolume uint32
	BidVolume   uint32
	AskVolume   uint32
}

// EncodeTickHeader serializes a minimal valid .scid header.
func EncodeTickHeader(dst []byte) []byte {
	if cap(dst) < TickHeaderLen {
		dst = make([]byte, TickHeaderLen)
	} else {
		dst = dst[:TickHeaderLen]
		for i := range dst {
			dst[i] = 0
		}
	}
	copy(dst[0:4], tickMagic[:])
	binary.LittleEndian.PutUint32(dst[4:8], TickHeaderLen)
	binary.LittleEndian.PutUint32(dst[8:12], TickRecordLen)
	binary.LittleEndian.PutUint16(dst[12:14], 1) // version
	binary.LittleEndian.PutUint16(dst[14:16], 0)
	binary.LittleEndian.PutUint32(dst[16:20], 0)
	return dst
}

// EncodeIntraday serializes one intraday record into dst.
func EncodeIntraday(dst []byte, rec IntradayRecord) []byte {
	if cap(dst) < TickRecordLen {
		dst = make([]byte, TickRecordLen)
	} else {
		dst = dst[:TickRecordLen]
	}
	binary.LittleEndian.PutUint64(dst[0:8], uint64(rec.Timestamp))
	binary.LittleEndian.PutUint32(dst[8:12], math.Float32bits(rec.Open))
	binary.LittleEndian.PutUint32(dst[12:16], math.Float32bits(rec.High))
	binary.LittleEndian.PutUint32(dst[16:20], math.Float32bits(rec.Low))
	binary.LittleEndian.PutUint32(dst[20:24], math.Float32bits(rec.Close))
	binary.LittleEndian.PutUint32(dst[24:28], rec.NumTrades)
	binary.LittleEndian.PutUint32(dst[28:32], rec.TotalVolume)
	binary.LittleEndian.PutUint32(dst[32:36], rec.BidVolume)
	binary.LittleEndian.PutUint32(dst[36:40], rec.AskVolume)
	return dst
}
