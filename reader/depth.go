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
	// DepthHeaderLen is the fixed .depth header size: four uint32 fields
	// and 48 reserved bytes.
	DepthHeaderLen = 64
	// DepthRecordLen is the fixed .depth record size: int64 timestamp,
	// command byte, flags byte, uint16 order count, float32 price, uint32
	// quantity and a reserved uint32.
	DepthRecordLen = 24
)

// DepthPath returns the location of one per-day depth file under the data
// root.
func DepthPath(root, symbol, date string) string {
	return filepath.Join(root, "Data", "MarketDepthData", fmt.Sprintf("%s.%s.depth", symbol, date))
}

// DepthReader reads market depth commands from one per-day .depth file.
type DepthReader struct {
	f      *os.File
	header []byte
}

func OpenDepth(path string) (*DepthReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open depth file: %w", err)
	}
	header := make([]byte, DepthHeaderLen)
	if _, err := io.ReadFull(f, header); err != nil {
		f.Close()
		return nil, fmt.Errorf("read depth header: %w", err)
	}
	return &DepthReader{f: f, header: header}, nil
}

func (r *DepthReader) Header() []byte {
	return r.header
}

// ReadRecords decodes whole records until end of file, optionally seeking to
// a record checkpoint first. A short trailing read is silently dropped.
func (r *DepthReader) ReadRecords(checkpoint int64) ([]models.DepthRecord, error) {
	if checkpoint > 0 {
		if _, err := r.f.Seek(DepthHeaderLen+checkpoint*DepthRecordLen, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek to depth checkpoint %d: %w", checkpoint, err)
		}
	}

	var recs []models.DepthRecord
	buf := make([]byte, DepthRecordLen)
	for {
		if _, err := io.ReadFull(r.f, buf); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return recs, nil
			}
			return recs, fmt.Errorf("read depth record: %w", err)
		}
		recs = append(recs, decodeDepth(buf))
	}
}

func (r *DepthReader) Close() error {
	return r.f.Close()
}

func decodeDepth(b []byte) models.DepthRecord {
	return models.DepthRecord{
		Timestamp: int64(binary.LittleEndian.Uint64(b[0:8])),
		Command:   models.DepthCommand(b[8]),
		Flags:     b[9],
		NumOrders: uint32(binary.LittleEndian.Uint16(b[10:12])),
		Price:     float64(math.Float32frombits(binary.LittleEndian.Uint32(b[12:16]))),
		Quantity:  binary.LittleEndian.Uint32(b[16:20]),
	}
}

// EncodeDepthHeader serializes a minimal valid .depth header.
func EncodeDepthHeader(dst []byte) []byte {
	if cap(dst) < DepthHeaderLen {
		dst = make([]byte, DepthHeaderLen)
	} else {
		dst = dst[:DepthHeaderLen]
		for i := range dst {
			dst[i] = 0
		}
	}
	binary.LittleEndian.PutUint32(dst[0:4], 0x44444353) // "SCDD"
	binary.LittleEndian.PutUint32(dst[4:8], DepthHeaderLen)
	binary.LittleEndian.PutUint32(dst[8:12], DepthRecordLen)
	binary.LittleEndian.PutUint32(dst[12:16], 1) // version
	return dst
}

// EncodeDepth serializes one depth record into dst.
func EncodeDepth(dst []byte, rec models.DepthRecord) []byte {
	if cap(dst) < DepthRecordLen {
		dst = make([]byte, DepthRecordLen)
	} else {
		dst = dst[:DepthRecordLen]
	}
	binary.LittleEndian.PutUint64(dst[0:8], uint64(rec.Timestamp))
	dst[8] = byte(rec.Command)
	dst[9] = rec.Flags
	binary.LittleEndian.PutUint16(dst[10:12], uint16(rec.NumOrders))
	binary.LittleEndian.PutUint32(dst[12:16], math.Float32bits(float32(rec.Price)))
	binary.LittleEndian.PutUint32(dst[16:20], rec.Quantity)
	binary.LittleEndian.PutUint32(dst[20:24], 0)
	return dst
}
