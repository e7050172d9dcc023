package storage

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Archived result header
var MagicHeader = []byte("YLTRES01")

// Record layout:
//
//	Header(8) | CompressedSize uint32 | zstd(raw JSON) | Footer
//	Footer: RawSize uint32 + SavedAt int64 (unix nanos) = 12 bytes
const footerSize = 12

type ResultWriter struct {
	encoder *zstd.Encoder
}

func NewResultWriter() (*ResultWriter, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	return &ResultWriter{encoder: enc}, nil
}

// Encode packs a raw result document into an archive record.
func (rw *ResultWriter) Encode(raw []byte, savedAt time.Time) []byte {
	compressed := rw.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/4))

	buf := bytes.NewBuffer(make([]byte, 0, len(MagicHeader)+4+len(compressed)+footerSize))

	// 1. Header
	buf.Write(MagicHeader)

	// 2. Compressed block
	binary.Write(buf, binary.LittleEndian, uint32(len(compressed)))
	buf.Write(compressed)

	// 3. Footer
	binary.Write(buf, binary.LittleEndian, uint32(len(raw)))
	binary.Write(buf, binary.LittleEndian, savedAt.UnixNano())

	return buf.Bytes()
}

// Close releases the encoder.
func (rw *ResultWriter) Close() error {
	return rw.encoder.Close()
}
