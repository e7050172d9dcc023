package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
)

var ErrInvalidHeader = errors.New("invalid archived result header")

// RecordInfo is the footer of an archive record.
type RecordInfo struct {
	RawSize uint32
	SavedAt time.Time
}

type ResultReader struct {
	decoder *zstd.Decoder
}

func NewResultReader() (*ResultReader, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &ResultReader{decoder: dec}, nil
}

// ReadInfo validates the header and reads the footer without decompressing.
func ReadInfo(record []byte) (RecordInfo, error) {
	if len(record) < len(MagicHeader)+4+footerSize {
		return RecordInfo{}, errors.New("record too small")
	}
	if !bytes.Equal(record[:len(MagicHeader)], MagicHeader) {
		return RecordInfo{}, ErrInvalidHeader
	}

	footer := record[len(record)-footerSize:]
	return RecordInfo{
		RawSize: binary.LittleEndian.Uint32(footer[0:4]),
		SavedAt: time.Unix(0, int64(binary.LittleEndian.Uint64(footer[4:12]))),
	}, nil
}

// Decode unpacks an archive record into the raw result document.
func (rr *ResultReader) Decode(record []byte) ([]byte, RecordInfo, error) {
	info, err := ReadInfo(record)
	if err != nil {
		return nil, info, err
	}

	body := record[len(MagicHeader) : len(record)-footerSize]
	size := binary.LittleEndian.Uint32(body[0:4])
	if int(size) != len(body)-4 {
		return nil, info, fmt.Errorf("compressed block size mismatch: header %d, actual %d", size, len(body)-4)
	}

	raw, err := rr.decoder.DecodeAll(body[4:], make([]byte, 0, info.RawSize))
	if err != nil {
		return nil, info, err
	}
	if uint32(len(raw)) != info.RawSize {
		return nil, info, errors.New("decompressed size mismatch")
	}
	return raw, info, nil
}

// Close releases the decoder.
func (rr *ResultReader) Close() {
	rr.decoder.Close()
}
