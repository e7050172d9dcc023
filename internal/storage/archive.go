package storage

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cockroachdb/pebble"
)

// ErrNotFound is returned when a run is not archived.
var ErrNotFound = errors.New("result not archived")

const (
	resultKeyPrefix = "r:"
	resultKeyLimit  = "r;" // first key after the "r:" range
)

// Entry describes one archived result.
type Entry struct {
	RunID   string    `json:"run_id"`
	RawSize uint32    `json:"raw_size"`
	SavedAt time.Time `json:"saved_at"`
}

// Archive keeps raw result documents keyed by run id in a Pebble database.
type Archive struct {
	db     *pebble.DB
	writer *ResultWriter
	reader *ResultReader
}

// OpenArchive opens or creates the archive at dir.
func OpenArchive(dir string) (*Archive, error) {
	writer, err := NewResultWriter()
	if err != nil {
		return nil, err
	}
	reader, err := NewResultReader()
	if err != nil {
		writer.Close()
		return nil, err
	}

	// Records are zstd-compressed already
	opts := &pebble.Options{
		Levels: []pebble.LevelOptions{
			{Compression: pebble.NoCompression},
		},
		Logger: &quietLogger{},
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		writer.Close()
		reader.Close()
		return nil, fmt.Errorf("open archive %s: %w", dir, err)
	}

	return &Archive{db: db, writer: writer, reader: reader}, nil
}

func resultKey(runID string) []byte {
	return []byte(resultKeyPrefix + runID)
}

// Put stores the raw result document of runID, replacing any previous one.
func (a *Archive) Put(runID string, raw []byte) error {
	return a.putAt(runID, raw, time.Now())
}

func (a *Archive) putAt(runID string, raw []byte, savedAt time.Time) error {
	record := a.writer.Encode(raw, savedAt)
	return a.db.Set(resultKey(runID), record, pebble.Sync)
}

// Get returns the raw result document of runID.
func (a *Archive) Get(runID string) ([]byte, error) {
	val, closer, err := a.db.Get(resultKey(runID))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	raw, _, err := a.reader.Decode(val)
	if err != nil {
		return nil, fmt.Errorf("decode archived result %s: %w", runID, err)
	}
	return raw, nil
}

// Delete removes runID from the archive.
func (a *Archive) Delete(runID string) error {
	return a.db.Delete(resultKey(runID), pebble.Sync)
}

// List returns every archived result, ordered by run id.
func (a *Archive) List() ([]Entry, error) {
	iter, err := a.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(resultKeyPrefix),
		UpperBound: []byte(resultKeyLimit),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var entries []Entry
	for iter.First(); iter.Valid(); iter.Next() {
		runID := string(iter.Key()[len(resultKeyPrefix):])
		info, err := ReadInfo(iter.Value())
		if err != nil {
			log.Printf("[Archive] Skipping corrupt record %s: %v", runID, err)
			continue
		}
		entries = append(entries, Entry{RunID: runID, RawSize: info.RawSize, SavedAt: info.SavedAt})
	}
	return entries, iter.Error()
}

// Close closes the database.
func (a *Archive) Close() error {
	a.reader.Close()
	a.writer.Close()
	return a.db.Close()
}

type quietLogger struct{}

func (q *quietLogger) Infof(format string, args ...interface{})  {}
func (q *quietLogger) Errorf(format string, args ...interface{}) {}
func (q *quietLogger) Fatalf(format string, args ...interface{}) { log.Fatalf(format, args...) }
