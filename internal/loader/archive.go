package loader

import (
	"context"
	"errors"
	"log"

	"github.com/Saturate/YellowLabTools/internal/model"
	"github.com/Saturate/YellowLabTools/internal/storage"
)

// ResultArchive stores raw result documents by run id.
type ResultArchive interface {
	Get(runID string) ([]byte, error)
	Put(runID string, raw []byte) error
}

// Fetcher returns raw result documents from upstream.
type Fetcher interface {
	Fetch(ctx context.Context, runID string) ([]byte, error)
}

// ArchiveLoader serves results from the local archive. Results missing
// from it are fetched from Upstream, when set, and archived.
type ArchiveLoader struct {
	Archive  ResultArchive
	Upstream Fetcher
}

// Load returns the result of runID.
func (l *ArchiveLoader) Load(ctx context.Context, runID string) (*model.Result, error) {
	raw, err := l.Archive.Get(runID)
	switch {
	case err == nil:
		res, err := DecodeResult(runID, raw)
		if err != nil {
			return nil, &LoadError{RunID: runID, Err: err}
		}
		return res, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, &LoadError{RunID: runID, Err: err}
	case l.Upstream == nil:
		return nil, &LoadError{RunID: runID, Err: ErrResultNotFound}
	}

	raw, err = l.Upstream.Fetch(ctx, runID)
	if err != nil {
		return nil, err
	}
	res, err := DecodeResult(runID, raw)
	if err != nil {
		return nil, &LoadError{RunID: runID, Err: err}
	}

	if err := l.Archive.Put(runID, raw); err != nil {
		log.Printf("[Loader] Failed to archive %s: %v", runID, err)
	}
	return res, nil
}
