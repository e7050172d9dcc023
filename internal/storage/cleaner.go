package storage

import (
	"context"
	"log"
	"time"
)

// RunCleaner periodically removes archived results older than retention.
func (a *Archive) RunCleaner(ctx context.Context, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("Cleaner started. Retention: %v, Interval: %v", retention, interval)

	for {
		select {
		case <-ticker.C:
			if retention <= 0 {
				continue
			}
			if _, err := a.PurgeExpired(time.Now().Add(-retention)); err != nil {
				log.Printf("Cleaner error: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// PurgeExpired deletes results saved before threshold and returns how many
// were removed.
func (a *Archive) PurgeExpired(threshold time.Time) (int, error) {
	entries, err := a.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if !e.SavedAt.Before(threshold) {
			continue
		}
		if err := a.Delete(e.RunID); err != nil {
			log.Printf("Cleaner error: failed to delete %s: %v", e.RunID, err)
			continue
		}
		log.Printf("Expired result deleted: %s", e.RunID)
		removed++
	}
	return removed, nil
}
